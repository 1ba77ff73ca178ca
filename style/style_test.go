package style

import "testing"

func TestTableInsertGet(t *testing.T) {
	tbl := NewTable[Font]()
	tbl.Insert(3, Font{Name: "Helvetica", SizePt: 10})
	tbl.Insert(7, Font{Name: "Courier", SizePt: 12})

	f, ok := tbl.Get(3)
	if !ok || f.Name != "Helvetica" {
		t.Fatalf("Get(3) = %+v, %v", f, ok)
	}
	if _, ok := tbl.Get(99); ok {
		t.Fatal("Get(99) should miss")
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestTableInsertOverwrites(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Insert(1, 10)
	tbl.Insert(1, 20)
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after overwrite", tbl.Len())
	}
	v, _ := tbl.Get(1)
	if v != 20 {
		t.Errorf("Get(1) = %d, want 20", v)
	}
}

func TestPaletteForSize(t *testing.T) {
	if len(PaletteForSize(8)) != 8 {
		t.Error("PaletteForSize(8) wrong length")
	}
	if len(PaletteForSize(16)) != 16 {
		t.Error("PaletteForSize(16) wrong length")
	}
	if len(PaletteForSize(256)) != 256 {
		t.Error("PaletteForSize(256) wrong length")
	}
	if len(PaletteForSize(999)) != 256 {
		t.Error("PaletteForSize(unknown) should fall back to 256")
	}
}

func TestComposeColorExtremes(t *testing.T) {
	fg := Color{255, 0, 0}
	bg := Color{0, 0, 255}

	var solid Pattern
	for i := range solid {
		solid[i] = 0xFF
	}
	if c := ComposeColor(solid, fg, bg); c != fg {
		t.Errorf("fully-set pattern = %+v, want fg %+v", c, fg)
	}

	var empty Pattern
	if c := ComposeColor(empty, fg, bg); c != bg {
		t.Errorf("empty pattern = %+v, want bg %+v", c, bg)
	}
}

func TestResolveRowChainSimple(t *testing.T) {
	parent := map[int]int{2: 1, 3: 2}
	explicit := map[int]int{1: 42}

	resolved, warnings := ResolveRowChain(parent, explicit)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	for _, row := range []int{2, 3} {
		if resolved[row] != 42 {
			t.Errorf("resolved[%d] = %d, want 42", row, resolved[row])
		}
	}
}

func TestResolveRowChainCycle(t *testing.T) {
	parent := map[int]int{1: 2, 2: 1}
	explicit := map[int]int{}

	resolved, warnings := ResolveRowChain(parent, explicit)
	if len(resolved) != 0 {
		t.Errorf("cyclic chain should resolve to nothing, got %v", resolved)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for the cyclic chain")
	}
}

func TestResolveRowChainMissingParent(t *testing.T) {
	parent := map[int]int{5: 6} // row 6 has no parent and no explicit style
	explicit := map[int]int{}

	_, warnings := ResolveRowChain(parent, explicit)
	if len(warnings) != 1 || warnings[0] != 5 {
		t.Errorf("warnings = %v, want [5]", warnings)
	}
}
