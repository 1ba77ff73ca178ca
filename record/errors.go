package record

import "fmt"

// BadPayload reports a record whose payload was too small for its
// declared type, or whose fields were out of range once decoded.
type BadPayload struct {
	RecordType int
	Reason     string
}

func (e *BadPayload) Error() string {
	return fmt.Sprintf("record: bad payload for type 0x%x: %s", e.RecordType, e.Reason)
}

// MissingReference reports a style/font/link/name id that a cell or chart
// element pointed at but that never resolved by emission time. It is
// non-fatal: the caller substitutes a default and logs a warning.
type MissingReference struct {
	Kind string
	ID   int
}

func (e *MissingReference) Error() string {
	return fmt.Sprintf("record: missing %s reference %d", e.Kind, e.ID)
}

// PasswordRequiredError reports an encrypted document for which no password
// was given, or the given password failed both direct verification and
// short-password recovery. This error must propagate to the caller rather
// than be swallowed as a skip-and-warn condition.
type PasswordRequiredError struct {
	Reason string
}

func (e *PasswordRequiredError) Error() string {
	return "record: password required: " + e.Reason
}

// UnsupportedFormatVariantError reports a recognized file signature for
// which this module implements no record layout (e.g. a variant that is
// parse-only in the original and never got a Go port).
type UnsupportedFormatVariantError struct {
	Variant string
}

func (e *UnsupportedFormatVariantError) Error() string {
	return "record: unsupported format variant: " + e.Variant
}

// BadSignature reports a header that does not match any family this module
// recognizes at all.
type BadSignature struct {
	Reason string
}

func (e *BadSignature) Error() string {
	return "record: bad signature: " + e.Reason
}
