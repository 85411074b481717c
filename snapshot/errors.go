package snapshot

import "fmt"

// ParseError is spec §7's SnapshotParse: the text is not a well-formed
// snapshot document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("snapshot: parse: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }
