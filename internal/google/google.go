// Package google wraps the Google Docs and Sheets APIs behind small
// clients authenticated with a service account credentials file.
package google

import "fmt"

// Error is the generic failure kind for Google API operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("google: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }
