package conntrack

import "fmt"

// ValidationError is the taxonomy type for the Get-operation-only request
// validation failures spec.md §7 names: missing parameters, or an
// incomplete field set for one direction.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("conntrack: invalid get request: %s", e.Reason)
}
