package location

import (
	"errors"
	"fmt"
)

// Authorization failures carry distinct sentinels so the API layer can
// tell "enable sharing in settings" apart from "you're not in that
// group".
var (
	// ErrSharingNotEnabled: the caller has zero enabled sharing
	// preferences for the festival. Position reports fail closed.
	ErrSharingNotEnabled = errors.New("location sharing is not enabled for any group")

	// ErrNotGroupMember: preference writes require membership in the
	// target group.
	ErrNotGroupMember = errors.New("not a member of this group")
)

// ValidationError rejects a single out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
