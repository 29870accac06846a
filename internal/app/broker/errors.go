// internal/app/broker/errors.go
package broker

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError reports a missing or malformed required argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidArgumentError reports an argument that is well-formed but not
// allowed, like a user changing their own role.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// GroupSizeLimitExceededError reports a failed quota check. Remaining is
// how many members the group could still take, so callers can retry with
// a smaller batch.
type GroupSizeLimitExceededError struct {
	GroupID   primitive.ObjectID
	Requested int
	Remaining int
}

func (e *GroupSizeLimitExceededError) Error() string {
	return fmt.Sprintf("group %s size limit exceeded: requested %d, %d remaining",
		e.GroupID.Hex(), e.Requested, e.Remaining)
}

// DeactivationNotAvailableError reports that the deactivation gate
// (creator / time window / malformed-group override) did not pass.
type DeactivationNotAvailableError struct {
	GroupID primitive.ObjectID
	Reason  string
}

func (e *DeactivationNotAvailableError) Error() string {
	return fmt.Sprintf("group %s cannot be deactivated: %s", e.GroupID.Hex(), e.Reason)
}

// InvalidTokenError reports a join-code mismatch or an expired token.
type InvalidTokenError struct {
	GroupID primitive.ObjectID
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("join code for group %s is invalid or expired", e.GroupID.Hex())
}
