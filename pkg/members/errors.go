package members

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAccessDenied is returned when the class shutter or the reflection
	// guard refuses a class or member.
	ErrAccessDenied = errors.New("members: access denied")
	// ErrMemberNotFound is returned when a name has no entry after every
	// fallback.
	ErrMemberNotFound = errors.New("members: member not found")
	// ErrInvalidAssignment is returned when writing to a method, a
	// constructor or a property without a setter.
	ErrInvalidAssignment = errors.New("members: invalid assignment target")
	// ErrCoercion is returned when a value cannot be converted to the
	// target type or the write fails for another reason.
	ErrCoercion = errors.New("members: coercion failed")
	// ErrInconsistent reports two incompatible entries under one name.
	ErrInconsistent = errors.New("members: inconsistent member table")
)

// MemberError describes a failed operation on a member. It matches every
// error in Kinds with errors.Is and unwraps to Err.
type MemberError struct {
	Class  string // binary name, e.g. "java.lang.String"
	Member string
	Kinds  []error
	Err    error
}

func (e *MemberError) Error() string {
	var b strings.Builder
	b.WriteString(e.Class)
	if e.Member != "" {
		b.WriteByte('.')
		b.WriteString(e.Member)
	}
	if len(e.Kinds) > 0 {
		kinds := make([]string, len(e.Kinds))
		for i, k := range e.Kinds {
			kinds[i] = strings.TrimPrefix(k.Error(), "members: ")
		}
		fmt.Fprintf(&b, ": %s", strings.Join(kinds, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return "members: " + b.String()
}

func (e *MemberError) Is(target error) bool {
	for _, k := range e.Kinds {
		if k == target {
			return true
		}
	}
	return false
}

func (e *MemberError) Unwrap() error { return e.Err }

func memberError(class, member string, cause error, kinds ...error) *MemberError {
	return &MemberError{Class: class, Member: member, Kinds: kinds, Err: cause}
}
