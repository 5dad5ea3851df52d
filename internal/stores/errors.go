// Package stores holds the in-memory mirrors of the gateway tables: the
// product catalog, per-user carts and per-user profiles. Every mutation goes
// to the gateway first and touches the mirror only on success.
package stores

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned by per-user operations called without a
// signed-in session. No remote call is made.
var ErrUnauthenticated = errors.New("user not authenticated")

// CompensationPolicy decides what SignUp does with an identity whose profile
// row could not be created.
type CompensationPolicy string

const (
	// CompensateNone surfaces the inconsistency and leaves the identity in place.
	CompensateNone CompensationPolicy = "none"
	// CompensateDeleteIdentity deletes the orphaned identity.
	CompensateDeleteIdentity CompensationPolicy = "delete_identity"
)

// ParseCompensationPolicy parses a configured policy name.
func ParseCompensationPolicy(s string) (CompensationPolicy, error) {
	switch CompensationPolicy(s) {
	case "", CompensateNone:
		return CompensateNone, nil
	case CompensateDeleteIdentity:
		return CompensateDeleteIdentity, nil
	}
	return "", fmt.Errorf("unknown sign-up compensation policy %q", s)
}

// PartialSignUpError reports an identity that was created without its
// profile row.
type PartialSignUpError struct {
	IdentityID string
	Policy     CompensationPolicy
	// Compensated is true when the identity was deleted again.
	Compensated bool
	Cause       error
	// CompensationErr is set when the compensation step itself failed.
	CompensationErr error
}

func (e *PartialSignUpError) Error() string {
	msg := fmt.Sprintf("identity %s created but profile insert failed: %v", e.IdentityID, e.Cause)
	switch {
	case e.CompensationErr != nil:
		msg += fmt.Sprintf(" (compensation failed: %v)", e.CompensationErr)
	case e.Compensated:
		msg += " (identity deleted)"
	}
	return msg
}

func (e *PartialSignUpError) Unwrap() []error {
	if e.CompensationErr != nil {
		return []error{e.Cause, e.CompensationErr}
	}
	return []error{e.Cause}
}
