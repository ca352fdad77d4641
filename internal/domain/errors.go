package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrImageProcessing    = errors.New("image processing failed")
	ErrPolicyViolation    = errors.New("blocked by safety policy")
	ErrAuthorization      = errors.New("provider authorization failed")
	ErrTimeout            = errors.New("generation timed out")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrRetryNotAllowed    = errors.New("retry not allowed")
)

// FailureKind is the persisted, user-facing classification of a failed run.
// It decides which remediation the client may offer (a prompt-rewrite retry
// is only available for FailurePolicy).
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureCredit  FailureKind = "insufficient_credit"
	FailureImage   FailureKind = "image_processing"
	FailurePolicy  FailureKind = "policy_violation"
	FailureAuth    FailureKind = "authorization"
	FailureTimeout FailureKind = "timeout"
	FailureGeneric FailureKind = "generic"
)

// KindForError maps a pipeline error onto its persisted failure kind.
func KindForError(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrInsufficientCredit):
		return FailureCredit
	case errors.Is(err, ErrImageProcessing):
		return FailureImage
	case errors.Is(err, ErrPolicyViolation):
		return FailurePolicy
	case errors.Is(err, ErrAuthorization):
		return FailureAuth
	case errors.Is(err, ErrTimeout):
		return FailureTimeout
	default:
		return FailureGeneric
	}
}
