package engine

import "strings"

// ErrorKind is the closed classification of a work item failure. Adding a
// kind requires updating every switch over ErrorKind; the compiler and the
// exhaustive String method keep the set closed.
type ErrorKind int

const (
	// KindValidation marks caller errors: malformed or missing input, or a
	// referenced entity that does not exist. Never retried.
	KindValidation ErrorKind = iota

	// KindTransient marks infrastructure or service hiccups that may
	// resolve on retry. The classifier defaults to this kind.
	KindTransient

	// KindPermanent marks quota, permission and authorization failures.
	// Never retried.
	KindPermanent

	// KindPartial marks a workflow-level mixed outcome. It is assigned by
	// the aggregator when some but not all items succeeded; Classify never
	// produces it.
	KindPartial
)

// String returns the stable wire name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Retryable reports whether failures of this kind consume retry budget.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient
}

// Code returns the error code recorded on job and item failures of this kind.
func (k ErrorKind) Code() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindTransient:
		return "transient_error"
	case KindPermanent:
		return "permanent_error"
	case KindPartial:
		return "partial_failure"
	default:
		return "unknown_error"
	}
}

// permanentMarkers match quota, permission and authorization failures.
// Checked before validation markers so "quota exceeded for invalid plan"
// style messages land on the non-retryable permanent side.
var permanentMarkers = []string{
	"quota",
	"permission",
	"unauthorized",
	"forbidden",
	"authorization",
	"api key",
	"access denied",
	"content blocked",
}

// validationMarkers match malformed or missing caller input.
var validationMarkers = []string{
	"not found",
	"does not exist",
	"invalid",
	"malformed",
	"missing",
	"required",
	"cannot be empty",
}

// Classify maps a raw failure to an ErrorKind by case-insensitive
// substring matching over the error message. Anything unrecognized,
// including timeouts and connection failures, defaults to KindTransient:
// the classifier is deliberately permissive toward retry.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return KindPermanent
		}
	}

	for _, marker := range validationMarkers {
		if strings.Contains(msg, marker) {
			return KindValidation
		}
	}

	return KindTransient
}
