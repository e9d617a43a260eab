// Package errkind classifies the error kinds named in the design's error
// handling section, so callers can switch on Kind(err) rather than on
// error strings.
package errkind

import "github.com/pkg/errors"

// Kind enumerates the classes of error the system can report.
type Kind int

const (
	// Other is the zero value: an error with no specific classification,
	// typically one wrapped from a lower layer (I/O, a matcher, etc).
	Other Kind = iota
	// DomainMismatch: a Coverage's domain does not match the store it was
	// compared or combined against.
	DomainMismatch
	// ConflictingVariant: two variants at the same low breakend have
	// intersecting coverage.
	ConflictingVariant
	// OutOfBoundsBreakpoint: low+span exceeds the source/journal length.
	OutOfBoundsBreakpoint
	// SerializationCorrupt: an on-disk RCMS file failed a structural check.
	SerializationCorrupt
	// SerializationVersion: an on-disk RCMS file's version is unsupported.
	SerializationVersion
	// SerializationIO: reading or writing an RCMS file failed at the I/O
	// layer.
	SerializationIO
	// MatcherFailure: a user-supplied matcher returned an error.
	MatcherFailure
)

func (k Kind) String() string {
	switch k {
	case DomainMismatch:
		return "DomainMismatch"
	case ConflictingVariant:
		return "ConflictingVariant"
	case OutOfBoundsBreakpoint:
		return "OutOfBoundsBreakpoint"
	case SerializationCorrupt:
		return "SerializationCorrupt"
	case SerializationVersion:
		return "SerializationVersion"
	case SerializationIO:
		return "SerializationIO"
	case MatcherFailure:
		return "MatcherFailure"
	default:
		return "Other"
	}
}

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Cause() error  { return e.err }
func (e *kindError) Unwrap() error { return e.err }

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &kindError{kind: kind, err: errors.Errorf(format, args...)}
}

// Wrap attaches kind to err, preserving err's message as the cause via
// github.com/pkg/errors.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrap(err, msg)}
}

// Of returns the Kind classification of err, or Other if err was not
// produced by New/Wrap in this package.
func Of(err error) Kind {
	var ke *kindError
	for err != nil {
		if k, ok := err.(*kindError); ok {
			ke = k
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if ke == nil {
		return Other
	}
	return ke.kind
}
