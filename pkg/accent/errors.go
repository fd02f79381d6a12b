package accent

import (
	"errors"
	"fmt"
)

// Kind classifies a failed analysis by the stage that failed.
type Kind int

const (
	KindUnknown Kind = iota
	UserInputError
	DownloadFailure
	DecodeFailure
	FeatureFailure
	ModelUnavailable
	PredictionFailure
)

func (k Kind) String() string {
	switch k {
	case UserInputError:
		return "user_input"
	case DownloadFailure:
		return "download"
	case DecodeFailure:
		return "decode"
	case FeatureFailure:
		return "features"
	case ModelUnavailable:
		return "model_unavailable"
	case PredictionFailure:
		return "prediction"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a failure tagged with its Kind. Op names the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("accent: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("accent: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind, so callers can test with
// errors.Is(err, &accent.Error{Kind: accent.DecodeFailure}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Wrap tags err with kind. It returns nil when err is nil and leaves errors
// that already carry a Kind untouched.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a tagged error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
