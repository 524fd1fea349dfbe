package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat means the reference could not be classified into a known format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnreadableSource means the format is supported but the bytes could not be obtained.
	ErrUnreadableSource = errors.New("unreadable source")
	// ErrMalformedData means the bytes were obtained but are invalid for the claimed format.
	ErrMalformedData = errors.New("malformed data")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns a stable label for the pipeline error kind carried by err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrMalformedData):
		return "malformed_data"
	case errors.Is(err, ErrUnreadableSource):
		return "unreadable_source"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

// WrapTemporary marks err as a transient failure of the given kind.
func WrapTemporary(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w (%w): %w", operation, kind, ErrTemporary, err)
}

// KindFromLabel is the inverse of KindOf for labels that name a sentinel.
func KindFromLabel(label string) (error, bool) {
	switch label {
	case "unsupported_format":
		return ErrUnsupportedFormat, true
	case "malformed_data":
		return ErrMalformedData, true
	case "unreadable_source":
		return ErrUnreadableSource, true
	case "invalid_input":
		return ErrInvalidInput, true
	default:
		return nil, false
	}
}
