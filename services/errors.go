package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a submission failure for response mapping.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindDecode
	KindStorage
	KindPersistence
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindStorage:
		return "storage"
	case KindPersistence:
		return "persistence"
	case KindConfiguration:
		return "configuration"
	}
	return "unknown"
}

// Signature payload failures. Their text is safe to show to the signer.
var (
	ErrMalformedDataURL = errors.New("Invalid base64 image format")
	ErrUnsupportedMime  = errors.New("Unsupported signature image type")
	ErrPayloadTooLarge  = errors.New("Signature file too large")
	ErrCorruptImage     = errors.New("Failed to create image from data")
	ErrInvalidSVG       = errors.New("Invalid SVG content")
	ErrNoFormatsSaved   = errors.New("Failed to save signature in any format")
)

// SubmissionError is the single error type returned across the submission flow.
type SubmissionError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Details []string
	Err     error
}

func (e *SubmissionError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "" && e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", e.Message, e.Err)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString("]")
	}
	return b.String()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first SubmissionError in err's chain.
func KindOf(err error) ErrorKind {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func validationError(details []string) error {
	return &SubmissionError{Kind: KindValidation, Op: "validate", Message: "Validation failed", Details: details}
}

func decodeError(op string, err error) error {
	return &SubmissionError{Kind: KindDecode, Op: op, Err: err}
}

func storageError(op, message string, err error) error {
	return &SubmissionError{Kind: KindStorage, Op: op, Message: message, Err: err}
}

func persistenceError(op, message string, err error) error {
	return &SubmissionError{Kind: KindPersistence, Op: op, Message: message, Err: err}
}

func configurationError(op, message string, err error) error {
	return &SubmissionError{Kind: KindConfiguration, Op: op, Message: message, Err: err}
}

var decodeSentinels = []error{
	ErrMalformedDataURL,
	ErrUnsupportedMime,
	ErrPayloadTooLarge,
	ErrCorruptImage,
	ErrInvalidSVG,
	ErrNoFormatsSaved,
}

// DecodeMessage returns the signer-facing text for a signature payload failure.
func DecodeMessage(err error) string {
	for _, sentinel := range decodeSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrMalformedDataURL.Error()
}
