// Package errdefs defines the error taxonomy shared by the graph model,
// codec, session and transport layers.
package errdefs

import (
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeDecode             = "DECODE_ERROR"
	CodeValidationRejected = "VALIDATION_REJECTED"
	CodeTransportFailure   = "TRANSPORT_FAILURE"
	CodeSaveInFlight       = "SAVE_IN_FLIGHT"
	CodeStaleResponse      = "STALE_RESPONSE"
	CodeNotPersisted       = "NOT_PERSISTED"
)

var (
	ErrNotFound = apperrors.New("not found", apperrors.CategoryBadInput).
			WithTextCode(CodeNotFound)
	ErrDecode = apperrors.New("malformed workflow payload", apperrors.CategoryValidation).
			WithTextCode(CodeDecode)
	ErrValidationRejected = apperrors.New("value rejected", apperrors.CategoryValidation).
				WithTextCode(CodeValidationRejected)
	ErrTransportFailure = apperrors.New("collaborator request failed", apperrors.CategoryExternal).
				WithTextCode(CodeTransportFailure)
	ErrSaveInFlight = apperrors.New("a save is already in progress", apperrors.CategoryConflict).
			WithTextCode(CodeSaveInFlight)
	ErrStaleResponse = apperrors.New("response superseded by a newer load", apperrors.CategoryConflict).
				WithTextCode(CodeStaleResponse)
	ErrNotPersisted = apperrors.New("workflow has not been saved yet", apperrors.CategoryBadInput).
			WithTextCode(CodeNotPersisted)
)

func clone(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// NotFound reports an absent node, edge or record.
func NotFound(kind string, id any) error {
	return clone(ErrNotFound, fmt.Sprintf("%s not found: %v", kind, id), nil, map[string]any{
		"kind": kind,
		"id":   fmt.Sprint(id),
	})
}

// Decode reports an inconsistent persisted payload.
func Decode(message string, metadata map[string]any) error {
	return clone(ErrDecode, message, nil, metadata)
}

// Rejected reports a value refused by a schema constraint.
func Rejected(message string, metadata map[string]any) error {
	return clone(ErrValidationRejected, message, nil, metadata)
}

// Transport wraps a collaborator failure. message should carry the
// collaborator's own explanation when one is available.
func Transport(op, message string, source error, metadata map[string]any) error {
	meta := map[string]any{"operation": op}
	for k, v := range metadata {
		meta[k] = v
	}
	if message == "" && source != nil {
		message = source.Error()
	}
	return clone(ErrTransportFailure, fmt.Sprintf("%s: %s", op, message), source, meta)
}

// SaveInFlight rejects a save issued while another one is outstanding.
func SaveInFlight() error {
	return clone(ErrSaveInFlight, "", nil, nil)
}

// Stale reports a response discarded because a newer load superseded it.
func Stale(op string, generation uint64) error {
	return clone(ErrStaleResponse, "", nil, map[string]any{
		"operation":  op,
		"generation": generation,
	})
}

// NotPersisted rejects operations that need a durable workflow id.
func NotPersisted(op string) error {
	return clone(ErrNotPersisted, fmt.Sprintf("%s: workflow has not been saved yet", op), nil, nil)
}

// Code returns the text code of err, or "" for errors outside the taxonomy.
func Code(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// Message returns the message of err without category decoration, or ""
// for errors outside the taxonomy.
func Message(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.Message
	}
	return ""
}

// Metadata returns the metadata attached to err, if any.
func Metadata(err error) map[string]any {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.Metadata
	}
	return nil
}

// IsNotFound reports whether err names a missing node, edge or record.
func IsNotFound(err error) bool { return Code(err) == CodeNotFound }

// IsDecode reports whether err came from decoding a persisted workflow.
func IsDecode(err error) bool { return Code(err) == CodeDecode }

// IsValidationRejected reports whether err is a rejected edit or payload.
func IsValidationRejected(err error) bool { return Code(err) == CodeValidationRejected }

// IsTransportFailure reports whether err came from a failed collaborator call.
func IsTransportFailure(err error) bool { return Code(err) == CodeTransportFailure }

// IsSaveInFlight reports whether err rejected a save while another was outstanding.
func IsSaveInFlight(err error) bool { return Code(err) == CodeSaveInFlight }

// IsStale reports whether err discarded a response superseded by a newer load.
func IsStale(err error) bool { return Code(err) == CodeStaleResponse }

// IsNotPersisted reports whether err needed a workflow that was never saved.
func IsNotPersisted(err error) bool { return Code(err) == CodeNotPersisted }
