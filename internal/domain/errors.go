package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports user-correctable input problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ExtractionError reports an intent oracle failure: transport, timeout or an
// unparseable reply.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("intent extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConflictError reports resources that are no longer in the expected state.
type ConflictError struct {
	Resource string
	IDs      []int64
	Reason   string
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		ids = append(ids, fmt.Sprint(id))
	}
	if len(ids) == 0 {
		return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Resource, strings.Join(ids, ", "), e.Reason)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// SignatureError reports a webhook payload whose signature did not verify.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid webhook signature: %v", e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
