package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoUsableChunks    = errors.New("document has no paragraphs long enough to index")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrEmptyCompletion   = errors.New("generation service returned empty content")
	ErrMissingDocumentID = errors.New("document id is required")
)

// RoutingError is returned when no agent matched and the fallback path failed too
type RoutingError struct {
	Err error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing failed: %v", e.Err)
}

func (e *RoutingError) Unwrap() error { return e.Err }

// RetrievalError wraps embedding and knowledge store failures
type RetrievalError struct {
	Op  string // "knowledge search failed", "failed to add document", ...
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError wraps text-generation failures
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError lists the required template fields that were absent or blank
type ValidationError struct {
	TemplateID string
	Missing    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %s: missing required fields: %s", e.TemplateID, strings.Join(e.Missing, ", "))
}

// TemplateNotFoundError is returned for an unknown template id
type TemplateNotFoundError struct {
	TemplateID string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("document template not found: %s", e.TemplateID)
}

// OrchestrationError is the single error kind surfaced by Coordinator.Route
type OrchestrationError struct {
	Agent string
	Err   error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("consultation via %s failed: %v", e.Agent, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// ErrorCode maps an error to a stable code for transport layers.
// The most specific kind in the chain wins.
func ErrorCode(err error) string {
	var (
		validationErr *ValidationError
		notFoundErr   *TemplateNotFoundError
		retrievalErr  *RetrievalError
		routingErr    *RoutingError
		generationErr *GenerationError
		orchErr       *OrchestrationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return "VALIDATION_ERROR"
	case errors.As(err, &notFoundErr):
		return "TEMPLATE_NOT_FOUND"
	case errors.Is(err, ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.As(err, &retrievalErr):
		return "RETRIEVAL_ERROR"
	case errors.As(err, &routingErr):
		return "ROUTING_ERROR"
	case errors.As(err, &generationErr):
		return "GENERATION_ERROR"
	case errors.As(err, &orchErr):
		return "ORCHESTRATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
