// Package parser decodes and validates animation plan documents.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/code-animator/backend/internal/models"
)

// ErrInvalidPlan is returned (wrapped) for any document that is not a well-formed plan.
var ErrInvalidPlan = errors.New("invalid animation plan")

// Parser converts one document format into canonical plan JSON.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser can handle the document.
	CanParse(filename string, data []byte) bool
	// ToJSON re-encodes the document as JSON without interpreting it.
	ToJSON(data []byte) ([]byte, error)
}

// ValidationError lists every problem found in a rejected document.
type ValidationError struct {
	Issues []models.PlanIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Path == "" {
			parts = append(parts, issue.Reason)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPlan, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPlan
}

func invalid(path, reason string) error {
	return &ValidationError{Issues: []models.PlanIssue{{Path: path, Reason: reason}}}
}

// Decoder turns raw documents into validated plans.
type Decoder struct {
	registry  *Registry
	validator *Validator
}

// NewDecoder creates a decoder backed by the given registry and validator.
func NewDecoder(registry *Registry, validator *Validator) *Decoder {
	return &Decoder{registry: registry, validator: validator}
}

var defaultDecoder, defaultDecoderErr = newDefaultDecoder()

func newDefaultDecoder() (*Decoder, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	return NewDecoder(GetGlobalRegistry(), v), nil
}

// Decode parses data with the global registry and the embedded schema.
func Decode(filename string, data []byte) (*models.AnimationPlan, error) {
	if defaultDecoderErr != nil {
		return nil, fmt.Errorf("schema setup: %w", defaultDecoderErr)
	}
	return defaultDecoder.Decode(filename, data)
}

// Decode detects the document format, validates it against the plan schema and
// decodes it.
func (d *Decoder) Decode(filename string, data []byte) (*models.AnimationPlan, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, invalid("", "document is empty")
	}

	p, err := d.registry.FindParser(filename, data)
	if err != nil {
		return nil, invalid("", err.Error())
	}
	return d.DecodeWith(p, data)
}

// DecodeWith decodes data using a specific parser.
func (d *Decoder) DecodeWith(p Parser, data []byte) (*models.AnimationPlan, error) {
	doc, err := p.ToJSON(data)
	if err != nil {
		return nil, invalid("", fmt.Sprintf("%s syntax: %v", p.Name(), err))
	}
	if err := d.validator.Validate(doc); err != nil {
		return nil, err
	}

	var plan models.AnimationPlan
	if err := json.Unmarshal(doc, &plan); err != nil {
		return nil, invalid("", err.Error())
	}
	if plan.Elements == nil {
		plan.Elements = []models.Element{}
	}
	if plan.Steps == nil {
		plan.Steps = []models.Step{}
	}
	return &plan, nil
}
