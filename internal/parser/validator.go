package parser

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/code-animator/backend/internal/models"
)

//go:embed schema/plan.schema.json
var planSchema []byte

const planSchemaURL = "plan.schema.json"

// PlanSchema returns the raw JSON Schema plan documents are checked against.
func PlanSchema() []byte {
	return planSchema
}

// Validator checks plan documents against the embedded JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded plan schema.
func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(planSchema))
	if err != nil {
		return nil, fmt.Errorf("reading plan schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(planSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding plan schema: %w", err)
	}
	sch, err := c.Compile(planSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling plan schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// Validate checks a JSON document. Schema violations are returned as *ValidationError.
func (v *Validator) Validate(doc []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return invalid("", fmt.Sprintf("json syntax: %v", err))
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return invalid("", err.Error())
	}
	return &ValidationError{Issues: collectIssues(ve, nil)}
}

// collectIssues flattens the cause tree, keeping only leaf errors.
func collectIssues(ve *jsonschema.ValidationError, out []models.PlanIssue) []models.PlanIssue {
	if len(ve.Causes) == 0 {
		return append(out, models.PlanIssue{
			Path:   "/" + strings.Join(ve.InstanceLocation, "/"),
			Reason: leafReason(ve.Error()),
		})
	}
	for _, cause := range ve.Causes {
		out = collectIssues(cause, out)
	}
	return out
}

// leafReason drops the location prefix jsonschema puts in front of each message.
func leafReason(msg string) string {
	if i := strings.LastIndex(msg, ": "); i >= 0 && strings.HasPrefix(msg, "at '") {
		return msg[i+2:]
	}
	return msg
}
