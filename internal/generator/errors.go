package generator

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

var (
	// ErrTagInvalidRequest marks requests rejected before calling the model.
	ErrTagInvalidRequest = goerr.NewTag("invalid_request")
	// ErrTagAPI marks errors returned by the Gemini API itself.
	ErrTagAPI = goerr.NewTag("api_error")
	// ErrTagMalformed marks responses that are empty or not JSON.
	ErrTagMalformed = goerr.NewTag("malformed_response")
	// ErrTagSchema marks JSON responses that are not a valid plan.
	ErrTagSchema = goerr.NewTag("invalid_plan")
)

// UserMessage renders a generation failure as the single sentence shown to users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("The AI API returned an error: %s (Code: %d)", apiErr.Message, apiErr.Code)
	case goerr.HasTag(err, ErrTagInvalidRequest):
		return rootCause(err).Error()
	case goerr.HasTag(err, ErrTagMalformed):
		return fmt.Sprintf("The AI returned a malformed response. This can be a temporary issue. Please try again. Error: %s", rootCause(err).Error())
	}

	msg := rootCause(err).Error()
	if msg == "" {
		return "An unknown error occurred while communicating with the AI."
	}
	return fmt.Sprintf("Failed to generate or parse animation plan: %s", msg)
}

// rootCause strips goerr wrappers and returns the first foreign error, or the
// innermost goerr error if there is none.
func rootCause(err error) error {
	for {
		ge, ok := err.(*goerr.Error)
		if !ok {
			return err
		}
		next := ge.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}

// ErrorType returns a short label for err suitable for metrics and logs.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	var apiErr genai.APIError
	switch {
	case errors.As(err, &apiErr), goerr.HasTag(err, ErrTagAPI):
		return "api_error"
	case goerr.HasTag(err, ErrTagInvalidRequest):
		return "invalid_request"
	case goerr.HasTag(err, ErrTagMalformed):
		return "malformed_response"
	case goerr.HasTag(err, ErrTagSchema):
		return "invalid_plan"
	}
	return "unknown"
}
