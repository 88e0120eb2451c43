// Package response defines the JSON envelope returned by the API.
package response

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "The request could not be processed. Please check your input.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var DuplicateShortCodeResponse = Response{
	Status:  StatusError,
	Error:   "Duplicate Short Code",
	Message: "The short code already exists. Please choose a different one.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

type validationError struct {
	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
	Rule  string `json:"rule,omitempty"`
	Issue string `json:"issue"`
}

// ValidationErrorResponse shapes a validator error into the envelope, listing
// each violated rule under details.
func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "Some fields in your request are invalid. Please check the details.",
	}

	for _, vErr := range getValidationErrors(err) {
		resp.Details = append(resp.Details, vErr)
	}

	return resp
}

// RuleViolationResponse shapes a single domain validation failure into the
// envelope, naming the violated rule.
func RuleViolationResponse(field, rule, issue string) Response {
	return Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "Some fields in your request are invalid. Please check the details.",
		Details: []any{
			validationError{
				Field: field,
				Rule:  rule,
				Issue: issue,
			},
		},
	}
}

func getValidationErrors(err error) []validationError {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	errs := make([]validationError, 0, len(vErrs))

	for _, vErr := range vErrs {
		e := validationError{
			Field: vErr.Field(),
			Value: vErr.Value(),
		}

		switch vErr.Tag() {
		case "required":
			e.Issue = "This field is required."
		case "url":
			e.Issue = "Invalid url."
		default:
			e.Issue = fmt.Sprintf("Failed on the '%s' rule.", vErr.Tag())
		}

		errs = append(errs, e)
	}

	return errs
}
