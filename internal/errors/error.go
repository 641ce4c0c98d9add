package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryMisuse    Category = "misuse"
	CategoryTransport Category = "transport"
	CategoryRemote    Category = "remote"
	CategoryProtocol  Category = "protocol"
	CategoryCLI       Category = "cli"
)

// VangoError is a coded error. Code, Category, Message and DocURL come from
// the registry; Detail, Suggestion and Wrapped are filled in where the error
// is raised.
type VangoError struct {
	Code       string // Registered identifier, e.g. "E201"; empty for Newf errors
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
	Wrapped    error
}

// Error renders "code: message: detail: cause", skipping empty parts.
func (e *VangoError) Error() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{e.Code, e.Message, e.Detail} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if e.Wrapped != nil {
		parts = append(parts, e.Wrapped.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *VangoError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target describes this error. A target carrying a code
// matches on code; a target with only a category matches every error of
// that category.
func (e *VangoError) Is(target error) bool {
	t, ok := target.(*VangoError)
	if !ok || t == nil {
		return false
	}
	if t.Code != "" {
		return t.Code == e.Code
	}
	return t.Category != "" && t.Category == e.Category
}

// WithSuggestion adds a fix suggestion to the error.
func (e *VangoError) WithSuggestion(s string) *VangoError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *VangoError) WithDetail(d string) *VangoError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detailed explanation to the error.
func (e *VangoError) WithDetailf(format string, args ...any) *VangoError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *VangoError) Wrap(err error) *VangoError {
	e.Wrapped = err
	return e
}

// New creates a VangoError from a registered error code.
func New(code string) *VangoError {
	template, ok := registry[code]
	if !ok {
		return &VangoError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &VangoError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new VangoError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *VangoError {
	return &VangoError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Kind returns a code-less error that matches every error of the category
// under errors.Is.
func Kind(category Category) *VangoError {
	return &VangoError{Category: category, Message: string(category) + " error"}
}

// FromError wraps a standard error in a VangoError.
func FromError(err error, code string) *VangoError {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*VangoError); ok {
		return ve
	}
	return New(code).Wrap(err)
}

// find returns the first VangoError in err's chain that satisfies match.
func find(err error, match func(*VangoError) bool) *VangoError {
	for err != nil {
		if ve, ok := err.(*VangoError); ok && match(ve) {
			return ve
		}
		err = stderrors.Unwrap(err)
	}
	return nil
}

// Is reports whether err carries the given registered code anywhere in its chain.
func Is(err error, code string) bool {
	return find(err, func(ve *VangoError) bool { return ve.Code == code }) != nil
}

// CodeOf returns the code of the first coded VangoError in err's chain.
func CodeOf(err error) string {
	if ve := find(err, func(ve *VangoError) bool { return ve.Code != "" }); ve != nil {
		return ve.Code
	}
	return ""
}
