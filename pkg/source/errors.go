package source

import (
	"fmt"
	"net/http"
)

// ErrorClass classifies a failed batch request.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents an unreadable response body.
	ErrorClassDecode ErrorClass = "decode"
)

// StatusError is returned by HTTPFetcher when a batch request fails.
type StatusError struct {
	StatusCode int
	Class      ErrorClass
	Page       int
	Err        error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch source %s error (page %d, status %d): %v", e.Class, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("batch source %s error (page %d, status %d): %s",
		e.Class, e.Page, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status to an error class. 2xx and 3xx have none.
func classifyStatus(code int) ErrorClass {
	switch {
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
