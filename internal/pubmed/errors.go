// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoContact is returned by NewClient when no contact email is configured.
// NCBI's E-utilities usage policy requires one on every request.
var ErrNoContact = errors.New("ncbi contact email is required (set ncbi.email or .secrets/ncbi-email)")

// ErrorClass classifies a failed efetch request.
type ErrorClass string

const (
	// ErrorClassNetwork covers transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient covers 4xx responses other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassRateLimit covers 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer covers 5xx responses.
	ErrorClassServer ErrorClass = "server"
)

// FetchError describes an efetch request that did not return a document.
type FetchError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("efetch %s error (status %d): %s: %v", e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("efetch %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
