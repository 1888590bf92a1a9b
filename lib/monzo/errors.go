// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// APIError represents a non-2xx response from the Monzo REST API.
// Monzo returns structured JSON error bodies with a dotted code (e.g.
// "unauthorized.bad_access_token") and a human-readable message.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Code is Monzo's dotted error code. Empty if the body was not
	// parseable.
	Code string

	// Message is the human-readable error description.
	Message string

	// retryAfter is the server-requested backoff from the Retry-After
	// header, when present. Consumed by the client's retry loop.
	retryAfter time.Duration
}

func (err *APIError) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("monzo: HTTP %d: %s: %s", err.StatusCode, err.Code, err.Message)
	}
	return fmt.Sprintf("monzo: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsNotFound reports whether err is a Monzo API 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsUnauthorized reports whether err is a Monzo API 401 or 403
// response. These indicate an expired or revoked credential; the
// caller (not this client) owns re-authorization.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == 401 || apiError.StatusCode == 403
}

// IsRateLimited reports whether err is a Monzo API 429 response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 429
}

// IsTransient reports whether err is a Monzo API 5xx response, i.e. a
// server-side failure worth retrying.
func IsTransient(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode >= 500
}

// parseAPIError builds an APIError from a status code and response
// body. Unparseable bodies become the message verbatim.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wireError) == nil && (wireError.Code != "" || wireError.Message != "") {
		apiError.Code = wireError.Code
		apiError.Message = wireError.Message
	} else {
		apiError.Message = string(body)
	}

	return apiError
}
