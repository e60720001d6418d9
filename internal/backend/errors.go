package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies non-2xx backend responses into distinct user-facing
// causes.
type ErrorKind int

const (
	// KindGeneric covers every non-2xx status without a more specific class.
	KindGeneric ErrorKind = iota
	// KindOverloaded maps service-unavailable to retry-later guidance.
	KindOverloaded
	// KindTimeout maps gateway-timeout to reduce-size guidance.
	KindTimeout
)

// ProcessingError is a non-2xx response from the minutes backend.
type ProcessingError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
}

func (e *ProcessingError) Error() string {
	switch e.Kind {
	case KindOverloaded:
		return "the server is busy, please retry later"
	case KindTimeout:
		return "processing timed out, reduce the file size or pre-split the recording"
	}

	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("server error (HTTP %d)", e.StatusCode)
}

// StorageTransferError is a failed raw write to the signed storage URL.
// The transfer is never retried; the storage layer's status code is surfaced
// as-is.
type StorageTransferError struct {
	StatusCode int
	Status     string
}

func (e *StorageTransferError) Error() string {
	return fmt.Sprintf("storage upload failed: %s", e.Status)
}

// newProcessingError maps a non-2xx response to its error class. JSON bodies
// carry the message under "detail"; anything else is taken as raw text.
func newProcessingError(statusCode int, contentType string, body []byte) *ProcessingError {
	kind := KindGeneric
	switch statusCode {
	case http.StatusServiceUnavailable:
		kind = KindOverloaded
	case http.StatusGatewayTimeout:
		kind = KindTimeout
	}

	message := strings.TrimSpace(string(body))
	if strings.Contains(contentType, "application/json") {
		var payload struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
			message = payload.Detail
		}
	}

	return &ProcessingError{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    message,
	}
}
