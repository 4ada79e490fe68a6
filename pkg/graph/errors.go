package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"github.com/praetorian-inc/approles/pkg/types"
)

// StatusCode extracts the HTTP status from a Graph error, or 0 when the
// error did not come from a response.
func StatusCode(err error) int {
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		return odataErr.ResponseStatusCode
	}
	var apiErr *abstractions.ApiError
	if errors.As(err, &apiErr) {
		return apiErr.ResponseStatusCode
	}
	return 0
}

func isNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// isTransient reports failures worth retrying: throttling, server errors and
// per-request timeouts
func isTransient(err error) bool {
	code := StatusCode(err)
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// ErrorMessage returns the Graph error message when there is one
func ErrorMessage(err error) string {
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		if main := odataErr.GetErrorEscaped(); main != nil && main.GetMessage() != nil {
			return *main.GetMessage()
		}
	}
	return err.Error()
}

func classify(err error, kind, id string) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %s: %w", kind, id, err)
}
