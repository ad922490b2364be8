package httpclient

import (
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/linguahub/linguahub/pkg/errors"
)

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. The caller should only invoke this when
// resp.StatusCode indicates an error. The response body is fully consumed and
// closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	message := fmt.Sprintf("%s: status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(serviceName, string(bodyBytes))
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInput(message)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(message)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: message,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	default:
		return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))
	}
}
