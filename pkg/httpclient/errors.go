package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/crispydelights/storefront/pkg/errors"
)

// DownstreamErrorResponse mirrors the httputil error envelope so that
// structured errors from peers keep their code and message.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError turns a non-2xx response into an error, consuming and
// closing the body. Call it only for non-2xx responses.
func ParseResponseError(resp *http.Response, peer string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", peer, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, peer)
	}

	return fmt.Errorf("%s returned status %d: %s", peer, resp.StatusCode, string(bodyBytes))
}

func mapDownstreamError(status int, code, message, peer string) error {
	qualified := fmt.Sprintf("%s: %s", peer, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(peer, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(code, qualified)
	case status == http.StatusUnprocessableEntity:
		return apperrors.Unprocessable(code, qualified)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualified)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", peer, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}
