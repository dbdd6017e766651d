package yatai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Summary    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s (status code = %d)", e.Summary, e.StatusCode)
	}
	return fmt.Sprintf("%s (status code = %d): %s", e.Summary, e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from yatai.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func checkResponse(resp *http.Response, action string) error {
	if succeeded(resp.StatusCode) {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Summary: summarize(action, resp.StatusCode)}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		apiErr.Detail = "cannot read server message: " + err.Error()
		return apiErr
	}
	apiErr.Detail = parseErrorMessage(body)
	return apiErr
}

func unmarshalJSONResponse[T any](resp *http.Response, action string) (*T, error) {
	if err := checkResponse(resp, action); err != nil {
		return nil, err
	}

	v := new(T)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, fmt.Errorf("decode response (status code = %d): %w", resp.StatusCode, err)
	}
	return v, nil
}

func parseErrorMessage(body []byte) string {
	var msg errorMessage
	if err := json.Unmarshal(body, &msg); err == nil {
		if msg.Error != "" {
			return msg.Error
		}
		if msg.Message != "" {
			return msg.Message
		}
	}
	return strings.TrimSpace(string(body))
}
