package yatai

import (
	"fmt"
	"net/http"
)

func succeeded(code int) bool {
	return code >= 200 && code < 300
}

// summarize describes a failed call to yatai in one line.
func summarize(action string, code int) string {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return action + " is not permitted with this token"
	case code == http.StatusNotFound:
		return action + " found nothing on yatai"
	case code >= 400 && code < 500:
		return action + " is rejected by yatai"
	case code >= 500 && code < 600:
		return "yatai server error during " + action
	case code >= 300 && code < 400:
		return "yatai redirected " + action + " unexpectedly"
	default:
		return fmt.Sprintf("unexpected status %d during %s", code, action)
	}
}
