package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Error codes in the error envelope.
const (
	codeBadRequest        = "BAD_REQUEST"
	codeInvalidPeriod     = "INVALID_PERIOD"
	codeInvalidDateFormat = "INVALID_DATE_FORMAT"
	codeJobAlreadyRunning = "JOB_ALREADY_RUNNING"
	codeNotFound          = "NOT_FOUND"
	codeInternalError     = "INTERNAL_ERROR"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]apiError{"error": {Code: code, Message: message}})
}

func parsePageSize(r *http.Request) (int, int) {
	page := 0
	size := 20
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			size = n
		}
	}
	return page, size
}
