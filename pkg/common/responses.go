package common

import (
	"encoding/json"
	"net/http"

	apperrors "refgraph-backend/pkg/errors"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries error details to the client.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RespondJSON sends a JSON response in the standard envelope.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondError sends an error response.
func RespondError(w http.ResponseWriter, status int, errType, message string) {
	response := APIResponse{
		Success: false,
		Error: &ErrorInfo{
			Type:    errType,
			Message: message,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondAppError maps an application error onto the wire format. Unknown
// error values are reported as internal without leaking detail.
func RespondAppError(w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		RespondError(w, appErr.HTTPStatus, string(appErr.Type), appErr.Message)
		return
	}
	RespondError(w, http.StatusInternalServerError, string(apperrors.ErrorTypeInternal), "internal error")
}
