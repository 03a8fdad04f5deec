package middleware

import (
	"encoding/json"
	"net/http"
)

type errorEnvelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	ErrorCode string      `json:"error_code,omitempty"`
}

// writeJSONError writes a failed envelope with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Message: msg, ErrorCode: code})
}
