package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RateLimitError is the 429 payload: which role's quota ran out and
// when its window resets.
type RateLimitError struct {
	Code           string    `json:"code"`
	Message        string    `json:"message"`
	LimitedRoleKey string    `json:"limited_role_key,omitempty"`
	ResetAt        time.Time `json:"reset_at"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
