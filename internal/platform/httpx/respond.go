// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:     title,
		Status:    status,
		Detail:    detail,
		Retryable: status == http.StatusConflict || status == http.StatusServiceUnavailable,
	})
}

// DecodeJSON decodes JSON request body into the target struct, rejecting unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.Validationf("invalid request body: %v", err)
	}
	return nil
}

// Tenant returns the tenant resolved by middleware or writes a problem response.
func Tenant(w http.ResponseWriter, r *http.Request) (shared.Tenant, bool) {
	tenant, ok := shared.TenantFromContext(r.Context())
	if !ok {
		RespondError(w, shared.Configurationf("company and fiscal year not resolved"))
		return shared.Tenant{}, false
	}
	return tenant, true
}

// ParseID parses a positive integer identifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid id %q", raw)
	}
	return id, nil
}

// ParseDateParam parses an optional date query parameter in the given calendar.
func ParseDateParam(r *http.Request, name string, cal calendar.Calendar) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if cal == nil {
		cal = calendar.MustFor(calendar.Standard)
	}
	t, err := cal.Parse(raw)
	if err != nil {
		return nil, shared.Validationf("invalid %s date %q", name, raw)
	}
	return &t, nil
}

// ParseIntParam parses an optional integer query parameter, returning def when absent.
func ParseIntParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.Validationf("invalid %s %q", name, raw)
	}
	return v, nil
}

// ErrMissingParam builds a validation error for a required parameter.
func ErrMissingParam(name string) error {
	return shared.Validationf("%s is required", name)
}

// HeaderActorID optionally identifies the user behind a write for the audit trail.
const HeaderActorID = "X-Actor-ID"

// ActorID returns the acting user id or zero when the header is absent or malformed.
func ActorID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.Header.Get(HeaderActorID), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
