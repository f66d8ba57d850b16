package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"charity/internal/domain"
	"charity/internal/donation"
	"charity/internal/middleware"
	"charity/internal/volunteer"
)

const maxJSONBody = 1 << 20

// App holds the services behind the HTTP surface.
type App struct {
	Donations  *donation.Service
	Volunteers *volunteer.Service
	// NotificationKey is the gateway server key used to check notification
	// signatures. Empty disables the notification endpoint.
	NotificationKey string
	// Ready reports dependency health for /readyz. Nil means always ready.
	Ready  func(r *http.Request) error
	Logger zerolog.Logger
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// fail writes err using the status of its domain kind. Internal failures are
// logged and replaced by a generic message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.Kind(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		if kind == "internal" || kind == "render_error" {
			a.error(w, status, "internal", "internal error")
			return
		}
	}
	a.error(w, status, kind, err.Error())
}

func statusForKind(kind string) int {
	switch kind {
	case "validation_error":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "invalid_state", "conflict", "token_mismatch":
		return http.StatusConflict
	case "forbidden":
		return http.StatusForbidden
	case "gateway_error":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("invalid payload: %v", err))
		return false
	}
	return true
}

// requireActor writes 401 and returns nil when the request is anonymous.
func (a *App) requireActor(w http.ResponseWriter, r *http.Request) *domain.Actor {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing authorization")
	}
	return actor
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
