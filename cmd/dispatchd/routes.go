package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrymomot/dispatchkit/pkg/httpserver"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
	"github.com/dmitrymomot/dispatchkit/pkg/requestid"
)

type otpService interface {
	SendOtp(ctx context.Context, phone, name string) (*messaging.Otp, *messaging.Message, error)
	ValidateOtp(ctx context.Context, phone, code string) bool
}

type notificationService interface {
	Create(ctx context.Context, p notifications.CreateParams) (*notifications.Notification, error)
	List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, ids ...string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string, ids ...string) error
}

type dispatcher interface {
	Send(ctx context.Context, req notifications.DispatchRequest) notifications.DispatchResults
}

type profileWriter interface {
	PutPushProfile(ctx context.Context, p notifications.PushProfile) error
}

type api struct {
	otps          otpService
	notifications notificationService
	dispatcher    dispatcher
	users         profileWriter
	webhook       http.Handler
	checks        []httpserver.Check
	corsOrigins   []string
	logger        *slog.Logger
}

func newRouter(a *api) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.RealIP, middleware.Recoverer)
	if len(a.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestid.Header},
			ExposedHeaders: []string{requestid.Header},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(a.logger, a.checks...))

	r.Method(http.MethodPost, "/webhooks/twilio/status", a.webhook)

	r.Post("/otp", a.sendOtp)
	r.Post("/otp/verify", a.verifyOtp)
	r.Post("/dispatch", a.dispatch)
	r.Post("/notifications", a.createNotification)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Put("/push-profile", a.putPushProfile)
		r.Get("/notifications", a.listNotifications)
		r.Post("/notifications/read", a.markRead)
		r.Delete("/notifications/{id}", a.deleteNotification)
	})
	return r
}

type sendOtpRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type otpResponse struct {
	OtpID     string `json:"otp_id"`
	ExpiresAt string `json:"expires_at"`
	MessageID string `json:"message_id"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
}

func (a *api) sendOtp(w http.ResponseWriter, r *http.Request) {
	var req sendOtpRequest
	if !a.decode(w, r, &req) {
		return
	}
	otp, msg, err := a.otps.SendOtp(r.Context(), req.Phone, req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, otpResponse{
		OtpID:     otp.ID,
		ExpiresAt: otp.ExpiresAt.UTC().Format(time.RFC3339),
		MessageID: msg.ID,
		Channel:   msg.Channel.String(),
		Status:    msg.Status.String(),
	})
}

type verifyOtpRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (a *api) verifyOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if !a.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": a.otps.ValidateOtp(r.Context(), req.Phone, req.Code)})
}

func (a *api) dispatch(w http.ResponseWriter, r *http.Request) {
	var req notifications.DispatchRequest
	if !a.decode(w, r, &req) {
		return
	}
	results := a.dispatcher.Send(r.Context(), req)
	status := http.StatusOK
	if len(results) > 0 && !results.AnySucceeded() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"results": results})
}

func (a *api) createNotification(w http.ResponseWriter, r *http.Request) {
	var req notifications.CreateParams
	if !a.decode(w, r, &req) {
		return
	}
	n, err := a.notifications.Create(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (a *api) putPushProfile(w http.ResponseWriter, r *http.Request) {
	var p notifications.PushProfile
	if !a.decode(w, r, &p) {
		return
	}
	p.UserID = chi.URLParam(r, "userID")
	if err := a.users.PutPushProfile(r.Context(), p); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()
	opts := notifications.ListOptions{OnlyUnread: q.Get("unread") == "true"}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, err := a.notifications.List(r.Context(), userID, opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	unread, err := a.notifications.CountUnread(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "unread": unread})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

func (a *api) markRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !a.decode(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "userID")
	var err error
	if req.All {
		err = a.notifications.MarkAllRead(r.Context(), userID)
	} else {
		err = a.notifications.MarkRead(r.Context(), userID, req.IDs...)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) deleteNotification(w http.ResponseWriter, r *http.Request) {
	err := a.notifications.Delete(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path), logger.Error(err))
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, messaging.ErrInvalidPhone),
		errors.Is(err, messaging.ErrEmptyContent),
		errors.Is(err, notifications.ErrMissingUserID),
		errors.Is(err, notifications.ErrMissingTitle),
		errors.Is(err, notifications.ErrMissingMessage):
		return http.StatusBadRequest
	case errors.Is(err, notifications.ErrNotificationNotFound),
		errors.Is(err, notifications.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
