package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/application"
)

// Handler is the HTTP adapter entrypoint for the public auth surface.
type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	// The gateway forwards the cookie as a header with an empty body, so a
	// missing body is fine here.
	var req application.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	token := req.RefreshToken
	if token == "" {
		token = r.Header.Get("X-Refresh-Token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token")
		return
	}

	resp, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	view, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	var req application.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	view, err := h.service.UpdateProfile(r.Context(), claims.UserID, req)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	resp, err := h.service.ListUsers(r.Context(), claims, application.ListUsersRequest{
		Limit:  limit,
		Offset: offset,
		Search: query.Get("search"),
	})
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
		return
	}
	view, err := h.service.GetUserByID(r.Context(), claims, userID)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) adminCreateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	var req application.AdminCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	view, err := h.service.AdminCreateUser(r.Context(), claims, req)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusCreated, view)
}

func (h *Handler) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
		return
	}
	var req application.AdminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	req.UserID = userID

	view, err := h.service.AdminUpdateUser(r.Context(), claims, req)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
		return
	}
	if err := h.service.AdminDeleteUser(r.Context(), claims, userID); err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeMessage(w, http.StatusOK, "user deleted")
}

func (h *Handler) bulkDeleteUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	var req application.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	resp, err := h.service.BulkDeleteUsers(r.Context(), claims, req)
	if err != nil {
		statusCode, code, message := mapDomainError(err)
		writeError(w, statusCode, code, message)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
