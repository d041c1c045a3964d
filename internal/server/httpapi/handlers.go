// Package httpapi exposes the mirror service over HTTP with chi.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/go-chi/chi/v5"
)

// MirrorService is the subset of services.MirrorService the handlers need.
type MirrorService interface {
	PutImage(ctx context.Context, ownerID, id string, in api.Image) (api.PutImageResponse, error)
	MarkUploaded(ctx context.Context, ownerID, id string) error
	ListImages(ctx context.Context, ownerID, folderID string, limit, offset int) (api.ImagePage, error)
	DeleteImage(ctx context.Context, ownerID, id string) error
	PutFolder(ctx context.Context, ownerID, id string, in api.Folder) error
	ListFolders(ctx context.Context, ownerID string) (api.FolderList, error)
	DeleteFolder(ctx context.Context, ownerID, id string) error
}

// UserService is the subset of services.UserService the auth handlers need.
type UserService interface {
	Register(ctx context.Context, in api.Credentials) (api.AuthTokens, error)
	Login(ctx context.Context, in api.Credentials) (api.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (api.AuthTokens, error)
}

type Handler struct {
	svc   MirrorService
	users UserService
	log   logging.Logger
}

func NewHandler(svc MirrorService, users UserService, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{svc: svc, users: users, log: log}
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", common.ErrInvalidRecord, err))
		return
	}

	tokens, err := h.users.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokens)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", common.ErrInvalidRecord, err))
		return
	}

	tokens, err := h.users.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", common.ErrInvalidRecord, err))
		return
	}

	tokens, err := h.users.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) PutImage(w http.ResponseWriter, r *http.Request) {
	var in api.Image
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", common.ErrInvalidRecord, err))
		return
	}

	resp, err := h.svc.PutImage(r.Context(), OwnerIDFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) MarkUploaded(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkUploaded(r.Context(), OwnerIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.svc.ListImages(r.Context(), OwnerIDFromContext(r.Context()), q.Get("folder_id"), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteImage(r.Context(), OwnerIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PutFolder(w http.ResponseWriter, r *http.Request) {
	var in api.Folder
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", common.ErrInvalidRecord, err))
		return
	}

	if err := h.svc.PutFolder(r.Context(), OwnerIDFromContext(r.Context()), chi.URLParam(r, "id"), in); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListFolders(r.Context(), OwnerIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFolder(r.Context(), OwnerIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, r, err)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", common.ErrInvalidRecord, s)
	}
	return n, nil
}
