package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter mounts the mirror API.
//
// Routes:
//
//	GET    /api/ping                 public connectivity check
//	POST   /api/register             public, create a mirror account
//	POST   /api/login                public, exchange credentials for tokens
//	POST   /api/refresh              public, rotate a refresh token
//	PUT    /api/images/{id}          upsert metadata, returns presigned URLs
//	POST   /api/images/{id}/uploaded mark the payload as uploaded
//	GET    /api/images               page of the owner's images
//	DELETE /api/images/{id}          delete image and its object
//	PUT    /api/folders/{id}         upsert folder
//	GET    /api/folders              list folders
//	DELETE /api/folders/{id}         delete an empty folder
func NewRouter(h *Handler, secretKey []byte, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(WithRequestLogging(logger))
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.Get(api.PathPing, h.Ping)
	r.Post(api.PathRegister, h.Register)
	r.Post(api.PathLogin, h.Login)
	r.Post(api.PathRefresh, h.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(secretKey))

		r.Route(api.PathImages, func(r chi.Router) {
			r.Get("/", h.ListImages)
			r.Put("/{id}", h.PutImage)
			r.Post("/{id}/uploaded", h.MarkUploaded)
			r.Delete("/{id}", h.DeleteImage)
		})

		r.Route(api.PathFolders, func(r chi.Router) {
			r.Get("/", h.ListFolders)
			r.Put("/{id}", h.PutFolder)
			r.Delete("/{id}", h.DeleteFolder)
		})
	})

	return r
}
