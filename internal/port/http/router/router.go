package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/wheelmarket/listing-service/internal/port/http/handler"
	"github.com/wheelmarket/listing-service/internal/port/http/middleware"
	"go.uber.org/zap"
)

func New(h *handler.ListingHandler, jwtSecret string, logger *zap.Logger) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.Logger(logger))

	// Seller-only routes.
	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, logger))

		r.Post("/api/listings", h.HandlePublish)
		r.Patch("/api/listings/{id}/status", h.HandleUpdateStatus)
		r.Delete("/api/listings/{id}", h.HandleDelete)
		r.Get("/api/sellers/me/listings", h.HandleMyListings)
		r.Get("/api/sellers/me/quota", h.HandleQuota)
	})

	// Public buyer routes.
	mux.Get("/api/listings", h.HandleSearch)
	mux.Get("/api/listings/{id}", h.HandleGetListing)
	mux.Get("/api/sellers/{id}", h.HandleGetSeller)

	return mux
}
