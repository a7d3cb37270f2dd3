package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/http/middleware"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"github.com/wheelmarket/listing-service/internal/usecase"
	"go.uber.org/zap"
)

const maxPublishFormMemory = 32 << 20 // 32 MiB

type ListingHandler struct {
	publisher *usecase.ListingPublisher
	search    *usecase.ListingSearch
	lifecycle *usecase.ListingLifecycle
	sellers   repository.SellerRepository
	logger    *zap.Logger
}

func NewListingHandler(
	publisher *usecase.ListingPublisher,
	search *usecase.ListingSearch,
	lifecycle *usecase.ListingLifecycle,
	sellers repository.SellerRepository,
	logger *zap.Logger,
) *ListingHandler {
	return &ListingHandler{
		publisher: publisher,
		search:    search,
		lifecycle: lifecycle,
		sellers:   sellers,
		logger:    logger,
	}
}

func (h *ListingHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *ListingHandler) writeError(w http.ResponseWriter, err error) {
	var verr *usecase.ValidationError
	var incomplete *usecase.IncompletePublishError

	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.As(err, &incomplete):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "publish incomplete, listing deactivated",
			"listing_id": incomplete.ListingID,
			"linked":     incomplete.Linked,
			"failures":   incomplete.Failures,
		})
	case errors.Is(err, usecase.ErrQuotaExceeded):
		h.writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, usecase.ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, map[string]any{"error": err.Error()})
	case errors.Is(err, usecase.ErrListingNotFound), errors.Is(err, usecase.ErrSellerNotFound),
		errors.Is(err, repository.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
}

// HandlePublish accepts a multipart form with the draft fields and 2-5 files
// under "images". Numeric parse failures leave the field at its zero value,
// which draft validation then reports.
func (h *ListingHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxPublishFormMemory); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	year, _ := strconv.Atoi(r.FormValue("year"))
	kmDriven, _ := strconv.Atoi(r.FormValue("km_driven"))
	price, _ := strconv.ParseFloat(r.FormValue("price"), 64)

	draft := entity.ListingDraft{
		Category:    entity.Category(r.FormValue("category")),
		Brand:       r.FormValue("brand"),
		Model:       r.FormValue("model"),
		Year:        year,
		KmDriven:    kmDriven,
		FuelType:    entity.FuelType(r.FormValue("fuel_type")),
		Price:       price,
		Location:    r.FormValue("location"),
		Description: r.FormValue("description"),
	}

	var images []entity.ImageFile
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			file, err := fh.Open()
			if err != nil {
				http.Error(w, "failed to read image "+fh.Filename, http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				http.Error(w, "failed to read image "+fh.Filename, http.StatusBadRequest)
				return
			}
			images = append(images, entity.ImageFile{Name: fh.Filename, Data: data})
		}
	}

	listing, err := h.publisher.Publish(r.Context(), sellerID, draft, images)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, listing)
}

func (h *ListingHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minPrice, _ := strconv.ParseFloat(q.Get("min_price"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("max_price"), 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	filters := entity.FilterSet{
		Keyword:  q.Get("keyword"),
		Category: q.Get("category"),
		Fuel:     q.Get("fuel"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Limit:    limit,
	}

	listings, err := h.search.Search(r.Context(), filters)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listings)
}

type listingDetailResponse struct {
	Listing *entity.Listing `json:"listing"`
	Seller  *sellerContact  `json:"seller,omitempty"`
}

type sellerContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	City  string `json:"city"`
}

func (h *ListingHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	listing, err := h.lifecycle.GetListing(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := listingDetailResponse{Listing: listing}
	if seller, sErr := h.sellers.GetByID(r.Context(), listing.SellerID); sErr == nil {
		resp.Seller = &sellerContact{Name: seller.Name, Phone: seller.Phone, City: seller.City}
	} else if !errors.Is(sErr, repository.ErrNotFound) {
		h.logger.Warn("failed to load seller contact", zap.String("listing_id", id), zap.Error(sErr))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type statusUpdateRequest struct {
	Active bool `json:"active"`
}

func (h *ListingHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	if req.Active {
		err = h.lifecycle.Activate(r.Context(), sellerID, id)
	} else {
		err = h.lifecycle.Deactivate(r.Context(), sellerID, id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.lifecycle.Delete(r.Context(), sellerID, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListingHandler) HandleMyListings(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	listings, err := h.lifecycle.ListBySeller(r.Context(), sellerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) HandleQuota(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	active, remaining, err := h.lifecycle.QuotaStatus(r.Context(), sellerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{
		"active":    active,
		"remaining": remaining,
		"limit":     entity.MaxActiveListings,
	})
}

func (h *ListingHandler) HandleGetSeller(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	seller, err := h.sellers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, usecase.ErrSellerNotFound)
			return
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, seller)
}
