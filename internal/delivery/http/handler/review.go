package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Pesokrava/review_widget/internal/delivery/http/middleware"
	"github.com/Pesokrava/review_widget/internal/delivery/http/request"
	"github.com/Pesokrava/review_widget/internal/delivery/http/response"
	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/usecase/review"
)

const missingParameters = "Missing required parameters"

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service        *review.Service
	defaultWebsite string
	logger         *logger.Logger
}

// NewReviewHandler creates a new review handler. defaultWebsite is used by the embed routes
// when the request does not name a website.
func NewReviewHandler(service *review.Service, defaultWebsite string, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:        service,
		defaultWebsite: defaultWebsite,
		logger:         log,
	}
}

// SubmitReviewRequest represents the request body for submitting a review
type SubmitReviewRequest struct {
	ID        string `json:"id" example:"1718000000000"`
	ProductID string `json:"productId" example:"sku-42"`
	Website   string `json:"website" example:"ui-app.com"`
	Name      string `json:"name" example:"Ana"`
	Rating    int    `json:"rating" example:"5"`
	Title     string `json:"title" example:"Great"`
	Content   string `json:"content" example:"Does what it says"`
	Date      string `json:"date" example:"2025-06-10T08:15:00.000Z"`
}

func (req SubmitReviewRequest) toDomain() (*domain.Review, error) {
	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			return nil, &domain.ValidationError{Field: "date", Reason: "must be an ISO 8601 timestamp"}
		}
		date = parsed.UTC()
	}

	return &domain.Review{
		ID:        req.ID,
		ProductID: req.ProductID,
		Website:   req.Website,
		Name:      req.Name,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   req.Content,
		Date:      date,
	}, nil
}

// Submit handles POST /api/reviews
// @Summary Submit a review
// @Description Store a review. The review is visible to the next read of its partition.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param review body SubmitReviewRequest true "Review"
// @Success 201 {object} response.WriteResult "Review stored"
// @Failure 400 {object} response.WriteResult "Invalid review"
// @Failure 409 {object} response.WriteResult "Review id already stored"
// @Failure 503 {object} response.WriteResult "Store unavailable"
// @Router /api/reviews [post]
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rev, err := req.toDomain()
	if err != nil {
		h.handleWriteError(w, err)
		return
	}

	if err := h.service.SubmitReview(r.Context(), rev); err != nil {
		h.handleWriteError(w, err)
		return
	}

	response.Created(w)
}

// List handles GET /api/reviews
// @Summary List reviews of a partition
// @Description Reviews of one product on one website. A store failure yields an empty list and the X-Reviews-Degraded header.
// @Tags Reviews
// @Produce json
// @Param productId query string true "Product ID"
// @Param website query string true "Website"
// @Param filter query string false "Exact rating 1-5, or all" default(all)
// @Param sort query string false "newest, oldest, highest or lowest" default(newest)
// @Success 200 {array} domain.Review
// @Failure 400 {object} response.ErrorBody "Missing required parameters"
// @Router /api/reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, request.GetQuery(r, "productId"), request.GetQuery(r, "website"))
}

// Stats handles GET /api/reviews/stats
// @Summary Review stats of a partition
// @Description Count and average rating rounded to one decimal. A store failure yields zeros and the X-Reviews-Degraded header.
// @Tags Reviews
// @Produce json
// @Param productId query string true "Product ID"
// @Param website query string true "Website"
// @Success 200 {object} domain.ReviewStats
// @Failure 400 {object} response.ErrorBody "Missing required parameters"
// @Router /api/reviews/stats [get]
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, request.GetQuery(r, "productId"), request.GetQuery(r, "website"))
}

// EmbedList handles GET /embed/{productId}/reviews
// @Summary List reviews for the embedded widget
// @Tags Embed
// @Produce json
// @Param productId path string true "Product ID"
// @Param website query string false "Website, defaults to the configured embed website"
// @Param filter query string false "Exact rating 1-5, or all" default(all)
// @Param sort query string false "newest, oldest, highest or lowest" default(newest)
// @Success 200 {array} domain.Review
// @Failure 400 {object} response.ErrorBody "Missing required parameters"
// @Router /embed/{productId}/reviews [get]
func (h *ReviewHandler) EmbedList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, request.GetPathParam(r, "productId"), request.GetQueryDefault(r, "website", h.defaultWebsite))
}

// EmbedStats handles GET /embed/{productId}/stats
// @Summary Review stats for the embedded widget
// @Tags Embed
// @Produce json
// @Param productId path string true "Product ID"
// @Param website query string false "Website, defaults to the configured embed website"
// @Success 200 {object} domain.ReviewStats
// @Failure 400 {object} response.ErrorBody "Missing required parameters"
// @Router /embed/{productId}/stats [get]
func (h *ReviewHandler) EmbedStats(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, request.GetPathParam(r, "productId"), request.GetQueryDefault(r, "website", h.defaultWebsite))
}

func (h *ReviewHandler) list(w http.ResponseWriter, r *http.Request, productID, website string) {
	if productID == "" || website == "" {
		response.Error(w, http.StatusBadRequest, missingParameters)
		return
	}

	result, err := h.service.QueryReviews(
		r.Context(),
		productID,
		website,
		request.GetQuery(r, "filter"),
		request.GetQuery(r, "sort"),
	)
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	markDegraded(w, result.Degraded)
	response.JSON(w, http.StatusOK, result.Reviews)
}

func (h *ReviewHandler) stats(w http.ResponseWriter, r *http.Request, productID, website string) {
	if productID == "" || website == "" {
		response.Error(w, http.StatusBadRequest, missingParameters)
		return
	}

	result, err := h.service.GetReviewStats(r.Context(), productID, website)
	if err != nil {
		h.handleReadError(w, err)
		return
	}

	markDegraded(w, result.Degraded)
	response.JSON(w, http.StatusOK, result.ReviewStats)
}

func markDegraded(w http.ResponseWriter, degraded bool) {
	if degraded {
		w.Header().Set(middleware.DegradedHeader, "true")
	}
}

// handleWriteError maps submit errors to HTTP responses
func (h *ReviewHandler) handleWriteError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.Failure(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		response.Failure(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Failure(w, http.StatusConflict, "Review already exists")
	case errors.Is(err, domain.ErrStoreUnavailable):
		response.Failure(w, http.StatusServiceUnavailable, "Failed to save review")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Failure(w, http.StatusInternalServerError, "Internal server error")
	}
}

// handleReadError maps the few errors a read can return
func (h *ReviewHandler) handleReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		response.Error(w, http.StatusBadRequest, missingParameters)
		return
	}
	h.logger.Error("Internal error in review handler", err)
	response.Error(w, http.StatusInternalServerError, "Internal server error")
}
