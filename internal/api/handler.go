package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"price_watcher/internal/domain"
	"price_watcher/internal/service"
)

type BatchRunner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

type ListingService interface {
	RefreshListing(ctx context.Context, listingID int64) (*domain.Listing, error)
	Snapshots(ctx context.Context, listingID int64) ([]domain.ListingSnapshot, error)
	Events(ctx context.Context, listingID int64) ([]domain.ListingEvent, error)
}

type Handler struct {
	batch      BatchRunner
	listings   ListingService
	cronSecret string
	logger     *slog.Logger
}

func NewHandler(batch BatchRunner, listings ListingService, cronSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		batch:      batch,
		listings:   listings,
		cronSecret: cronSecret,
		logger:     logger.With("component", "api"),
	}
}

type scrapeResponse struct {
	OK        bool     `json:"ok"`
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors,omitempty"`
}

// TriggerScrape runs a full batch synchronously. The caller must present
// the cron secret as a bearer token.
func (h *Handler) TriggerScrape(c *gin.Context) {
	if !h.authorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	report, err := h.batch.Run(c.Request.Context())
	if errors.Is(err, service.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("scrape run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, scrapeResponse{
		OK:        true,
		Processed: report.Processed,
		Total:     report.Total,
		Errors:    report.Errors,
	})
}

func (h *Handler) authorized(header string) bool {
	if h.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

func (h *Handler) RefreshListing(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing id is required"})
		return
	}

	listing, err := h.listings.RefreshListing(c.Request.Context(), id)
	if errors.Is(err, service.ErrListingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}
	if err != nil {
		h.logger.Error("refresh listing failed", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	snapshots, err := h.listings.Snapshots(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list snapshots failed", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"listingSnapshots": snapshots})
}

func (h *Handler) ListEvents(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	events, err := h.listings.Events(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list events failed", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if events == nil {
		events = []domain.ListingEvent{}
	}

	c.JSON(http.StatusOK, gin.H{"listingEvents": events})
}

func listingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("listingId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
