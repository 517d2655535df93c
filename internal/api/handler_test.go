package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price_watcher/internal/domain"
	"price_watcher/internal/service"
)

type fakeBatch struct {
	report *domain.RunReport
	err    error
	calls  int
}

func (f *fakeBatch) Run(context.Context) (*domain.RunReport, error) {
	f.calls++
	return f.report, f.err
}

type fakeListings struct {
	listing   *domain.Listing
	snapshots []domain.ListingSnapshot
	events    []domain.ListingEvent
	err       error
}

func (f *fakeListings) RefreshListing(_ context.Context, id int64) (*domain.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listing, nil
}

func (f *fakeListings) Snapshots(context.Context, int64) ([]domain.ListingSnapshot, error) {
	return f.snapshots, f.err
}

func (f *fakeListings) Events(context.Context, int64) ([]domain.ListingEvent, error) {
	return f.events, f.err
}

func newTestRouter(batch BatchRunner, listings ListingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandler(batch, listings, "s3cret", logger), logger)
}

func do(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTriggerScrape_Unauthorized(t *testing.T) {
	batch := &fakeBatch{}
	r := newTestRouter(batch, &fakeListings{})

	for _, auth := range []string{"", "Bearer wrong", "s3cret", "Basic s3cret"} {
		w := do(r, http.MethodGet, "/api/cron/scrape", auth)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "auth %q", auth)
	}
	assert.Zero(t, batch.calls)
}

func TestTriggerScrape_OmitsEmptyErrors(t *testing.T) {
	batch := &fakeBatch{report: &domain.RunReport{Processed: 3, Total: 3}}
	r := newTestRouter(batch, &fakeListings{})

	w := do(r, http.MethodGet, "/api/cron/scrape", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["processed"])
	assert.NotContains(t, body, "errors")
}

func TestTriggerScrape_ReportsErrors(t *testing.T) {
	batch := &fakeBatch{report: &domain.RunReport{
		Processed: 2,
		Total:     3,
		Errors:    []string{"listing 2: fetch: timeout"},
	}}
	r := newTestRouter(batch, &fakeListings{})

	w := do(r, http.MethodGet, "/api/cron/scrape", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)

	var body scrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, 2, body.Processed)
	assert.Equal(t, []string{"listing 2: fetch: timeout"}, body.Errors)
}

func TestTriggerScrape_RunInProgress(t *testing.T) {
	r := newTestRouter(&fakeBatch{err: service.ErrRunInProgress}, &fakeListings{})

	w := do(r, http.MethodGet, "/api/cron/scrape", "Bearer s3cret")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerScrape_LoadFailure(t *testing.T) {
	r := newTestRouter(&fakeBatch{err: errors.New("load trackers: db down")}, &fakeListings{})

	w := do(r, http.MethodGet, "/api/cron/scrape", "Bearer s3cret")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTriggerScrape_EmptySecretRejectsEverything(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	batch := &fakeBatch{}
	r := NewRouter(NewHandler(batch, &fakeListings{}, "", logger), logger)

	w := do(r, http.MethodGet, "/api/cron/scrape", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, batch.calls)
}

func TestRefreshListing(t *testing.T) {
	checked := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := &domain.Listing{
		ID:            7,
		TrackerID:     3,
		URL:           "https://shop.example/p",
		CurrentPrice:  decimal.NewNullDecimal(decimal.RequireFromString("19.99")),
		IsAvailable:   true,
		LastCheckedAt: &checked,
	}

	tests := []struct {
		name     string
		path     string
		listings *fakeListings
		wantCode int
	}{
		{name: "ok", path: "/api/listings/7/refresh", listings: &fakeListings{listing: listing}, wantCode: http.StatusOK},
		{name: "non numeric id", path: "/api/listings/abc/refresh", listings: &fakeListings{}, wantCode: http.StatusBadRequest},
		{name: "zero id", path: "/api/listings/0/refresh", listings: &fakeListings{}, wantCode: http.StatusBadRequest},
		{name: "not found", path: "/api/listings/8/refresh", listings: &fakeListings{err: service.ErrListingNotFound}, wantCode: http.StatusNotFound},
		{
			name: "pipeline failure",
			path: "/api/listings/7/refresh",
			listings: &fakeListings{err: &service.ListingError{
				ListingID: 7, Stage: service.StageFetch, Err: errors.New("timeout"),
			}},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeBatch{}, tt.listings)
			w := do(r, http.MethodPost, tt.path, "")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRefreshListing_Body(t *testing.T) {
	listing := &domain.Listing{
		ID:           7,
		TrackerID:    3,
		CurrentPrice: decimal.NewNullDecimal(decimal.RequireFromString("19.99")),
		IsAvailable:  true,
	}
	r := newTestRouter(&fakeBatch{}, &fakeListings{listing: listing})

	w := do(r, http.MethodPost, "/api/listings/7/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, true, body["isAvailable"])
	assert.Equal(t, "19.99", body["currentPrice"])
}

func TestListSnapshots(t *testing.T) {
	snaps := []domain.ListingSnapshot{
		{ID: 1, ListingID: 7, Source: domain.SourceCron},
		{ID: 2, ListingID: 7, Source: domain.SourceManual},
	}
	r := newTestRouter(&fakeBatch{}, &fakeListings{snapshots: snaps})

	w := do(r, http.MethodGet, "/api/listings/7/snapshots", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ListingSnapshots []domain.ListingSnapshot `json:"listingSnapshots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.ListingSnapshots, 2)
	assert.Equal(t, domain.SourceManual, body.ListingSnapshots[1].Source)

	w = do(r, http.MethodGet, "/api/listings/x/snapshots", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEvents_EmptyIsArray(t *testing.T) {
	r := newTestRouter(&fakeBatch{}, &fakeListings{})

	w := do(r, http.MethodGet, "/api/listings/7/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"listingEvents":[]}`, w.Body.String())
}
