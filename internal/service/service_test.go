package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/shipcompare/internal/api"
	"github.com/alex-user-go/shipcompare/internal/compare"
	"github.com/alex-user-go/shipcompare/internal/query"
)

type staticTokens struct{}

func (staticTokens) Token() string { return "test-token" }
func (staticTokens) Invalidate()   {}

// fakeBackend is a minimal in-process backend with request counters, so tests
// can assert which calls were served from cache.
type fakeBackend struct {
	srv *httptest.Server

	compareCalls  atomic.Int32
	historyCalls  atomic.Int32
	retailerCalls atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/compare", func(w http.ResponseWriter, r *http.Request) {
		fb.compareCalls.Add(1)
		var req compare.ComparisonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"comparison": map[string]any{
			"id":        "cmp-1",
			"retailers": req.Retailers,
			"country":   "Germany",
			"results": []map[string]any{
				{
					"retailer": map[string]string{"id": req.Retailers[0], "name": "Amazon"},
					"country":  map[string]string{"id": req.Country, "name": "Germany", "code": "DE"},
					"methods": []map[string]string{
						{"method": "Standard", "cost": "$5.00", "duration": "3-5 days"},
					},
				},
			},
			"createdAt": "2026-08-29T10:00:00Z",
		}})
	})
	mux.HandleFunc("GET /api/compare/history", func(w http.ResponseWriter, r *http.Request) {
		fb.historyCalls.Add(1)
		writeJSON(w, map[string]any{"comparisons": []map[string]any{
			{"id": "h1", "retailers": []string{"r1", "ghost"}, "country": "Germany", "results": []any{}, "createdAt": "2026-08-28T12:00:00Z"},
		}})
	})
	mux.HandleFunc("GET /api/retailers/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.retailerCalls.Add(1)
		id := r.PathValue("id")
		if id == "ghost" {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"retailer": map[string]string{"id": id, "name": "Amazon"}})
	})
	mux.HandleFunc("GET /api/retailers", func(w http.ResponseWriter, r *http.Request) {
		retailers := []map[string]string{
			{"id": "r1", "name": "Amazon"},
			{"id": "r2", "name": "Zalando"},
		}
		if q := r.URL.Query().Get("search"); q != "" {
			filtered := retailers[:0]
			for _, rr := range retailers {
				if strings.Contains(strings.ToLower(rr["name"]), strings.ToLower(q)) {
					filtered = append(filtered, rr)
				}
			}
			retailers = filtered
		}
		writeJSON(w, map[string]any{"retailers": retailers})
	})
	mux.HandleFunc("GET /api/countries", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"countries": []map[string]string{
			{"id": "c1", "name": "Germany", "code": "DE"},
		}})
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestService(t *testing.T, fb *fakeBackend) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.New(fb.srv.URL+"/api", 5*time.Second, staticTokens{}, logger)
	cache := query.New()
	t.Cleanup(cache.Close)
	return New(client, cache, nil, logger)
}

func TestService_CompareNormalizesAndCaches(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	req := compare.ComparisonRequest{Retailers: []string{"r2", "r1"}, Country: "c1"}
	resp, err := svc.Compare(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Germany", resp.Country.Name)
	require.Len(t, resp.Comparisons, 1)
	assert.True(t, resp.Comparisons[0].HasData)
	assert.Equal(t, 1, resp.TotalResults)

	// Same retailer set in a different order is the same cache key.
	_, err = svc.Compare(context.Background(), compare.ComparisonRequest{Retailers: []string{"r1", "r2"}, Country: "c1"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fb.compareCalls.Load(), "identical request within the staleness window must not resubmit")
}

func TestService_CompareValidation(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	tests := []struct {
		name string
		req  compare.ComparisonRequest
	}{
		{"no retailers", compare.ComparisonRequest{Country: "c1"}},
		{"no country", compare.ComparisonRequest{Retailers: []string{"r1"}}},
		{"too many retailers", compare.ComparisonRequest{
			Retailers: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"},
			Country:   "c1",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Compare(context.Background(), tt.req)
			var verr compare.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
	assert.Equal(t, int32(0), fb.compareCalls.Load(), "invalid requests must not reach the backend")
}

func TestService_CompareInvalidatesHistory(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	_, err := svc.History(context.Background())
	require.NoError(t, err)
	_, err = svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fb.historyCalls.Load(), "second History should be a cache hit")

	_, err = svc.Compare(context.Background(), compare.ComparisonRequest{Retailers: []string{"r1"}, Country: "c1"})
	require.NoError(t, err)

	_, err = svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fb.historyCalls.Load(), "a submitted comparison must invalidate the history list")
}

func TestService_CacheHitDoesNotInvalidateHistory(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	req := compare.ComparisonRequest{Retailers: []string{"r1"}, Country: "c1"}
	_, err := svc.Compare(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.History(context.Background())
	require.NoError(t, err)

	// Served from cache; nothing was submitted, so history stays cached.
	_, err = svc.Compare(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fb.historyCalls.Load())
}

func TestService_HistoryResolvesRetailerNames(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	items, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Germany", items[0].CountryName)
	// r1 resolves to its display name, the unknown ID falls back to itself.
	assert.Equal(t, []string{"Amazon", "ghost"}, items[0].RetailerNames)
}

func TestService_SearchRetailers(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	_, err := svc.SearchRetailers(context.Background(), "")
	var verr compare.ValidationError
	require.ErrorAs(t, err, &verr)

	retailers, err := svc.SearchRetailers(context.Background(), "ama")
	require.NoError(t, err)
	require.Len(t, retailers, 1)
	assert.Equal(t, "Amazon", retailers[0].Name)
}

func TestService_HistoryItemValidation(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	_, err := svc.HistoryItem(context.Background(), "")
	var verr compare.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestService_CompareAndRank(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newTestService(t, fb)

	ranked, err := svc.CompareAndRank(context.Background(), compare.ComparisonRequest{Retailers: []string{"r1"}, Country: "c1"})
	require.NoError(t, err)
	require.Len(t, ranked.Results, 1)
	cheapest, ok := ranked.Results[0].Cheapest()
	require.True(t, ok)
	assert.Equal(t, "$5.00", cheapest.Cost)
}
