package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/alex-user-go/shipcompare/internal/api"
	"github.com/alex-user-go/shipcompare/internal/compare"
	"github.com/alex-user-go/shipcompare/internal/middleware"
	"github.com/alex-user-go/shipcompare/internal/ratelimit"
	"github.com/alex-user-go/shipcompare/internal/service"
)

// Handler serves the gateway's JSON endpoints over the service layer.
type Handler struct {
	svc     *service.Service
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// New creates a Handler.
func New(svc *service.Service, limiter *ratelimit.Limiter, logger *slog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		limiter: limiter,
		logger:  logger,
	}
}

// Register attaches all gateway routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /compare", h.CompareHandler)
	mux.HandleFunc("GET /compare/history", h.HistoryHandler)
	mux.HandleFunc("GET /compare/history/{id}", h.HistoryItemHandler)
	mux.HandleFunc("GET /retailers", h.RetailersHandler)
	mux.HandleFunc("GET /countries", h.CountriesHandler)
	mux.HandleFunc("GET /delivery-data", h.DeliveryDataHandler)
}

// CompareHandler runs a comparison and responds with the ranked view model.
func (h *Handler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	var req compare.ComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ranked, err := h.svc.CompareAndRank(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "compare failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// HistoryHandler lists stored comparisons.
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	items, err := h.svc.History(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "history fetch failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparisons": items})
}

// HistoryItemHandler replays one stored comparison through the ranking
// pipeline.
func (h *Handler) HistoryItemHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	ranked, err := h.svc.HistoryItemRanked(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, "history item fetch failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// RetailersHandler lists retailers, filtered by ?search= when present.
func (h *Handler) RetailersHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	var (
		retailers []compare.Retailer
		err       error
	)
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		retailers, err = h.svc.SearchRetailers(r.Context(), search)
	} else {
		retailers, err = h.svc.Retailers(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, r, "retailer fetch failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"retailers": retailers})
}

// CountriesHandler lists destination countries sorted by name for direct use
// in selection UIs.
func (h *Handler) CountriesHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	countries, err := h.svc.Countries(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "country fetch failed", err)
		return
	}
	sorted := make([]compare.Country, len(countries))
	copy(sorted, countries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"countries": sorted})
}

// DeliveryDataHandler lists raw delivery data rows.
func (h *Handler) DeliveryDataHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	q := r.URL.Query()
	rows, err := h.svc.DeliveryData(r.Context(), api.DeliveryDataFilters{
		RetailerID: q.Get("retailerId"),
		CountryID:  q.Get("countryId"),
		Method:     q.Get("method"),
	})
	if err != nil {
		h.writeServiceError(w, r, "delivery data fetch failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveryData": rows})
}

// allow applies per-client rate limiting.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request) bool {
	ip := ExtractIP(r)
	if h.limiter.Allow(ip) {
		return true
	}
	h.logger.Warn("rate limit exceeded", "request_id", middleware.RequestID(r.Context()), "ip", ip)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

// writeServiceError maps the error taxonomy onto HTTP statuses: validation
// errors to 400, auth failures to their own status, connectivity and shape
// problems to 502. Expected error kinds never crash the gateway.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		"request_id", middleware.RequestID(r.Context()),
		"error", err,
	)

	var validationErr compare.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Msg)
		return
	}
	var authErr api.AuthError
	if errors.As(err, &authErr) {
		writeError(w, authErr.Status, "session expired, log in again")
		return
	}
	var netErr api.NetworkError
	if errors.As(err, &netErr) {
		writeError(w, http.StatusBadGateway, "backend unreachable, check your connection")
		return
	}
	var shapeErr compare.ShapeError
	if errors.As(err, &shapeErr) {
		writeError(w, http.StatusBadGateway, "backend returned a malformed response")
		return
	}
	var apiErr api.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, "backend request failed")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}

// ExtractIP extracts the client IP, preferring proxy headers.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
