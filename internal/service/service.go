// Package service is the typed surface over the query cache and the backend
// client. Every cacheable read goes through here so the key catalogue and the
// invalidation rules live in exactly one place.
package service

import (
	"context"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/alex-user-go/shipcompare/internal/api"
	"github.com/alex-user-go/shipcompare/internal/compare"
	"github.com/alex-user-go/shipcompare/internal/obs"
	"github.com/alex-user-go/shipcompare/internal/query"
)

// retailerNameMemoSize bounds the id-to-name memo used when rendering
// history entries.
const retailerNameMemoSize = 512

// Service binds the backend client, the query cache, and the normalizer.
type Service struct {
	backend *api.Client
	cache   *query.Cache
	names   *expirable.LRU[string, string]
	metrics *obs.Metrics
	logger  *slog.Logger
}

// New creates a Service. metrics may be nil (CLI use).
func New(backend *api.Client, cache *query.Cache, metrics *obs.Metrics, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		cache:   cache,
		names:   expirable.NewLRU[string, string](retailerNameMemoSize, nil, query.StaleRetailer),
		metrics: metrics,
		logger:  logger,
	}
}

// Compare validates and submits a comparison request, returning the
// normalized response. Identical requests within the staleness window are
// served from cache. A submission that actually reached the backend creates
// a history row server-side, so it invalidates the cached history list.
func (s *Service) Compare(ctx context.Context, req compare.ComparisonRequest) (*compare.ComparisonResponse, error) {
	if err := compare.ValidateRequest(req); err != nil {
		return nil, err
	}

	submitted := false
	resp, hit, err := query.Fetch(ctx, s.cache, query.KeyComparison(req), query.StaleComparison,
		func(ctx context.Context) (*compare.ComparisonResponse, error) {
			rec, err := s.backend.Compare(ctx, req)
			if err != nil {
				return nil, err
			}
			submitted = true
			return compare.Normalize(*rec)
		})
	s.observe("comparison", hit, err)
	if err != nil {
		return nil, err
	}
	if submitted {
		s.cache.Invalidate(query.KeyHistory)
	}
	return resp, nil
}

// CompareAndRank is Compare followed by the ranking pass.
func (s *Service) CompareAndRank(ctx context.Context, req compare.ComparisonRequest) (*compare.Ranked, error) {
	resp, err := s.Compare(ctx, req)
	if err != nil {
		return nil, err
	}
	ranked := compare.Rank(resp)
	return &ranked, nil
}

// History lists stored comparisons with retailer IDs resolved to names.
func (s *Service) History(ctx context.Context) ([]compare.History, error) {
	records, hit, err := query.Fetch(ctx, s.cache, query.KeyHistory, query.StaleHistory,
		func(ctx context.Context) ([]compare.Record, error) {
			return s.backend.History(ctx)
		})
	s.observe("history", hit, err)
	if err != nil {
		return nil, err
	}

	items := make([]compare.History, 0, len(records))
	for _, rec := range records {
		items = append(items, compare.History{
			ID:            rec.ID,
			CountryName:   rec.Country,
			RetailerNames: s.resolveNames(ctx, rec.Retailers),
			CreatedAt:     rec.CreatedAt,
		})
	}
	return items, nil
}

// HistoryItem fetches one stored comparison and runs it through the same
// normalization pipeline as a live comparison.
func (s *Service) HistoryItem(ctx context.Context, id string) (*compare.ComparisonResponse, error) {
	if id == "" {
		return nil, compare.ValidationError{Msg: "history id cannot be empty"}
	}
	resp, hit, err := query.Fetch(ctx, s.cache, query.KeyHistoryItem(id), query.StaleHistoryItem,
		func(ctx context.Context) (*compare.ComparisonResponse, error) {
			rec, err := s.backend.HistoryByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return compare.NormalizeHistoryItem(*rec)
		})
	s.observe("history_item", hit, err)
	return resp, err
}

// HistoryItemRanked is HistoryItem followed by the ranking pass.
func (s *Service) HistoryItemRanked(ctx context.Context, id string) (*compare.Ranked, error) {
	resp, err := s.HistoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	ranked := compare.Rank(resp)
	return &ranked, nil
}

// Retailers lists all retailers.
func (s *Service) Retailers(ctx context.Context) ([]compare.Retailer, error) {
	retailers, hit, err := query.Fetch(ctx, s.cache, query.KeyRetailers, query.StaleRetailers,
		func(ctx context.Context) ([]compare.Retailer, error) {
			return s.backend.Retailers(ctx)
		})
	s.observe("retailers", hit, err)
	return retailers, err
}

// SearchRetailers lists retailers matching a non-empty query. Debouncing
// rapid input is the caller's job; the search here only gates on emptiness.
func (s *Service) SearchRetailers(ctx context.Context, q string) ([]compare.Retailer, error) {
	if q == "" {
		return nil, compare.ValidationError{Msg: "search query cannot be empty"}
	}
	retailers, hit, err := query.Fetch(ctx, s.cache, query.KeyRetailerSearch(q), query.StaleRetailerSearch,
		func(ctx context.Context) ([]compare.Retailer, error) {
			return s.backend.SearchRetailers(ctx, q)
		})
	s.observe("retailer_search", hit, err)
	return retailers, err
}

// Retailer fetches one retailer by ID.
func (s *Service) Retailer(ctx context.Context, id string) (*compare.Retailer, error) {
	r, hit, err := query.Fetch(ctx, s.cache, query.KeyRetailer(id), query.StaleRetailer,
		func(ctx context.Context) (*compare.Retailer, error) {
			return s.backend.RetailerByID(ctx, id)
		})
	s.observe("retailer", hit, err)
	return r, err
}

// Countries lists all destination countries.
func (s *Service) Countries(ctx context.Context) ([]compare.Country, error) {
	countries, hit, err := query.Fetch(ctx, s.cache, query.KeyCountries, query.StaleCountries,
		func(ctx context.Context) ([]compare.Country, error) {
			return s.backend.Countries(ctx)
		})
	s.observe("countries", hit, err)
	return countries, err
}

// Country fetches one country by ID.
func (s *Service) Country(ctx context.Context, id string) (*compare.Country, error) {
	c, hit, err := query.Fetch(ctx, s.cache, query.KeyCountry(id), query.StaleCountry,
		func(ctx context.Context) (*compare.Country, error) {
			return s.backend.CountryByID(ctx, id)
		})
	s.observe("country", hit, err)
	return c, err
}

// DeliveryData lists raw delivery data rows. Not in the cache key catalogue;
// it is an admin surface and always read fresh.
func (s *Service) DeliveryData(ctx context.Context, filters api.DeliveryDataFilters) ([]api.DeliveryData, error) {
	rows, err := s.backend.DeliveryData(ctx, filters)
	if err != nil {
		s.metrics.IncBackendError(api.ErrorCategory(err))
	}
	return rows, err
}

// resolveNames maps retailer IDs to display names through a bounded memo.
// The backend stores IDs on history rows; an ID that cannot be resolved is
// shown as-is rather than failing the whole listing.
func (s *Service) resolveNames(ctx context.Context, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := s.names.Get(id); ok {
			names = append(names, name)
			continue
		}
		r, err := s.Retailer(ctx, id)
		if err != nil || r == nil || r.Name == "" {
			if err != nil {
				s.logger.Debug("retailer name lookup failed", "retailer_id", id, "error", err)
			}
			names = append(names, id)
			continue
		}
		s.names.Add(id, r.Name)
		names = append(names, r.Name)
	}
	return names
}

func (s *Service) observe(resource string, hit bool, err error) {
	s.metrics.IncCache(resource, hit)
	if err != nil {
		s.metrics.IncBackendError(api.ErrorCategory(err))
	}
}
