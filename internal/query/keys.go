package query

import (
	"sort"
	"strings"
	"time"

	"github.com/alex-user-go/shipcompare/internal/compare"
)

// Staleness windows per resource. Reference data changes rarely and gets the
// longest windows; the history list is the most volatile because any
// submitted comparison appends to it.
const (
	StaleCountries      = 30 * time.Minute
	StaleCountry        = 30 * time.Minute
	StaleRetailers      = 10 * time.Minute
	StaleRetailer       = 10 * time.Minute
	StaleRetailerSearch = 5 * time.Minute
	StaleComparison     = 5 * time.Minute
	StaleHistory        = 2 * time.Minute
	StaleHistoryItem    = 5 * time.Minute
)

// KeyHistory is the comparison history list key. It is the invalidation
// target of every successful comparison submission.
const KeyHistory = "comparison:history"

// KeyCountries is the countries list key.
const KeyCountries = "countries"

// KeyRetailers is the retailers list key.
const KeyRetailers = "retailers"

func KeyCountry(id string) string {
	return "countries:" + id
}

func KeyRetailer(id string) string {
	return "retailers:" + id
}

func KeyRetailerSearch(q string) string {
	return "retailers:search:" + q
}

func KeyHistoryItem(id string) string {
	return "comparison:history:" + id
}

// KeyComparison builds a canonical key for a comparison request: retailer IDs
// are deduplicated and sorted so that two requests naming the same set in a
// different order share one cache entry.
func KeyComparison(req compare.ComparisonRequest) string {
	ids := make([]string, 0, len(req.Retailers))
	seen := make(map[string]struct{}, len(req.Retailers))
	for _, id := range req.Retailers {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return "comparison:" + req.Country + ":" + strings.Join(ids, ",")
}
