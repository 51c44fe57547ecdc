package compare

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Ranked is a ComparisonResponse reordered for presentation: retailers with
// data sorted cheapest-first, each retailer's methods sorted cheapest-first,
// and retailers without data in a separate group in their input order.
type Ranked struct {
	Country      Country              `json:"country"`
	Results      []RetailerComparison `json:"results"`
	NoData       []RetailerComparison `json:"noData"`
	TotalResults int                  `json:"totalResults"`
}

// ParseCost extracts a numeric cost from free-form currency text by stripping
// every character that is not a digit or a decimal point. Text with nothing
// numeric left ("Free", "N/A", "") parses to 0 and therefore sorts as the
// cheapest option. That is deliberate policy inherited from the product, not
// an accident to correct here.
func ParseCost(cost string) float64 {
	var b strings.Builder
	for _, r := range cost {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return n
}

// minCost returns the minimum parsed cost across methods, or +Inf for an
// empty list so such a retailer sorts last.
func minCost(methods []DeliveryMethod) float64 {
	if len(methods) == 0 {
		return math.Inf(1)
	}
	min := ParseCost(methods[0].Cost)
	for _, m := range methods[1:] {
		if c := ParseCost(m.Cost); c < min {
			min = c
		}
	}
	return min
}

// Rank computes the deterministic presentation order of a normalized
// response. Both sorts are stable, so equal-cost entries keep their input
// order and ranking an already-ranked response is a no-op. Rank never fails:
// it is total over any well-formed response, including an empty one.
//
// The input is not mutated; methods slices are copied before sorting.
func Rank(resp *ComparisonResponse) Ranked {
	ranked := Ranked{
		Country:      resp.Country,
		TotalResults: resp.TotalResults,
	}

	for _, comp := range resp.Comparisons {
		c := comp
		c.DeliveryMethods = sortedMethods(comp.DeliveryMethods)
		if c.HasData {
			ranked.Results = append(ranked.Results, c)
		} else {
			ranked.NoData = append(ranked.NoData, c)
		}
	}

	sort.SliceStable(ranked.Results, func(i, j int) bool {
		return minCost(ranked.Results[i].DeliveryMethods) < minCost(ranked.Results[j].DeliveryMethods)
	})

	return ranked
}

// sortedMethods returns a copy of methods ordered ascending by parsed cost.
// The first element of the returned slice is the retailer's cheapest option.
func sortedMethods(methods []DeliveryMethod) []DeliveryMethod {
	out := make([]DeliveryMethod, len(methods))
	copy(out, methods)
	sort.SliceStable(out, func(i, j int) bool {
		return ParseCost(out[i].Cost) < ParseCost(out[j].Cost)
	})
	return out
}

// Cheapest returns the best-value method of a ranked retailer entry, the
// first method after sorting. ok is false when the retailer has no methods.
func (r RetailerComparison) Cheapest() (DeliveryMethod, bool) {
	if len(r.DeliveryMethods) == 0 {
		return DeliveryMethod{}, false
	}
	return r.DeliveryMethods[0], true
}
