package compare

import "fmt"

// MaxRetailersPerRequest caps how many retailers one comparison may cover.
const MaxRetailersPerRequest = 10

// Normalize converts a backend comparison record into the flat
// ComparisonResponse view model: one entry per retailer, uniform field
// names, HasData flags.
//
// Country is taken from the first result (every result in one record shares
// the same country; that is a backend contract, not re-verified here). When
// the record has no results, a placeholder country is synthesized from the
// record's country name with empty ID and code.
func Normalize(rec Record) (*ComparisonResponse, error) {
	if len(rec.Results) == 0 && rec.Country == "" {
		return nil, ShapeError{Reason: "record has neither results nor a country name"}
	}

	var country Country
	if len(rec.Results) > 0 {
		country = rec.Results[0].Country
	} else {
		country = Country{Name: rec.Country}
	}

	comparisons := make([]RetailerComparison, 0, len(rec.Results))
	for _, res := range rec.Results {
		methods := make([]DeliveryMethod, 0, len(res.Methods))
		for _, m := range res.Methods {
			nm := m
			// Consumers may read either name for the notes text.
			nm.Notes = m.AdditionalNotes
			methods = append(methods, nm)
		}
		comparisons = append(comparisons, RetailerComparison{
			RetailerID:      res.Retailer.ID,
			RetailerName:    res.Retailer.Name,
			DeliveryMethods: methods,
			HasData:         len(methods) > 0,
		})
	}

	return &ComparisonResponse{
		Country:      country,
		Comparisons:  comparisons,
		TotalResults: len(comparisons),
	}, nil
}

// NormalizeHistoryItem runs the same transform for a stored history record.
// History items share the comparison record shape, only the HTTP envelope
// differs, so this exists as a named entry point for callers of the history
// detail endpoint.
func NormalizeHistoryItem(rec Record) (*ComparisonResponse, error) {
	return Normalize(rec)
}

// ValidateRequest checks a comparison request before any network call:
// 1..MaxRetailersPerRequest unique retailer IDs and a non-empty country.
func ValidateRequest(req ComparisonRequest) error {
	if len(req.Retailers) == 0 {
		return ValidationError{Msg: "select at least one retailer"}
	}
	if len(req.Retailers) > MaxRetailersPerRequest {
		return ValidationError{Msg: fmt.Sprintf("at most %d retailers per comparison", MaxRetailersPerRequest)}
	}
	seen := make(map[string]struct{}, len(req.Retailers))
	for _, id := range req.Retailers {
		if id == "" {
			return ValidationError{Msg: "retailer id cannot be empty"}
		}
		if _, dup := seen[id]; dup {
			return ValidationError{Msg: fmt.Sprintf("duplicate retailer id %q", id)}
		}
		seen[id] = struct{}{}
	}
	if req.Country == "" {
		return ValidationError{Msg: "select a country"}
	}
	return nil
}
