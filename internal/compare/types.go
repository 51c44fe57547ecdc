package compare

// Retailer is backend reference data; the client never mutates it.
type Retailer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// Country is backend reference data.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// DeliveryMethod is one shipping option a retailer offers to a country.
// Cost and Duration are free-form text as the backend stores them
// ("$12.50", "Free", "3-5 business days").
type DeliveryMethod struct {
	Method                string `json:"method"`
	Cost                  string `json:"cost"`
	Duration              string `json:"duration"`
	AdditionalNotes       string `json:"additionalNotes,omitempty"`
	Notes                 string `json:"notes,omitempty"` // legacy alias, always mirrors AdditionalNotes
	FreeShippingThreshold string `json:"freeShippingThreshold,omitempty"`
	Carrier               string `json:"carrier,omitempty"`
}

// RetailerComparison is one retailer's entry in a normalized response.
// HasData is true iff DeliveryMethods is non-empty.
type RetailerComparison struct {
	RetailerID      string           `json:"retailerId"`
	RetailerName    string           `json:"retailerName"`
	DeliveryMethods []DeliveryMethod `json:"deliveryMethods"`
	HasData         bool             `json:"hasData"`
}

// ComparisonResponse is the normalized, UI-ready view of one comparison.
// TotalResults always equals len(Comparisons).
type ComparisonResponse struct {
	Country      Country              `json:"country"`
	Comparisons  []RetailerComparison `json:"comparisons"`
	TotalResults int                  `json:"totalResults"`
}

// ComparisonRequest pairs a set of retailer IDs with one destination country.
type ComparisonRequest struct {
	Retailers []string `json:"retailers"`
	Country   string   `json:"country"`
}

// History is one normalized history list entry. The backend stores retailer
// IDs; RetailerNames is filled in by the service after lookup.
type History struct {
	ID            string   `json:"id"`
	CountryName   string   `json:"countryName"`
	RetailerNames []string `json:"retailerNames"`
	CreatedAt     string   `json:"createdAt"`
}

// Result is one per-retailer element of a backend comparison record.
type Result struct {
	Retailer struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"retailer"`
	Country Country          `json:"country"`
	Methods []DeliveryMethod `json:"methods"`
}

// Record is the backend's comparison envelope, shared by POST /compare
// responses and stored history items. Country here is a country *name*,
// not an ID.
type Record struct {
	ID        string   `json:"id"`
	Retailers []string `json:"retailers"`
	Country   string   `json:"country"`
	Results   []Result `json:"results"`
	CreatedAt string   `json:"createdAt"`
}
