package compare

import (
	"reflect"
	"testing"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		cost string
		want float64
	}{
		{"$12.50", 12.5},
		{"Free", 0},
		{"", 0},
		{"N/A", 0},
		{"€3.95", 3.95},
		{"¥450", 450},
		{"12", 12},
		{"about $7 or so", 7},
		{"...", 0},
	}

	for _, tt := range tests {
		t.Run(tt.cost, func(t *testing.T) {
			if got := ParseCost(tt.cost); got != tt.want {
				t.Errorf("ParseCost(%q) = %v, want %v", tt.cost, got, tt.want)
			}
		})
	}
}

func methodsOf(costs ...string) []DeliveryMethod {
	methods := make([]DeliveryMethod, 0, len(costs))
	for i, c := range costs {
		methods = append(methods, DeliveryMethod{Method: string(rune('a' + i)), Cost: c, Duration: "n/a"})
	}
	return methods
}

func TestRank_RetailerOrder(t *testing.T) {
	// A has methods [20, 15], B has [10], C has no data:
	// ranked order must be [B, A] with A's methods reordered to [15, 20],
	// and C only ever appears in the no-data group.
	resp := &ComparisonResponse{
		Country: Country{ID: "c1", Name: "Portugal", Code: "PT"},
		Comparisons: []RetailerComparison{
			{RetailerID: "A", RetailerName: "A", DeliveryMethods: methodsOf("$20.00", "$15.00"), HasData: true},
			{RetailerID: "B", RetailerName: "B", DeliveryMethods: methodsOf("$10.00"), HasData: true},
			{RetailerID: "C", RetailerName: "C", DeliveryMethods: []DeliveryMethod{}, HasData: false},
		},
		TotalResults: 3,
	}

	ranked := Rank(resp)

	if len(ranked.Results) != 2 {
		t.Fatalf("expected 2 ranked retailers, got %d", len(ranked.Results))
	}
	if ranked.Results[0].RetailerID != "B" || ranked.Results[1].RetailerID != "A" {
		t.Errorf("ranked order = [%s, %s], want [B, A]", ranked.Results[0].RetailerID, ranked.Results[1].RetailerID)
	}

	costs := []string{ranked.Results[1].DeliveryMethods[0].Cost, ranked.Results[1].DeliveryMethods[1].Cost}
	if costs[0] != "$15.00" || costs[1] != "$20.00" {
		t.Errorf("A's methods = %v, want [$15.00, $20.00]", costs)
	}

	if len(ranked.NoData) != 1 || ranked.NoData[0].RetailerID != "C" {
		t.Errorf("expected C alone in no-data group, got %+v", ranked.NoData)
	}
	if ranked.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", ranked.TotalResults)
	}
}

func TestRank_FreeSortsCheapest(t *testing.T) {
	resp := &ComparisonResponse{
		Comparisons: []RetailerComparison{
			{RetailerID: "A", DeliveryMethods: methodsOf("$5.00", "Free"), HasData: true},
		},
		TotalResults: 1,
	}

	ranked := Rank(resp)
	if ranked.Results[0].DeliveryMethods[0].Cost != "Free" {
		t.Errorf("expected Free first, got %q", ranked.Results[0].DeliveryMethods[0].Cost)
	}
}

func TestRank_Stable(t *testing.T) {
	// Two retailers tied at minimum cost 5 keep their input order, and so do
	// equal-cost methods within one retailer.
	resp := &ComparisonResponse{
		Comparisons: []RetailerComparison{
			{RetailerID: "first", DeliveryMethods: []DeliveryMethod{
				{Method: "m1", Cost: "$5.00"},
				{Method: "m2", Cost: "$5.00"},
			}, HasData: true},
			{RetailerID: "second", DeliveryMethods: methodsOf("$5.00"), HasData: true},
		},
		TotalResults: 2,
	}

	ranked := Rank(resp)
	if ranked.Results[0].RetailerID != "first" || ranked.Results[1].RetailerID != "second" {
		t.Errorf("tie broke input order: [%s, %s]", ranked.Results[0].RetailerID, ranked.Results[1].RetailerID)
	}
	methods := ranked.Results[0].DeliveryMethods
	if methods[0].Method != "m1" || methods[1].Method != "m2" {
		t.Errorf("equal-cost methods reordered: [%s, %s]", methods[0].Method, methods[1].Method)
	}
}

func TestRank_Idempotent(t *testing.T) {
	resp := &ComparisonResponse{
		Country: Country{ID: "c1", Name: "Portugal", Code: "PT"},
		Comparisons: []RetailerComparison{
			{RetailerID: "A", DeliveryMethods: methodsOf("$20.00", "$15.00"), HasData: true},
			{RetailerID: "B", DeliveryMethods: methodsOf("$10.00"), HasData: true},
			{RetailerID: "C", HasData: false},
		},
		TotalResults: 3,
	}

	once := Rank(resp)

	again := Rank(&ComparisonResponse{
		Country:      once.Country,
		Comparisons:  append(append([]RetailerComparison{}, once.Results...), once.NoData...),
		TotalResults: once.TotalResults,
	})

	if !reflect.DeepEqual(once.Results, again.Results) {
		t.Errorf("ranking is not idempotent:\nfirst:  %+v\nsecond: %+v", once.Results, again.Results)
	}
}

func TestRank_EmptyMethodsSortLast(t *testing.T) {
	// A retailer flagged HasData with zero methods ranks as +Inf, i.e. last.
	resp := &ComparisonResponse{
		Comparisons: []RetailerComparison{
			{RetailerID: "empty", DeliveryMethods: []DeliveryMethod{}, HasData: true},
			{RetailerID: "cheap", DeliveryMethods: methodsOf("$99.00"), HasData: true},
		},
		TotalResults: 2,
	}

	ranked := Rank(resp)
	if ranked.Results[0].RetailerID != "cheap" || ranked.Results[1].RetailerID != "empty" {
		t.Errorf("expected empty-method retailer last, got [%s, %s]", ranked.Results[0].RetailerID, ranked.Results[1].RetailerID)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	methods := methodsOf("$20.00", "$15.00")
	resp := &ComparisonResponse{
		Comparisons:  []RetailerComparison{{RetailerID: "A", DeliveryMethods: methods, HasData: true}},
		TotalResults: 1,
	}

	_ = Rank(resp)

	if methods[0].Cost != "$20.00" {
		t.Errorf("Rank mutated its input: %v", methods)
	}
}

func TestCheapest(t *testing.T) {
	comp := RetailerComparison{DeliveryMethods: methodsOf("$3.00", "$9.00")}
	best, ok := comp.Cheapest()
	if !ok || best.Cost != "$3.00" {
		t.Errorf("Cheapest() = %v, %v; want $3.00 method", best, ok)
	}

	empty := RetailerComparison{}
	if _, ok := empty.Cheapest(); ok {
		t.Error("Cheapest() on empty methods should report !ok")
	}
}

func TestRank_Empty(t *testing.T) {
	ranked := Rank(&ComparisonResponse{})
	if len(ranked.Results) != 0 || len(ranked.NoData) != 0 {
		t.Errorf("ranking an empty response produced entries: %+v", ranked)
	}
}
