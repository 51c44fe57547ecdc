package api

import (
	"context"

	"github.com/alex-user-go/shipcompare/internal/compare"
)

// Compare submits a comparison request and returns the stored record. The
// backend persists every submission as a history row, so callers that cache
// the history list must invalidate it after this succeeds.
func (c *Client) Compare(ctx context.Context, req compare.ComparisonRequest) (*compare.Record, error) {
	var out struct {
		Comparison compare.Record `json:"comparison"`
	}
	if err := c.post(ctx, "/compare", req, &out); err != nil {
		return nil, err
	}
	return &out.Comparison, nil
}

// History lists the caller's stored comparison records, newest first.
func (c *Client) History(ctx context.Context) ([]compare.Record, error) {
	var out struct {
		Comparisons []compare.Record `json:"comparisons"`
	}
	if err := c.get(ctx, "/compare/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Comparisons, nil
}

// HistoryByID fetches one stored comparison record.
func (c *Client) HistoryByID(ctx context.Context, id string) (*compare.Record, error) {
	var out struct {
		Comparison compare.Record `json:"comparison"`
	}
	if err := c.get(ctx, "/compare/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out.Comparison, nil
}
