package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"climate-platform/internal/models"
)

// TrailingDays is the length of the trailing window
const TrailingDays = 365

// AnchorMode selects where the trailing window ends
type AnchorMode string

const (
	// AnchorLatest ends the window at the latest observation date in the dataset
	AnchorLatest AnchorMode = "latest"
	// AnchorFixed ends the window at a configured date.
	// Legacy: only meaningful against a frozen dataset snapshot.
	AnchorFixed AnchorMode = "fixed"
)

// ParseAnchorMode parses a configuration value into an AnchorMode
func ParseAnchorMode(s string) (AnchorMode, error) {
	switch AnchorMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", AnchorLatest:
		return AnchorLatest, nil
	case AnchorFixed:
		return AnchorFixed, nil
	default:
		return "", fmt.Errorf("invalid window anchor %q (allowed: latest, fixed)", s)
	}
}

// MaxDateSource supplies the latest observation date in the dataset
type MaxDateSource interface {
	MaxDate(ctx context.Context) (string, error)
}

// WindowResolver derives the trailing-year window
type WindowResolver struct {
	mode   AnchorMode
	fixed  time.Time
	source MaxDateSource
}

// NewLatestWindowResolver anchors the window at the dataset's latest date
func NewLatestWindowResolver(source MaxDateSource) *WindowResolver {
	return &WindowResolver{mode: AnchorLatest, source: source}
}

// NewFixedWindowResolver anchors the window at end, which must be YYYY-MM-DD
func NewFixedWindowResolver(end string) (*WindowResolver, error) {
	d, err := ParseDate("window_end", end)
	if err != nil {
		return nil, err
	}
	return &WindowResolver{mode: AnchorFixed, fixed: d}, nil
}

// Mode returns the configured anchor mode
func (r *WindowResolver) Mode() AnchorMode {
	return r.mode
}

// Resolve returns the window [end - 365 days, end]
func (r *WindowResolver) Resolve(ctx context.Context) (models.Window, error) {
	end := r.fixed

	if r.mode == AnchorLatest {
		maxDate, err := r.source.MaxDate(ctx)
		if err != nil {
			return models.Window{}, err
		}
		end, err = time.Parse(models.DateLayout, maxDate)
		if err != nil {
			return models.Window{}, fmt.Errorf("dataset max date %q is not a valid date: %w", maxDate, err)
		}
	}

	return TrailingWindow(end), nil
}

// TrailingWindow returns the window ending at end and starting 365 calendar days earlier
func TrailingWindow(end time.Time) models.Window {
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return models.Window{
		Start: end.AddDate(0, 0, -TrailingDays),
		End:   end,
	}
}
