package schema

import (
	"fmt"
	"time"
)

// Tier is the subscription level that drives remote visibility and the
// width of the light-sync probe window.
type Tier string

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierPro  Tier = "pro"
)

// Rank orders tiers for visibility checks. Higher rank sees more.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierPlus:
		return 1
	case TierPro:
		return 2
	default:
		return -1
	}
}

// IsValid reports whether the tier is one of the known levels.
func (t Tier) IsValid() bool {
	return t.Rank() >= 0
}

// ParseTier converts a config/CLI string into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown access tier %q (must be free, plus, or pro)", s)
	}
	return t, nil
}

// WindowConfig holds the probe-window widths per tier. The widths are a
// product policy choice, so they are configurable rather than constants.
type WindowConfig struct {
	FreeDays    int
	PlusDays    int
	ProDays     int
	ForwardDays int
}

// DefaultWindowConfig returns the stock window widths.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		FreeDays:    7,
		PlusDays:    30,
		ProDays:     90,
		ForwardDays: 1,
	}
}

// days returns the backward width for the tier. Unknown tiers fall back
// to the free width.
func (w WindowConfig) days(t Tier) int {
	switch t {
	case TierPlus:
		return w.PlusDays
	case TierPro:
		return w.ProDays
	default:
		return w.FreeDays
	}
}

// DateWindow is a bounded, inclusive range of puzzle dates.
type DateWindow struct {
	Start string
	End   string
}

// WindowFor computes the probe window for a tier, anchored on today.
// Higher tiers get a wider backward reach; all tiers see the same small
// forward margin for pre-published puzzles.
func (w WindowConfig) WindowFor(today time.Time, t Tier) DateWindow {
	return DateWindow{
		Start: today.AddDate(0, 0, -w.days(t)).Format(DateLayout),
		End:   today.AddDate(0, 0, w.ForwardDays).Format(DateLayout),
	}
}
