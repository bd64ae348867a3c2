package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/eliteGoblin/focusd/screen_time/internal/config"
	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// ResetPolicy decides when the hosts file goes back to its original content.
// The enforcer records each reset in the state store.
type ResetPolicy interface {
	// Due reports whether a reset should happen at now.
	Due(now time.Time) (bool, error)
}

// WindowReset fires during the first minute after local midnight.
// A run that misses the window skips the reset for that day.
type WindowReset struct{}

func (WindowReset) Due(now time.Time) (bool, error) {
	return now.Hour() == 0 && now.Minute() == 0, nil
}

// DailyReset fires on the first run of each local day, tracked in the state store.
type DailyReset struct {
	state domain.StateStore
}

// NewDailyReset creates a reset policy backed by state.
func NewDailyReset(state domain.StateStore) *DailyReset {
	return &DailyReset{state: state}
}

func (d *DailyReset) Due(now time.Time) (bool, error) {
	last, err := d.state.LastReset()
	if err != nil {
		return false, fmt.Errorf("failed to read last reset: %w", err)
	}
	if last.IsZero() {
		return true, nil
	}
	return !sameDay(last.In(now.Location()), now), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NewResetPolicy returns the policy for a configured reset mode.
func NewResetPolicy(mode string, state domain.StateStore) (ResetPolicy, error) {
	switch mode {
	case "", config.ResetWindow:
		return WindowReset{}, nil
	case config.ResetDaily:
		if state == nil {
			return nil, errors.New("daily reset requires a state store")
		}
		return NewDailyReset(state), nil
	default:
		return nil, fmt.Errorf("unknown reset mode %q", mode)
	}
}

var (
	_ ResetPolicy = WindowReset{}
	_ ResetPolicy = (*DailyReset)(nil)
)
