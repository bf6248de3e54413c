// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

// Rules are the timing and table parameters an orchestrator plays by.
type Rules struct {
	TurnTimerSec    int  `json:"turnTimerSec"`    // wall-clock budget per turn, measured from turn_start
	InactivitySec   int  `json:"inactivitySec"`   // idle time after rolling before the turn is ended for the player
	JailFine        int  `json:"jailFine"`        // cost of paying out of jail
	PollIntervalSec int  `json:"pollIntervalSec"` // periodic reconciliation
	MinPollGapMs    int  `json:"minPollGapMs"`    // throttle between two triggered reconciliations
	TradePollSec    int  `json:"tradePollSec"`    // open/incoming trade refresh
	MinWinTurns     int  `json:"minWinTurns"`     // turns a time-boxed winner needs for the win to count
	RerollOnTwelve  bool `json:"rerollOnTwelve"`  // treat a total of 12 as a forced reroll
}

// DefaultRules returns the standard timings.
func DefaultRules() Rules {
	return Rules{
		TurnTimerSec:    120,
		InactivitySec:   30,
		JailFine:        50,
		PollIntervalSec: 10,
		MinPollGapMs:    2000,
		TradePollSec:    5,
		MinWinTurns:     20,
		RerollOnTwelve:  true,
	}
}

func (r Rules) TurnBudget() time.Duration { return time.Duration(r.TurnTimerSec) * time.Second }
func (r Rules) Inactivity() time.Duration { return time.Duration(r.InactivitySec) * time.Second }
func (r Rules) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSec) * time.Second
}
func (r Rules) MinPollGap() time.Duration { return time.Duration(r.MinPollGapMs) * time.Millisecond }
func (r Rules) TradePoll() time.Duration  { return time.Duration(r.TradePollSec) * time.Second }

// Update overwrites the rules present in newRules. Absent or nil keys keep
// their current value.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	// JSON numbers arrive as float64; env overrides arrive as int.
	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64:
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	ints := []struct {
		field *int
		key   string
		min   int
	}{
		{&rules.TurnTimerSec, "turnTimerSec", 1},
		{&rules.InactivitySec, "inactivitySec", 1},
		{&rules.JailFine, "jailFine", 0},
		{&rules.PollIntervalSec, "pollIntervalSec", 1},
		{&rules.MinPollGapMs, "minPollGapMs", 0},
		{&rules.TradePollSec, "tradePollSec", 1},
		{&rules.MinWinTurns, "minWinTurns", 0},
	}
	for _, f := range ints {
		if err := assignInt(f.field, f.key, f.min); err != nil {
			return err
		}
	}
	return assignBool(&rules.RerollOnTwelve, "rerollOnTwelve")
}

// ParseRules applies a map of overrides on top of current.
func ParseRules(rules map[string]interface{}, current Rules) (Rules, error) {
	r := current
	err := r.Update(rules)
	return r, err
}
