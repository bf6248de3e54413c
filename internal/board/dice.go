// internal/board/dice.go
package board

import (
	"math/rand"
	"sync"
	"time"
)

// Dice is one roll of two six-sided dice.
type Dice struct {
	Die1  int `json:"die1"`
	Die2  int `json:"die2"`
	Total int `json:"total"`
}

// IsDouble reports whether both dice show the same face.
func (d Dice) IsDouble() bool {
	return d.Die1 == d.Die2
}

// Roller yields a single die face in [1,6].
type Roller interface {
	Die() int
}

// RandRoller rolls with a math/rand source. Safe for concurrent use.
type RandRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandRoller seeds a roller from the wall clock.
func NewRandRoller() *RandRoller {
	return &RandRoller{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *RandRoller) Die() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(6) + 1
}

// RollDice rolls two dice. When rerollOnTwelve is set a total of 12 is reported
// as ok=false, which callers treat as "roll again, no move".
func RollDice(r Roller, rerollOnTwelve bool) (Dice, bool) {
	d := Dice{Die1: r.Die(), Die2: r.Die()}
	d.Total = d.Die1 + d.Die2
	if rerollOnTwelve && d.Total == 12 {
		return Dice{}, false
	}
	return d, true
}

// TotalToDice reconstructs a displayable pair for a bare total, as reported in
// another player's rolled field. Totals outside [2,12] yield ok=false.
func TotalToDice(total int) (Dice, bool) {
	if total < 2 || total > 12 {
		return Dice{}, false
	}
	switch total {
	case 2:
		return Dice{Die1: 1, Die2: 1, Total: 2}, true
	case 12:
		return Dice{Die1: 6, Die2: 6, Total: 12}, true
	}
	d1 := total / 2
	return Dice{Die1: d1, Die2: total - d1, Total: total}, true
}
