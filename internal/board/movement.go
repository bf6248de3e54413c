// internal/board/movement.go
package board

// Move advances n steps from p and returns the destination and the path walked.
// The path holds one entry per step; its last element is the destination.
func Move(p, n int) (int, []int) {
	if n < 0 {
		n = 0
	}
	path := make([]int, 0, n)
	cur := p
	for i := 0; i < n; i++ {
		cur = (cur + 1) % Size
		path = append(path, cur)
	}
	return ((p+n)%Size + Size) % Size, path
}

// Resolution is what a roll does to the mover.
type Resolution struct {
	From     int   // position before the roll
	Position int   // position after the roll
	Path     []int // squares visited, for presentation pacing only
	Steps    int   // pips actually moved
	Double   bool
	// Banked is set when a free player rolled doubles: nothing moves and
	// PendingRoll carries the pips into the next roll.
	Banked bool
	// StillInJail is set when a jailed player failed to roll doubles.
	StillInJail bool
	PendingRoll int // carry after this roll
}

// Resolve turns a roll into movement for a player at position, honouring the
// jail rule and the doubles carry-forward.
func Resolve(position int, inJail bool, pendingRoll int, d Dice) Resolution {
	res := Resolution{From: position, Position: position, Double: d.IsDouble(), PendingRoll: pendingRoll}
	switch {
	case inJail && res.Double:
		res.Steps = d.Total
		res.Position, res.Path = Move(position, d.Total)
	case inJail:
		res.StillInJail = true
	case res.Double:
		res.Banked = true
		res.PendingRoll = pendingRoll + d.Total
	default:
		res.Steps = d.Total + pendingRoll
		res.Position, res.Path = Move(position, res.Steps)
		res.PendingRoll = 0
	}
	return res
}

// InJail is the jail check used before a roll: the flag alone is not enough,
// the player must also be sitting on the jail square.
func InJail(flag bool, position int) bool {
	return flag && position == JailPosition
}
