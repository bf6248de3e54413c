package strategy

import (
	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

// BuildStep is one house to put on a property.
type BuildStep struct {
	Group      board.Group
	PropertyID int
	Cost       int
}

// BuildPasses returns, per eligible complete group in priority order, the
// houses to add on the least-developed members. The executor stops at the
// first group where a build succeeds.
func BuildPasses(p models.Player, h Holdings) [][]BuildStep {
	var passes [][]BuildStep
	for _, g := range CompleteMonopolies(h, p.Address) {
		members := g.Members()
		minDev, maxDev := 5, 0
		for _, id := range members {
			gp, _ := h.Record(id)
			minDev = min(minDev, gp.Development)
			maxDev = max(maxDev, gp.Development)
		}
		if maxDev > minDev+1 || minDev >= 5 {
			continue
		}
		houseCost := board.SquareAt(members[0]).CostOfHouse
		if houseCost <= 0 {
			continue
		}
		if p.Balance/houseCost < len(members) {
			continue
		}
		var pass []BuildStep
		for _, id := range members {
			if gp, _ := h.Record(id); gp.Development == minDev {
				pass = append(pass, BuildStep{Group: g, PropertyID: id, Cost: houseCost})
			}
		}
		passes = append(passes, pass)
	}
	return passes
}
