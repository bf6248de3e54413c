package strategy

import (
	"sort"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

// IsComplete reports whether addr owns every member of g with none mortgaged.
func IsComplete(h Holdings, g board.Group, addr string) bool {
	if addr == "" {
		return false
	}
	for _, id := range g.Members() {
		gp, ok := h.Record(id)
		if !ok || !models.SameAddress(gp.Address, addr) || gp.Mortgaged {
			return false
		}
	}
	return true
}

// CompleteMonopolies lists the street groups addr has completed, in build priority order.
func CompleteMonopolies(h Holdings, addr string) []board.Group {
	var out []board.Group
	for _, g := range board.BuildPriority {
		if IsComplete(h, g, addr) {
			out = append(out, g)
		}
	}
	return out
}

// MissingProperty is a group member the player does not hold yet.
type MissingProperty struct {
	PropertyID   int
	OwnerAddress string // "" when the bank holds it
}

// Opportunity is a street group one or two properties short of completion.
type Opportunity struct {
	Group   board.Group
	Needs   int
	Missing []MissingProperty
}

// NearCompleteOpportunities finds street groups addr is one or two members
// away from completing, fewest missing first, then by build priority.
func NearCompleteOpportunities(h Holdings, addr string) []Opportunity {
	var out []Opportunity
	for _, g := range board.BuildPriority {
		members := g.Members()
		owned := h.CountOwned(g, addr)
		needs := len(members) - owned
		if needs != 1 && needs != 2 {
			continue
		}
		opp := Opportunity{Group: g, Needs: needs}
		for _, id := range members {
			owner := h.Owner(id)
			if models.SameAddress(owner, addr) {
				continue
			}
			opp.Missing = append(opp.Missing, MissingProperty{PropertyID: id, OwnerAddress: owner})
		}
		out = append(out, opp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Needs != out[j].Needs {
			return out[i].Needs < out[j].Needs
		}
		return board.PriorityIndex(out[i].Group) < board.PriorityIndex(out[j].Group)
	})
	return out
}
