package strategy

import (
	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

// Rent is what landing on propertyID costs a visitor. diceTotal is only used for utilities.
func Rent(propertyID, diceTotal int, h Holdings) int {
	sq, ok := board.Lookup(propertyID)
	if !ok || !sq.Type.Purchasable() {
		return 0
	}
	gp, ok := h.Record(propertyID)
	if !ok || gp.OwnedByBank() || gp.Mortgaged {
		return 0
	}
	switch sq.Group {
	case board.Railroad:
		n := h.CountOwned(board.Railroad, gp.Address)
		return sq.RentSiteOnly << max(n-1, 0)
	case board.Utility:
		if h.CountOwned(board.Utility, gp.Address) == 2 {
			return 10 * diceTotal
		}
		return 4 * diceTotal
	}
	if gp.Development > 0 {
		return sq.RentFor(gp.Development)
	}
	if IsComplete(h, sq.Group, gp.Address) {
		return 2 * sq.RentSiteOnly
	}
	return sq.RentSiteOnly
}

// NetWorth is cash plus property value (half when mortgaged) plus buildings at cost.
func NetWorth(p models.Player, h Holdings) int {
	worth := p.Balance
	for _, gp := range h.OwnedBy(p.Address) {
		sq, ok := board.Lookup(gp.PropertyID)
		if !ok {
			continue
		}
		if gp.Mortgaged {
			worth += sq.Price / 2
		} else {
			worth += sq.Price
		}
		worth += gp.Development * sq.CostOfHouse
	}
	return worth
}
