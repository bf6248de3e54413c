package strategy

import (
	"math"
	"sort"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

// StepKind is a liquidation move.
type StepKind int

const (
	SellHouse StepKind = iota
	Mortgage
)

func (k StepKind) String() string {
	if k == SellHouse {
		return "sell_house"
	}
	return "mortgage"
}

// LiquidationStep is one cash-raising call and what it is expected to raise.
type LiquidationStep struct {
	Kind       StepKind
	PropertyID int
	Raises     int
}

// SellHousePlan lists house sales for addr, most valuable hotel rent first,
// one step per unit of development.
func SellHousePlan(h Holdings, addr string) []LiquidationStep {
	improved := h.OwnedBy(addr)
	improved = filter(improved, func(gp models.GameProperty) bool { return gp.Development > 0 })
	sort.SliceStable(improved, func(i, j int) bool {
		return board.SquareAt(improved[i].PropertyID).RentHotel > board.SquareAt(improved[j].PropertyID).RentHotel
	})
	var steps []LiquidationStep
	for _, gp := range improved {
		sq := board.SquareAt(gp.PropertyID)
		if sq.CostOfHouse <= 0 {
			continue
		}
		for i := 0; i < gp.Development; i++ {
			steps = append(steps, LiquidationStep{Kind: SellHouse, PropertyID: gp.PropertyID, Raises: sq.CostOfHouse / 2})
		}
	}
	return steps
}

// MortgagePlan lists mortgages of undeveloped, unmortgaged holdings, highest price first.
// Properties that still carry houses in the current holdings are skipped; the
// executor refreshes holdings after selling houses.
func MortgagePlan(h Holdings, addr string) []LiquidationStep {
	free := filter(h.OwnedBy(addr), func(gp models.GameProperty) bool {
		return !gp.Mortgaged && gp.Development == 0
	})
	sort.SliceStable(free, func(i, j int) bool {
		return board.SquareAt(free[i].PropertyID).Price > board.SquareAt(free[j].PropertyID).Price
	})
	var steps []LiquidationStep
	for _, gp := range free {
		sq := board.SquareAt(gp.PropertyID)
		if sq.Price <= 0 {
			continue
		}
		steps = append(steps, LiquidationStep{Kind: Mortgage, PropertyID: gp.PropertyID, Raises: sq.Price / 2})
	}
	return steps
}

// UnmortgageThreshold is the balance above which an autonomous player redeems mortgages.
const UnmortgageThreshold = 1200

// UnmortgageFloor is the balance that must remain after redeeming.
const UnmortgageFloor = 1000

// UnmortgageCost is what redeeming a mortgaged property costs.
func UnmortgageCost(price int) int {
	return int(math.Floor(float64(price) / 2 * 1.1))
}

// UnmortgageCandidate picks the mortgaged holding with the highest site rent
// that p can redeem while staying at or above UnmortgageFloor.
func UnmortgageCandidate(p models.Player, h Holdings) (board.Square, bool) {
	if p.Balance <= UnmortgageThreshold {
		return board.Square{}, false
	}
	mortgaged := filter(h.OwnedBy(p.Address), func(gp models.GameProperty) bool { return gp.Mortgaged })
	sort.SliceStable(mortgaged, func(i, j int) bool {
		return board.SquareAt(mortgaged[i].PropertyID).RentSiteOnly > board.SquareAt(mortgaged[j].PropertyID).RentSiteOnly
	})
	for _, gp := range mortgaged {
		sq := board.SquareAt(gp.PropertyID)
		if sq.Price > 0 && p.Balance-UnmortgageCost(sq.Price) >= UnmortgageFloor {
			return sq, true
		}
	}
	return board.Square{}, false
}

func filter(in []models.GameProperty, keep func(models.GameProperty) bool) []models.GameProperty {
	out := in[:0:0]
	for _, gp := range in {
		if keep(gp) {
			out = append(out, gp)
		}
	}
	return out
}
