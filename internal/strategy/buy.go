package strategy

import (
	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

const (
	// BuyThreshold is the minimum score at which an autonomous player buys.
	BuyThreshold = 72
	// MaxBuyScore caps the buy score.
	MaxBuyScore = 95
	// BuyCashMultiple is how many times the price the buyer must hold.
	BuyCashMultiple = 1.8
)

// BuyScore rates how attractive buying sq is for p, in [0, MaxBuyScore].
func BuyScore(sq board.Square, p models.Player, h Holdings) int {
	if sq.Price <= 0 || !sq.Type.Purchasable() {
		return 0
	}
	price := float64(sq.Price)
	cash := float64(p.Balance)

	score := 30
	switch {
	case cash < price*1.5:
		score -= 80
	case cash < price*2:
		score -= 40
	case cash > price*4:
		score += 35
	case cash > price*3:
		score += 15
	}

	g := sq.Group
	members := g.Members()
	if g.IsStreet() {
		owned := h.CountOwned(g, p.Address)
		switch {
		case owned == len(members)-1:
			score += 120
		case owned == len(members)-2:
			score += 60
		case owned >= 1:
			score += 25
		}
	}
	switch g {
	case board.Railroad:
		score += 22 * h.CountOwned(board.Railroad, p.Address)
	case board.Utility:
		score += 28 * h.CountOwned(board.Utility, p.Address)
	}

	score += 35 - board.LandingRank(sq.ID)

	roi := float64(sq.RentSiteOnly) / price
	switch {
	case roi > 0.14:
		score += 30
	case roi > 0.10:
		score += 15
	}

	// Deny an opponent sitting on all but one of a small group.
	if len(members) > 0 && len(members) <= 3 && h.CountOwnedByOthers(g, p.Address) == len(members)-1 {
		score += 70
	}

	if score < 0 {
		return 0
	}
	if score > MaxBuyScore {
		return MaxBuyScore
	}
	return score
}

// ShouldBuy is the autonomous purchase rule.
func ShouldBuy(score, balance, price int) bool {
	return score >= BuyThreshold && float64(balance) > BuyCashMultiple*float64(price)
}
