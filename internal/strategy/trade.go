package strategy

import (
	"math"
	"math/rand"
	"sort"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

const (
	// TradeReserve is the cash an autonomous player keeps back when offering.
	TradeReserve = 300
	// AcceptFavorability is the lowest favorability an autonomous receiver accepts.
	AcceptFavorability = 50
	// MaxTradeAttempts bounds the proposals made in one strategy pass.
	MaxTradeAttempts = 1
)

// FairCashOffer is what an autonomous player bids for a missing property.
func FairCashOffer(price int, completesGroup bool) int {
	if completesGroup {
		return int(math.Floor(float64(price) * 1.6))
	}
	return int(math.Floor(float64(price) * 1.3))
}

// PropertyToOffer picks the cheapest undeveloped holding of addr outside the
// excluded groups, to sweeten a cash-light offer.
func PropertyToOffer(h Holdings, addr string, exclude ...board.Group) (board.Square, bool) {
	var candidates []board.Square
	for _, gp := range h.OwnedBy(addr) {
		sq, ok := board.Lookup(gp.PropertyID)
		if !ok || sq.Group == "" || gp.Development > 0 {
			continue
		}
		skip := false
		for _, g := range exclude {
			if sq.Group == g {
				skip = true
				break
			}
		}
		if !skip {
			candidates = append(candidates, sq)
		}
	}
	if len(candidates) == 0 {
		return board.Square{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Price < candidates[j].Price })
	return candidates[0], true
}

// ProposeTrades synthesises at most MaxTradeAttempts offers for actor, aimed at
// the near-complete groups it could finish. players resolves owner addresses to seats.
func ProposeTrades(gameID int, actor models.Player, players []models.Player, h Holdings) []models.TradeOffer {
	var out []models.TradeOffer
	for _, opp := range NearCompleteOpportunities(h, actor.Address) {
		for _, missing := range opp.Missing {
			if len(out) >= MaxTradeAttempts {
				return out
			}
			if missing.OwnerAddress == "" {
				continue
			}
			target, ok := playerByAddress(players, missing.OwnerAddress)
			if !ok || target.UserID == actor.UserID {
				continue
			}
			sq, ok := board.Lookup(missing.PropertyID)
			if !ok {
				continue
			}
			cash := FairCashOffer(sq.Price, opp.Needs == 1)
			offer := models.TradeOffer{
				GameID:              gameID,
				PlayerID:            actor.UserID,
				TargetPlayerID:      target.UserID,
				OfferProperties:     []int{},
				OfferAmount:         cash,
				RequestedProperties: []int{missing.PropertyID},
				RequestedAmount:     0,
				Status:              models.TradePending,
			}
			if actor.Balance < cash+TradeReserve {
				if sweetener, ok := PropertyToOffer(h, actor.Address, opp.Group); ok {
					offer.OfferProperties = []int{sweetener.ID}
				}
			}
			out = append(out, offer)
		}
	}
	return out
}

// Favorability scores an offer from the point of view of receiverAddr.
func Favorability(offer models.TradeOffer, receiverAddr string, h Holdings) float64 {
	score := float64(offer.OfferAmount - offer.RequestedAmount)
	for _, id := range offer.RequestedProperties {
		sq, ok := board.Lookup(id)
		if !ok {
			continue
		}
		score += float64(sq.Price)
		if sq.Group.IsStreet() {
			size := len(sq.Group.Members())
			switch h.CountOwned(sq.Group, receiverAddr) {
			case size - 1:
				score += 300
			case size - 2:
				score += 120
			}
		}
	}
	for _, id := range offer.OfferProperties {
		if sq, ok := board.Lookup(id); ok {
			score -= 1.3 * float64(sq.Price)
		}
	}
	return score
}

// AcceptsTrade is the decision of an autonomous receiver facing another autonomous player.
func AcceptsTrade(offer models.TradeOffer, receiverAddr string, h Holdings) bool {
	return Favorability(offer, receiverAddr, h) >= AcceptFavorability
}

// ValueRatio compares what the receiver gets against what it gives, as a
// percentage clamped to [-100, 100].
func ValueRatio(offer models.TradeOffer) int {
	gets := offer.OfferAmount + sumPrices(offer.OfferProperties)
	gives := offer.RequestedAmount + sumPrices(offer.RequestedProperties)
	if gives == 0 {
		return 100
	}
	ratio := math.Round(float64(gets-gives) / float64(gives) * 100)
	return int(math.Max(-100, math.Min(100, ratio)))
}

// RespondToHumanOffer decides whether an autonomous receiver accepts a human's
// proposal. Middling offers are accepted by chance.
func RespondToHumanOffer(offer models.TradeOffer, rng *rand.Rand) (accept bool, ratio int) {
	ratio = ValueRatio(offer)
	switch {
	case ratio >= 30:
		return true, ratio
	case ratio >= 10:
		return rng.Float64() < 0.7, ratio
	case ratio >= 0:
		return rng.Float64() < 0.3, ratio
	default:
		return false, ratio
	}
}

func sumPrices(ids []int) int {
	total := 0
	for _, id := range ids {
		if sq, ok := board.Lookup(id); ok {
			total += sq.Price
		}
	}
	return total
}

func playerByAddress(players []models.Player, addr string) (models.Player, bool) {
	for _, p := range players {
		if models.SameAddress(p.Address, addr) {
			return p, true
		}
	}
	return models.Player{}, false
}
