package models

// TradeStatus is the lifecycle state of a trade offer.
type TradeStatus string

const (
	TradePending  TradeStatus = "pending"
	TradeAccepted TradeStatus = "accepted"
	TradeDeclined TradeStatus = "declined"
	TradeCounter  TradeStatus = "counter"
)

// Terminal reports whether no further transitions are possible.
func (s TradeStatus) Terminal() bool {
	return s == TradeAccepted || s == TradeDeclined
}

// TradeOffer moves property ids and cash between two players. Property ids
// are board ids, not ownership record ids.
type TradeOffer struct {
	ID                  int         `json:"id,omitempty"`
	GameID              int         `json:"game_id"`
	PlayerID            int         `json:"player_id"`
	TargetPlayerID      int         `json:"target_player_id"`
	OfferProperties     []int       `json:"offer_properties"`
	OfferAmount         int         `json:"offer_amount"`
	RequestedProperties []int       `json:"requested_properties"`
	RequestedAmount     int         `json:"requested_amount"`
	Status              TradeStatus `json:"status,omitempty"`
}

// Counter returns the offer seen from the target's side: what was offered is
// now requested and the other way round.
func (t TradeOffer) Counter() TradeOffer {
	return TradeOffer{
		ID:                  t.ID,
		GameID:              t.GameID,
		PlayerID:            t.TargetPlayerID,
		TargetPlayerID:      t.PlayerID,
		OfferProperties:     append([]int(nil), t.RequestedProperties...),
		OfferAmount:         t.RequestedAmount,
		RequestedProperties: append([]int(nil), t.OfferProperties...),
		RequestedAmount:     t.OfferAmount,
		Status:              TradeCounter,
	}
}
