package game

// EventType names a notification for the presentation layer.
type EventType string

const (
	EventTurnStarted       EventType = "turn_started"
	EventRolled            EventType = "rolled"
	EventReroll            EventType = "reroll"
	EventDoubles           EventType = "doubles"
	EventMoved             EventType = "moved"
	EventBuyPrompt         EventType = "buy_prompt"
	EventInsufficientFunds EventType = "insufficient_funds"
	EventPurchased         EventType = "purchased"
	EventPurchaseSkipped   EventType = "purchase_skipped"
	EventJailChoice        EventType = "jail_choice_required"
	EventJailFreed         EventType = "jail_freed"
	EventStayedInJail      EventType = "stayed_in_jail"
	EventTurnEnded         EventType = "turn_ended"
	EventTurnTimeout       EventType = "turn_timeout"
	EventVoteAvailable     EventType = "vote_available"
	EventVoteCast          EventType = "vote_cast"
	EventVotedOut          EventType = "voted_out"
	EventPropertyChanged   EventType = "property_changed"
	EventTradeProposed     EventType = "trade_proposed"
	EventTradeAccepted     EventType = "trade_accepted"
	EventTradeDeclined     EventType = "trade_declined"
	EventTradeCountered    EventType = "trade_countered"
	EventTradeIncoming     EventType = "trade_incoming"
	EventLiquidating       EventType = "liquidating"
	EventSurvived          EventType = "survived"
	EventBankrupt          EventType = "bankrupt"
	EventGameFinished      EventType = "game_finished"
	EventError             EventType = "error"
)

// Event is a user-facing notification.
type Event struct {
	Type     EventType              `json:"type"`
	PlayerID int                    `json:"player_id,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}
