package models

// ActionType names a confirmed turn action for the action log.
type ActionType string

const (
	ActionRoll          ActionType = "roll"
	ActionMove          ActionType = "move"
	ActionBuy           ActionType = "buy"
	ActionSkipBuy       ActionType = "skip_buy"
	ActionEndTurn       ActionType = "end_turn"
	ActionPayJailFine   ActionType = "pay_jail_fine"
	ActionUseJailCard   ActionType = "use_jail_card"
	ActionStayInJail    ActionType = "stay_in_jail"
	ActionDevelop       ActionType = "develop"
	ActionDowngrade     ActionType = "downgrade"
	ActionMortgage      ActionType = "mortgage"
	ActionUnmortgage    ActionType = "unmortgage"
	ActionSell          ActionType = "sell"
	ActionTradeCreated  ActionType = "trade_created"
	ActionTradeAccepted ActionType = "trade_accepted"
	ActionTradeDeclined ActionType = "trade_declined"
	ActionTradeCounter  ActionType = "trade_counter"
	ActionTimeout       ActionType = "timeout"
	ActionVote          ActionType = "vote"
	ActionBankruptcy    ActionType = "bankruptcy"
	ActionFinishByTime  ActionType = "finish_by_time"
)

// GameAction captures a player's confirmed move.
type GameAction struct {
	ActionType ActionType             `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}
