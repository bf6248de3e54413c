package models

// GameProperty is the ownership record of a property within a game. A record
// exists once the property has been bought; no record means the bank owns it.
type GameProperty struct {
	ID          int    `json:"id"`
	GameID      int    `json:"game_id"`
	Address     string `json:"address"`
	PlayerID    int    `json:"player_id"`
	PropertyID  int    `json:"property_id"`
	Mortgaged   bool   `json:"mortgaged"`
	Development int    `json:"development"`
}

// BankAddress marks properties explicitly held by the bank.
const BankAddress = "bank"

// OwnedByBank is true for records with no real owner.
func (gp GameProperty) OwnedByBank() bool {
	return gp.Address == "" || gp.Address == BankAddress
}
