package models

// VoteResult is returned after casting a vote to remove a player.
type VoteResult struct {
	VoteCount     int  `json:"vote_count"`
	RequiredVotes int  `json:"required_votes"`
	Removed       bool `json:"removed"`
}

// VoteStatus summarises the votes against a player.
type VoteStatus struct {
	TargetUserID  int   `json:"target_user_id"`
	VoteCount     int   `json:"vote_count"`
	RequiredVotes int   `json:"required_votes"`
	Voters        []int `json:"voters,omitempty"`
}

// NetWorthVote is the state of the vote to end the game by net worth.
type NetWorthVote struct {
	VoteCount     int   `json:"vote_count"`
	RequiredVotes int   `json:"required_votes"`
	AllVoted      bool  `json:"all_voted"`
	Voters        []int `json:"voters,omitempty"`
}

// FinishResult is returned when a time-boxed game is closed.
type FinishResult struct {
	WinnerID        int  `json:"winner_id"`
	ValidWin        bool `json:"valid_win"`
	WinnerTurnCount int  `json:"winner_turn_count"`
}
