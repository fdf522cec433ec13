package models

import "time"

// RosterEntry - игрок, заявленный кланом на конкретный матч.
type RosterEntry struct {
	MatchID       int64     `json:"matchId"`
	ClanID        int64     `json:"clanId"`
	WalletAddress string    `json:"walletAddress"`
	DisplayName   string    `json:"displayName"`
	Confirmed     bool      `json:"confirmed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MatchRoster groups the confirmed players per side.
type MatchRoster struct {
	MatchID int64         `json:"matchId"`
	Clan1   []RosterEntry `json:"clan1"`
	Clan2   []RosterEntry `json:"clan2"`
}
