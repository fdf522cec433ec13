package models

import (
	"time"

	"github.com/Dosada05/tundra-matches/utils"
)

type ClanRole string

const (
	ClanRoleLeader  ClanRole = "leader"
	ClanRoleOfficer ClanRole = "officer"
	ClanRoleMember  ClanRole = "member"
)

type ClanMember struct {
	WalletAddress string    `json:"walletAddress"`
	DisplayName   string    `json:"displayName"`
	Role          ClanRole  `json:"role"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// Clan - постоянная группа игроков. В старом коде называлась team.
type Clan struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Tag           string    `json:"tag"`
	LeaderAddress string    `json:"leaderAddress"`
	CreatedAt     time.Time `json:"createdAt"`

	Members []ClanMember `json:"members,omitempty"`
}

// Organizers returns the wallet addresses allowed to act for the clan in a
// match: the leader and every officer.
func (c *Clan) Organizers() []string {
	out := []string{c.LeaderAddress}
	for _, m := range c.Members {
		if m.Role == ClanRoleOfficer && !utils.SameAddress(m.WalletAddress, c.LeaderAddress) {
			out = append(out, m.WalletAddress)
		}
	}
	return out
}

// IsOrganizer сравнивает адреса без учета регистра.
func (c *Clan) IsOrganizer(address string) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Organizers() {
		if utils.SameAddress(a, address) {
			return true
		}
	}
	return false
}
