package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/itbasis/go-clock"
)

// Epoch - начальное время мок-часов во всех тестах.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Wallet возвращает детерминированный нормализованный адрес кошелька.
func Wallet(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

// Стандартные участники матча в тестах.
var (
	LeaderA  = Wallet(0xa1)
	OfficerA = Wallet(0xa2)
	MemberA  = Wallet(0xa3)
	LeaderB  = Wallet(0xb1)
	OfficerB = Wallet(0xb2)
	Admin    = Wallet(0xad)
	Outsider = Wallet(0xff)
)

const (
	ClanAID      int64 = 1
	ClanBID      int64 = 2
	TournamentID int64 = 7
	MatchID      int64 = 100
)

func NewMockClock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(Epoch)
	return clk
}

func ClanA() models.Clan {
	return models.Clan{
		ID:            ClanAID,
		Name:          "Frostbite",
		Tag:           "FRB",
		LeaderAddress: LeaderA,
		Members: []models.ClanMember{
			{WalletAddress: LeaderA, DisplayName: "alpha", Role: models.ClanRoleLeader},
			{WalletAddress: OfficerA, DisplayName: "bravo", Role: models.ClanRoleOfficer},
			{WalletAddress: MemberA, DisplayName: "charlie", Role: models.ClanRoleMember},
		},
	}
}

func ClanB() models.Clan {
	return models.Clan{
		ID:            ClanBID,
		Name:          "Permafrost",
		Tag:           "PMF",
		LeaderAddress: LeaderB,
		Members: []models.ClanMember{
			{WalletAddress: LeaderB, DisplayName: "delta", Role: models.ClanRoleLeader},
			{WalletAddress: OfficerB, DisplayName: "echo", Role: models.ClanRoleOfficer},
		},
	}
}

// NewMatch - матч между ClanA и ClanB в статусе scheduling.
func NewMatch(id int64) models.Match {
	return models.Match{
		ID:           id,
		TournamentID: TournamentID,
		Round:        models.RoundFlat,
		Clan1ID:      ClanAID,
		Clan2ID:      ClanBID,
		Status:       models.StatusScheduling,
	}
}

// Seeded возвращает хранилище с двумя кланами и матчем MatchID.
func Seeded(clk clock.Clock) *FakeStore {
	store := NewFakeStore(clk)
	store.AddClan(ClanA())
	store.AddClan(ClanB())
	store.AddMatch(NewMatch(MatchID))
	return store
}

// RecordingNotifier запоминает все опубликованные состояния матчей.
type RecordingNotifier struct {
	mu        sync.Mutex
	updated   []models.Match
	activated []models.Match
}

func (n *RecordingNotifier) MatchUpdated(_ context.Context, match *models.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, clone(*match))
}

func (n *RecordingNotifier) MatchActivated(_ context.Context, match *models.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activated = append(n.activated, clone(*match))
}

func (n *RecordingNotifier) Updated() []models.Match {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Match(nil), n.updated...)
}

func (n *RecordingNotifier) Activated() []models.Match {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Match(nil), n.activated...)
}
