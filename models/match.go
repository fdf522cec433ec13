package models

import (
	"fmt"
	"time"
)

// MatchStatus - каноническое состояние матча. Единственный набор значений,
// старые варианты приводятся к нему через NormalizeStatus.
type MatchStatus string

const (
	StatusScheduling      MatchStatus = "scheduling"
	StatusReady           MatchStatus = "ready"
	StatusActive          MatchStatus = "active"
	StatusResultsPending  MatchStatus = "results_pending"
	StatusResultsConflict MatchStatus = "results_conflict"
	StatusCompleted       MatchStatus = "completed"
)

// Значения из старых компонентов (pending/scheduled/completed и in_progress).
const (
	legacyStatusPending    = "pending"
	legacyStatusScheduled  = "scheduled"
	legacyStatusInProgress = "in_progress"
)

func (s MatchStatus) IsValid() bool {
	switch s {
	case StatusScheduling, StatusReady, StatusActive, StatusResultsPending, StatusResultsConflict, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal сообщает, что матч больше не меняется.
func (s MatchStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// NormalizeStatus приводит сохраненное значение статуса к каноническому.
// hasScheduledAt нужен для legacy "scheduled": без согласованного времени
// такой матч на самом деле еще в scheduling.
func NormalizeStatus(raw string, hasScheduledAt bool) (MatchStatus, error) {
	switch raw {
	case legacyStatusPending:
		return StatusScheduling, nil
	case legacyStatusScheduled:
		if hasScheduledAt {
			return StatusReady, nil
		}
		return StatusScheduling, nil
	case legacyStatusInProgress:
		return StatusActive, nil
	}
	s := MatchStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown match status %q", raw)
	}
	return s, nil
}

// Round - раунд сетки. Пустое значение используется для плоского списка
// в сетках из двух команд.
type Round string

const (
	RoundFlat    Round = ""
	RoundFirst   Round = "first"
	RoundQuarter Round = "quarter"
	RoundSemi    Round = "semi"
	RoundFinal   Round = "final"
)

// Side identifies one of the two slots of a match.
type Side string

const (
	SideClan1 Side = "clan1"
	SideClan2 Side = "clan2"
)

func (s Side) IsValid() bool {
	return s == SideClan1 || s == SideClan2
}

// Opponent returns the other slot.
func (s Side) Opponent() Side {
	if s == SideClan1 {
		return SideClan2
	}
	return SideClan1
}

// Score - счет матча всегда в терминах clan1/clan2.
type Score struct {
	Clan1 int `json:"clan1Score"`
	Clan2 int `json:"clan2Score"`
}

// Winner returns the side with the higher tally. ok is false for a tie.
func (s Score) Winner() (side Side, ok bool) {
	switch {
	case s.Clan1 > s.Clan2:
		return SideClan1, true
	case s.Clan2 > s.Clan1:
		return SideClan2, true
	}
	return "", false
}

// Of returns the tally of the given side.
func (s Score) Of(side Side) int {
	if side == SideClan1 {
		return s.Clan1
	}
	return s.Clan2
}

type Match struct {
	ID           int64       `json:"id"`
	TournamentID int64       `json:"tournamentId"`
	BracketID    int64       `json:"bracketId"`
	Round        Round       `json:"round"`
	Position     int         `json:"position"`
	Clan1ID      int64       `json:"clan1Id"`
	Clan2ID      int64       `json:"clan2Id"`
	Status       MatchStatus `json:"status"`
	ScheduledAt  *time.Time  `json:"scheduledAt,omitempty"`
	WinnerID     *int64      `json:"winnerId,omitempty"`
	Score        *Score      `json:"score,omitempty"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`

	ConflictData       *ConflictData               `json:"conflictData,omitempty"`
	PlayerPerformances []PlayerPerformance         `json:"playerPerformances,omitempty"`
	ResultsSubmissions map[Side]*ResultSubmission `json:"resultsSubmissions,omitempty"`

	// Связанные сущности, заполняются сервисом
	Clan1 *Clan `json:"clan1,omitempty"`
	Clan2 *Clan `json:"clan2,omitempty"`
}

// ClanID returns the clan id occupying the given side.
func (m *Match) ClanID(side Side) int64 {
	if side == SideClan1 {
		return m.Clan1ID
	}
	return m.Clan2ID
}

// SideOfClan maps a clan id back to its slot in this match.
func (m *Match) SideOfClan(clanID int64) (Side, bool) {
	switch clanID {
	case m.Clan1ID:
		return SideClan1, true
	case m.Clan2ID:
		return SideClan2, true
	}
	return "", false
}

// EffectiveStatus выводит статус на момент now. ready превращается в active,
// когда согласованное время наступило; это вычисляется при каждом чтении
// и никогда не сохраняется.
func (m *Match) EffectiveStatus(now time.Time) MatchStatus {
	if m.Status == StatusReady && m.ScheduledAt != nil && !now.Before(*m.ScheduledAt) {
		return StatusActive
	}
	return m.Status
}
