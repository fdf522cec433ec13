package models

import "time"

// Веса для производного счета игрока.
const (
	KillWeight   = 100
	AssistWeight = 50
	DeathWeight  = 25
)

type PlayerPerformance struct {
	PlayerAddress string `json:"playerAddress"`
	DisplayName   string `json:"displayName,omitempty"`
	ClanID        int64  `json:"clanId"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	Score         int    `json:"score"`
	MVP           bool   `json:"mvp"`
}

// PerformanceScore is kills*100 + assists*50 - deaths*25.
func PerformanceScore(kills, deaths, assists int) int {
	return kills*KillWeight + assists*AssistWeight - deaths*DeathWeight
}

// ResultSubmission - результат, присланный одной стороной. Счет уже
// нормализован к clan1/clan2, а не "наш/их".
type ResultSubmission struct {
	MatchID            int64               `json:"matchId"`
	Side               Side                `json:"side"`
	ClanID             int64               `json:"clanId"`
	SubmittedBy        string              `json:"submittedBy"`
	Score              Score               `json:"score"`
	PlayerPerformances []PlayerPerformance `json:"playerPerformances"`
	SubmittedAt        time.Time           `json:"submittedAt"`
}

// Resolution - решение администратора по спорному матчу. Score пуст, если
// администратор только назначил победителя.
type Resolution struct {
	ResolvedBy         string              `json:"resolvedBy"`
	Score              *Score              `json:"score,omitempty"`
	WinnerID           int64               `json:"winnerId"`
	PlayerPerformances []PlayerPerformance `json:"playerPerformances,omitempty"`
	Note               string              `json:"note,omitempty"`
	ResolvedAt         time.Time           `json:"resolvedAt"`
}

// ConflictData хранит обе исходные заявки. После решения конфликта
// данные не удаляются, а дополняются Resolution.
type ConflictData struct {
	Clan1Submission ResultSubmission `json:"clan1Submission"`
	Clan2Submission ResultSubmission `json:"clan2Submission"`
	DetectedAt      time.Time        `json:"detectedAt"`
	Resolution      *Resolution      `json:"resolution,omitempty"`
}

// PlayerTotals - строка таблицы лидеров.
type PlayerTotals struct {
	PlayerAddress string `json:"playerAddress"`
	DisplayName   string `json:"displayName"`
	Matches       int    `json:"matches"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	TotalScore    int    `json:"totalScore"`
	MVPs          int    `json:"mvps"`
}
