package handlers

import (
	"net/http"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/services"
)

type playerPerformanceRequest struct {
	PlayerAddress string `json:"playerAddress"`
	DisplayName   string `json:"displayName,omitempty"`
	ClanID        int64  `json:"clanId"`
	Kills         *int   `json:"kills"`
	Deaths        *int   `json:"deaths"`
	Assists       *int   `json:"assists,omitempty"`
	MVP           bool   `json:"mvp,omitempty"`
	// Score принимается, чтобы статистику из ответа API можно было отправить
	// обратно как есть. Сервер пересчитывает очки сам.
	Score *int `json:"score,omitempty"`
}

func (p playerPerformanceRequest) toInput() services.PlayerPerformanceInput {
	return services.PlayerPerformanceInput{
		PlayerAddress: p.PlayerAddress,
		DisplayName:   p.DisplayName,
		ClanID:        p.ClanID,
		Kills:         p.Kills,
		Deaths:        p.Deaths,
		Assists:       p.Assists,
		MVP:           p.MVP,
	}
}

func performanceInputs(in []playerPerformanceRequest) []services.PlayerPerformanceInput {
	out := make([]services.PlayerPerformanceInput, 0, len(in))
	for _, p := range in {
		out = append(out, p.toInput())
	}
	return out
}

type submitResultRequest struct {
	MatchID            int64                      `json:"matchId"`
	Side               models.Side                `json:"side,omitempty"`
	Clan1Score         *int                       `json:"clan1Score,omitempty"`
	Clan2Score         *int                       `json:"clan2Score,omitempty"`
	OwnScore           *int                       `json:"ownScore,omitempty"`
	OpponentScore      *int                       `json:"opponentScore,omitempty"`
	PlayerPerformances []playerPerformanceRequest `json:"playerPerformances,omitempty"`
	SubmittedBy        string                     `json:"submittedBy,omitempty"`
}

// scores собирает счет из одной из двух форм. Частично заполненная форма
// считается ошибкой валидации.
func (req submitResultRequest) scores() (*models.Score, *services.RelativeScore, map[string]string) {
	errs := map[string]string{}
	var score *models.Score
	var relative *services.RelativeScore

	switch {
	case req.Clan1Score != nil && req.Clan2Score != nil:
		score = &models.Score{Clan1: *req.Clan1Score, Clan2: *req.Clan2Score}
	case req.Clan1Score != nil || req.Clan2Score != nil:
		errs["score"] = "clan1Score and clan2Score must be given together"
	}
	switch {
	case req.OwnScore != nil && req.OpponentScore != nil:
		relative = &services.RelativeScore{Own: *req.OwnScore, Opponent: *req.OpponentScore}
	case req.OwnScore != nil || req.OpponentScore != nil:
		errs["score"] = "ownScore and opponentScore must be given together"
	}
	return score, relative, errs
}

// SubmitResult - POST /matches/results
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var input submitResultRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.MatchID <= 0 {
		failedValidationResponse(w, r, map[string]string{"matchId": "is required"})
		return
	}
	score, relative, errs := input.scores()
	if len(errs) > 0 {
		failedValidationResponse(w, r, errs)
		return
	}

	actor, ok := resolveActor(w, r, input.SubmittedBy)
	if !ok {
		return
	}

	match, err := h.matchService.SubmitResult(r.Context(), actor, services.SubmitResultInput{
		MatchID:            input.MatchID,
		Side:               input.Side,
		Score:              score,
		Relative:           relative,
		PlayerPerformances: performanceInputs(input.PlayerPerformances),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
