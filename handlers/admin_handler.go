package handlers

import (
	"net/http"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/services"
)

type resolutionDataRequest struct {
	Clan1Score         *int                       `json:"clan1Score"`
	Clan2Score         *int                       `json:"clan2Score"`
	PlayerPerformances []playerPerformanceRequest `json:"playerPerformances,omitempty"`
	Note               string                     `json:"note,omitempty"`
}

type adminMatchRequest struct {
	MatchID         int64                  `json:"matchId"`
	WinnerID        *int64                 `json:"winnerId,omitempty"`
	ResolveConflict bool                   `json:"resolveConflict,omitempty"`
	ResolutionData  *resolutionDataRequest `json:"resolutionData,omitempty"`
	MarkActive      bool                   `json:"markActive,omitempty"`
	WalletAddress   string                 `json:"walletAddress,omitempty"`
}

func (req adminMatchRequest) validate() map[string]string {
	errs := map[string]string{}
	if req.MatchID <= 0 {
		errs["matchId"] = "is required"
	}

	actions := 0
	if req.WinnerID != nil {
		actions++
	}
	if req.ResolveConflict {
		actions++
		if req.ResolutionData == nil {
			errs["resolutionData"] = "is required to resolve a conflict"
		} else if req.ResolutionData.Clan1Score == nil || req.ResolutionData.Clan2Score == nil {
			errs["resolutionData"] = "clan1Score and clan2Score are required"
		}
	}
	if req.MarkActive {
		actions++
	}
	if actions != 1 {
		errs["action"] = "exactly one of winnerId, resolveConflict or markActive must be set"
	}
	return errs
}

// AdminUpdateMatch - PATCH /matches/admin
func (h *MatchHandler) AdminUpdateMatch(w http.ResponseWriter, r *http.Request) {
	var input adminMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if errs := input.validate(); len(errs) > 0 {
		failedValidationResponse(w, r, errs)
		return
	}

	actor, ok := resolveActor(w, r, input.WalletAddress)
	if !ok {
		return
	}

	var (
		match *models.Match
		err   error
	)
	switch {
	case input.WinnerID != nil:
		match, err = h.matchService.SetWinner(r.Context(), actor, input.MatchID, *input.WinnerID)
	case input.ResolveConflict:
		data := input.ResolutionData
		match, err = h.matchService.ResolveConflict(r.Context(), actor, services.ResolveConflictInput{
			MatchID:            input.MatchID,
			Score:              models.Score{Clan1: *data.Clan1Score, Clan2: *data.Clan2Score},
			PlayerPerformances: performanceInputs(data.PlayerPerformances),
			Note:               data.Note,
		})
	case input.MarkActive:
		match, err = h.matchService.MarkActive(r.Context(), actor, input.MatchID)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
