package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/services"
	"github.com/google/uuid"
)

type proposeTimeRequest struct {
	MatchID         int64     `json:"matchId"`
	ProposedTime    time.Time `json:"proposedTime"`
	ProposedBy      string    `json:"proposedBy,omitempty"`
	ReplaceExisting bool      `json:"replaceExisting,omitempty"`
}

type respondToTimeRequest struct {
	TimeSlotID  string `json:"timeSlotId"`
	Action      string `json:"action"`
	RespondedBy string `json:"respondedBy,omitempty"`
}

// parseDecision принимает и "accepted/rejected", и "accept/reject".
func parseDecision(action string) models.ProposalDecision {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "accepted", "accept":
		return models.DecisionAccept
	case "rejected", "reject":
		return models.DecisionReject
	}
	return models.ProposalDecision(action)
}

// ProposeTime - POST /matches/schedule
func (h *MatchHandler) ProposeTime(w http.ResponseWriter, r *http.Request) {
	var input proposeTimeRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.MatchID <= 0 {
		failedValidationResponse(w, r, map[string]string{"matchId": "is required"})
		return
	}

	actor, ok := resolveActor(w, r, input.ProposedBy)
	if !ok {
		return
	}

	proposal, err := h.matchService.ProposeTime(r.Context(), actor, services.ProposeTimeInput{
		MatchID:         input.MatchID,
		ProposedTime:    input.ProposedTime,
		ReplaceExisting: input.ReplaceExisting,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"proposal": proposal}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RespondToTime - PATCH /matches/schedule
func (h *MatchHandler) RespondToTime(w http.ResponseWriter, r *http.Request) {
	var input respondToTimeRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	proposalID, err := uuid.Parse(input.TimeSlotID)
	if err != nil {
		failedValidationResponse(w, r, map[string]string{"timeSlotId": "must be a valid id"})
		return
	}

	actor, ok := resolveActor(w, r, input.RespondedBy)
	if !ok {
		return
	}

	match, err := h.matchService.RespondToTime(r.Context(), actor, services.RespondToTimeInput{
		ProposalID: proposalID,
		Decision:   parseDecision(input.Action),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListProposals - GET /matches/schedule?matchId=
func (h *MatchHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromQuery(r, "matchId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	proposals, err := h.matchService.ListProposals(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"proposals": proposals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
