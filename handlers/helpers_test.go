package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := map[string]struct {
		err           error
		wantStatus    int
		wantCode      string
		wantRetryable bool
	}{
		"not found":        {err: services.ErrMatchNotFound, wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		"self approval":    {err: services.ErrSelfApproval, wantStatus: http.StatusForbidden, wantCode: CodeNotParticipant},
		"wrapped frozen":   {err: fmt.Errorf("match 1: %w", services.ErrResultsFrozen), wantStatus: http.StatusConflict, wantCode: CodeInvalidState},
		"finalized":        {err: services.ErrAlreadyFinalized, wantStatus: http.StatusConflict, wantCode: CodeAlreadyFinalized},
		"ambiguous":        {err: services.ErrAmbiguousSubmitter, wantStatus: http.StatusUnprocessableEntity, wantCode: CodeValidation},
		"unexpected":       {err: errors.New("connection reset"), wantStatus: http.StatusInternalServerError, wantCode: CodeInternal, wantRetryable: true},
		"proposal pending": {err: services.ErrProposalPending, wantStatus: http.StatusConflict, wantCode: CodeInvalidState},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body["code"])
			assert.Equal(t, tc.wantRetryable, body["retryable"])
		})
	}
}

func TestParseDecision(t *testing.T) {
	tests := map[string]models.ProposalDecision{
		"accepted":  models.DecisionAccept,
		"accept":    models.DecisionAccept,
		" Reject ":  models.DecisionReject,
		"rejected":  models.DecisionReject,
		"postponed": models.ProposalDecision("postponed"),
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseDecision(in))
		})
	}
}

func TestSubmitResultRequestScores(t *testing.T) {
	one, two := 1, 2

	tests := map[string]struct {
		req          submitResultRequest
		wantScore    *models.Score
		wantRelative *services.RelativeScore
		wantErr      bool
	}{
		"absolute": {
			req:       submitResultRequest{Clan1Score: &two, Clan2Score: &one},
			wantScore: &models.Score{Clan1: 2, Clan2: 1},
		},
		"relative": {
			req:          submitResultRequest{OwnScore: &one, OpponentScore: &two},
			wantRelative: &services.RelativeScore{Own: 1, Opponent: 2},
		},
		"partial absolute": {
			req:     submitResultRequest{Clan1Score: &one},
			wantErr: true,
		},
		"partial relative": {
			req:     submitResultRequest{OpponentScore: &one},
			wantErr: true,
		},
		"none": {
			req: submitResultRequest{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			score, relative, errs := tc.req.scores()
			assert.Equal(t, tc.wantErr, len(errs) > 0)
			assert.Equal(t, tc.wantScore, score)
			assert.Equal(t, tc.wantRelative, relative)
		})
	}
}
