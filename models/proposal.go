package models

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalPending    ProposalStatus = "pending"
	ProposalAccepted   ProposalStatus = "accepted"
	ProposalRejected   ProposalStatus = "rejected"
	ProposalSuperseded ProposalStatus = "superseded"
)

type ProposalDecision string

const (
	DecisionAccept ProposalDecision = "accepted"
	DecisionReject ProposalDecision = "rejected"
)

func (d ProposalDecision) IsValid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// TimeProposal - предложение времени матча. Активным считается только pending,
// остальные хранятся как история.
type TimeProposal struct {
	ID           uuid.UUID      `json:"id"`
	MatchID      int64          `json:"matchId"`
	ProposedTime time.Time      `json:"proposedTime"`
	ProposedBy   string         `json:"proposedBy"`
	ProposerSide Side           `json:"proposerSide"`
	Status       ProposalStatus `json:"status"`
	RespondedBy  *string        `json:"respondedBy,omitempty"`
	RespondedAt  *time.Time     `json:"respondedAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}
