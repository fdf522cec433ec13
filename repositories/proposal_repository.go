package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/google/uuid"
)

var (
	ErrProposalNotFound = errors.New("time proposal not found")
	// ErrProposalPendingConflict - уникальный индекс не дал создать второе
	// pending-предложение для матча.
	ErrProposalPendingConflict = errors.New("match already has a pending time proposal")
	ErrProposalMatchInvalid    = errors.New("time proposal match conflict or invalid")
)

// ProposalRepository определяет интерфейс для работы с предложениями времени.
type ProposalRepository interface {
	// Create сохраняет новое предложение. ID генерируется сервисом.
	Create(ctx context.Context, exec SQLExecutor, proposal *models.TimeProposal) error

	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.TimeProposal, error)

	// GetPending возвращает активное предложение матча или ErrProposalNotFound.
	GetPending(ctx context.Context, exec SQLExecutor, matchID int64) (*models.TimeProposal, error)

	// ListByMatch возвращает предложения матча, самые новые первыми.
	// status == nil означает все статусы.
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int64, status *models.ProposalStatus) ([]*models.TimeProposal, error)

	// Close переводит pending-предложение в конечный статус.
	Close(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.ProposalStatus, respondedBy *string, respondedAt time.Time) error
}

type postgresProposalRepository struct {
	db *sql.DB
}

func NewPostgresProposalRepository(db *sql.DB) ProposalRepository {
	return &postgresProposalRepository{db: db}
}

const proposalColumns = `id, match_id, proposed_time, proposed_by, proposer_side, status, responded_by, responded_at, created_at`

func scanProposal(row rowScanner) (*models.TimeProposal, error) {
	p := &models.TimeProposal{}
	err := row.Scan(
		&p.ID,
		&p.MatchID,
		&p.ProposedTime,
		&p.ProposedBy,
		&p.ProposerSide,
		&p.Status,
		&p.RespondedBy,
		&p.RespondedAt,
		&p.CreatedAt,
	)
	return p, err
}

func (r *postgresProposalRepository) Create(ctx context.Context, exec SQLExecutor, proposal *models.TimeProposal) error {
	query := `
		INSERT INTO time_proposals (id, match_id, proposed_time, proposed_by, proposer_side, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		proposal.ID,
		proposal.MatchID,
		proposal.ProposedTime,
		proposal.ProposedBy,
		proposal.ProposerSide,
		proposal.Status,
	).Scan(&proposal.CreatedAt)

	if err != nil {
		if code, constraint, ok := pqErrorCode(err); ok {
			switch {
			case code == pqUniqueViolation && constraint == "time_proposals_one_pending":
				return ErrProposalPendingConflict
			case code == pqForeignKeyViolation:
				return ErrProposalMatchInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresProposalRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.TimeProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM time_proposals WHERE id = $1`
	p, err := scanProposal(getExecutor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to scan time proposal %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresProposalRepository) GetPending(ctx context.Context, exec SQLExecutor, matchID int64) (*models.TimeProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM time_proposals WHERE match_id = $1 AND status = 'pending'`
	p, err := scanProposal(getExecutor(r.db, exec).QueryRowContext(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to scan pending proposal of match %d: %w", matchID, err)
	}
	return p, nil
}

func (r *postgresProposalRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int64, status *models.ProposalStatus) ([]*models.TimeProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM time_proposals WHERE match_id = $1`
	args := []interface{}{matchID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals := make([]*models.TimeProposal, 0)
	for rows.Next() {
		p, scanErr := scanProposal(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		proposals = append(proposals, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *postgresProposalRepository) Close(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.ProposalStatus, respondedBy *string, respondedAt time.Time) error {
	query := `
		UPDATE time_proposals
		SET status = $1, responded_by = $2, responded_at = $3
		WHERE id = $4 AND status = 'pending'`

	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, status, respondedBy, respondedAt, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, ErrProposalNotFound)
}
