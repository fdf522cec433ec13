package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/tundra-matches/models"
)

var ErrSubmissionMatchInvalid = errors.New("result submission match or clan conflict or invalid")

type SubmissionRepository interface {
	// Upsert сохраняет заявку стороны. Повторная заявка той же стороны
	// перезаписывает прежнюю, заявка другой стороны не трогается.
	Upsert(ctx context.Context, exec SQLExecutor, submission *models.ResultSubmission) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int64) ([]*models.ResultSubmission, error)
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

func (r *postgresSubmissionRepository) Upsert(ctx context.Context, exec SQLExecutor, submission *models.ResultSubmission) error {
	perfs := submission.PlayerPerformances
	if perfs == nil {
		perfs = []models.PlayerPerformance{}
	}
	perfJSON, err := json.Marshal(perfs)
	if err != nil {
		return fmt.Errorf("failed to encode player performances: %w", err)
	}

	query := `
		INSERT INTO match_result_submissions
			(match_id, side, clan_id, submitted_by, clan1_score, clan2_score, player_performances, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id, side) DO UPDATE
		SET clan_id = EXCLUDED.clan_id,
		    submitted_by = EXCLUDED.submitted_by,
		    clan1_score = EXCLUDED.clan1_score,
		    clan2_score = EXCLUDED.clan2_score,
		    player_performances = EXCLUDED.player_performances,
		    submitted_at = EXCLUDED.submitted_at`

	_, err = getExecutor(r.db, exec).ExecContext(ctx, query,
		submission.MatchID,
		submission.Side,
		submission.ClanID,
		submission.SubmittedBy,
		submission.Score.Clan1,
		submission.Score.Clan2,
		string(perfJSON),
		submission.SubmittedAt,
	)
	if err != nil {
		if code, _, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation {
			return ErrSubmissionMatchInvalid
		}
		return err
	}
	return nil
}

func (r *postgresSubmissionRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int64) ([]*models.ResultSubmission, error) {
	query := `
		SELECT match_id, side, clan_id, submitted_by, clan1_score, clan2_score, player_performances, submitted_at
		FROM match_result_submissions
		WHERE match_id = $1
		ORDER BY side ASC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]*models.ResultSubmission, 0, 2)
	for rows.Next() {
		var (
			s        models.ResultSubmission
			perfJSON []byte
		)
		if scanErr := rows.Scan(
			&s.MatchID,
			&s.Side,
			&s.ClanID,
			&s.SubmittedBy,
			&s.Score.Clan1,
			&s.Score.Clan2,
			&perfJSON,
			&s.SubmittedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		if err := json.Unmarshal(perfJSON, &s.PlayerPerformances); err != nil {
			return nil, fmt.Errorf("match %d side %s: failed to decode player performances: %w", matchID, s.Side, err)
		}
		submissions = append(submissions, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}
