package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tundra-matches/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchClanInvalid = errors.New("match clan conflict or invalid")
)

type MatchRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error)
	// GetForUpdate блокирует строку матча до конца транзакции. Все изменяющие
	// операции начинаются с него, так решения по матчу сериализуются.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int64) ([]*models.Match, error)
	// ListScheduledBetween returns ready matches whose agreed time is in (from, to].
	ListScheduledBetween(ctx context.Context, exec SQLExecutor, from, to time.Time) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, bracket_id, round, position, clan1_id, clan2_id, status, scheduled_at,
	winner_clan_id, clan1_score, clan2_score, conflict_data, player_performances,
	completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m            models.Match
		rawStatus    string
		clan1Score   sql.NullInt64
		clan2Score   sql.NullInt64
		winnerID     sql.NullInt64
		conflictJSON []byte
		perfJSON     []byte
	)
	err := row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.BracketID,
		&m.Round,
		&m.Position,
		&m.Clan1ID,
		&m.Clan2ID,
		&rawStatus,
		&m.ScheduledAt,
		&winnerID,
		&clan1Score,
		&clan2Score,
		&conflictJSON,
		&perfJSON,
		&m.CompletedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	status, err := models.NormalizeStatus(rawStatus, m.ScheduledAt != nil)
	if err != nil {
		return nil, fmt.Errorf("match %d: %w", m.ID, err)
	}
	m.Status = status

	if winnerID.Valid {
		id := winnerID.Int64
		m.WinnerID = &id
	}
	if clan1Score.Valid && clan2Score.Valid {
		m.Score = &models.Score{Clan1: int(clan1Score.Int64), Clan2: int(clan2Score.Int64)}
	}
	if len(conflictJSON) > 0 {
		var cd models.ConflictData
		if err := json.Unmarshal(conflictJSON, &cd); err != nil {
			return nil, fmt.Errorf("match %d: failed to decode conflict data: %w", m.ID, err)
		}
		m.ConflictData = &cd
	}
	if len(perfJSON) > 0 {
		if err := json.Unmarshal(perfJSON, &m.PlayerPerformances); err != nil {
			return nil, fmt.Errorf("match %d: failed to decode player performances: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int64) (*models.Match, error) {
	match, err := scanMatch(getExecutor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int64) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int64) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY bracket_id ASC, round ASC, position ASC, id ASC`
	return r.list(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) ListScheduledBetween(ctx context.Context, exec SQLExecutor, from, to time.Time) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE status IN ('ready', 'scheduled') AND scheduled_at > $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC`
	return r.list(ctx, exec, query, from, to)
}

func (r *postgresMatchRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	var clan1Score, clan2Score *int
	if match.Score != nil {
		clan1Score, clan2Score = &match.Score.Clan1, &match.Score.Clan2
	}

	var conflictJSON, perfJSON []byte
	var err error
	if match.ConflictData != nil {
		if conflictJSON, err = json.Marshal(match.ConflictData); err != nil {
			return fmt.Errorf("failed to encode conflict data: %w", err)
		}
	}
	if match.PlayerPerformances != nil {
		if perfJSON, err = json.Marshal(match.PlayerPerformances); err != nil {
			return fmt.Errorf("failed to encode player performances: %w", err)
		}
	}

	query := `
		UPDATE matches
		SET status = $1, scheduled_at = $2, winner_clan_id = $3, clan1_score = $4, clan2_score = $5,
		    conflict_data = $6, player_performances = $7, completed_at = $8, updated_at = $9
		WHERE id = $10`

	result, err := getExecutor(r.db, exec).ExecContext(ctx, query,
		match.Status,
		match.ScheduledAt,
		match.WinnerID,
		clan1Score,
		clan2Score,
		nullableJSON(conflictJSON),
		nullableJSON(perfJSON),
		match.CompletedAt,
		match.UpdatedAt,
		match.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkRowsAffected(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if code, constraint, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation {
		switch constraint {
		case "matches_clan1_id_fkey", "matches_clan2_id_fkey", "matches_winner_clan_id_fkey":
			return ErrMatchClanInvalid
		}
	}
	return err
}

// nullableJSON отдает nil вместо пустого среза, чтобы в jsonb попал NULL.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
