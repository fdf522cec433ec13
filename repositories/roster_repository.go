package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/tundra-matches/models"
)

type RosterRepository interface {
	// ListConfirmed возвращает подтвержденных игроков обеих сторон матча.
	ListConfirmed(ctx context.Context, exec SQLExecutor, matchID int64) ([]models.RosterEntry, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) ListConfirmed(ctx context.Context, exec SQLExecutor, matchID int64) ([]models.RosterEntry, error) {
	query := `
		SELECT match_id, clan_id, wallet_address, display_name, confirmed, created_at
		FROM match_rosters
		WHERE match_id = $1 AND confirmed
		ORDER BY clan_id ASC, created_at ASC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.RosterEntry, 0)
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(&e.MatchID, &e.ClanID, &e.WalletAddress, &e.DisplayName, &e.Confirmed, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
