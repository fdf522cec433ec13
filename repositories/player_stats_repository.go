package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/tundra-matches/models"
)

// PlayerStatsRepository хранит итоговую статистику игроков по завершенным
// матчам и строит по ней таблицу лидеров.
type PlayerStatsRepository interface {
	ReplaceForMatch(ctx context.Context, exec SQLExecutor, tournamentID, matchID int64, perfs []models.PlayerPerformance) error
	Leaderboard(ctx context.Context, exec SQLExecutor, tournamentID int64, limit int) ([]models.PlayerTotals, error)
}

type postgresPlayerStatsRepository struct {
	db *sql.DB
}

func NewPostgresPlayerStatsRepository(db *sql.DB) PlayerStatsRepository {
	return &postgresPlayerStatsRepository{db: db}
}

func (r *postgresPlayerStatsRepository) ReplaceForMatch(ctx context.Context, exec SQLExecutor, tournamentID, matchID int64, perfs []models.PlayerPerformance) error {
	executor := getExecutor(r.db, exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM match_player_stats WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to clear stats of match %d: %w", matchID, err)
	}

	query := `
		INSERT INTO match_player_stats
			(match_id, tournament_id, player_address, display_name, clan_id, kills, deaths, assists, score, mvp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, p := range perfs {
		if _, err := executor.ExecContext(ctx, query,
			matchID, tournamentID, p.PlayerAddress, p.DisplayName, p.ClanID,
			p.Kills, p.Deaths, p.Assists, p.Score, p.MVP,
		); err != nil {
			return fmt.Errorf("failed to insert stats of player %s in match %d: %w", p.PlayerAddress, matchID, err)
		}
	}
	return nil
}

func (r *postgresPlayerStatsRepository) Leaderboard(ctx context.Context, exec SQLExecutor, tournamentID int64, limit int) ([]models.PlayerTotals, error) {
	query := `
		SELECT player_address,
		       MAX(display_name),
		       COUNT(*),
		       SUM(kills), SUM(deaths), SUM(assists), SUM(score),
		       COUNT(*) FILTER (WHERE mvp)
		FROM match_player_stats
		WHERE tournament_id = $1
		GROUP BY player_address
		ORDER BY SUM(score) DESC, player_address ASC
		LIMIT $2`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, tournamentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]models.PlayerTotals, 0)
	for rows.Next() {
		var t models.PlayerTotals
		if err := rows.Scan(&t.PlayerAddress, &t.DisplayName, &t.Matches, &t.Kills, &t.Deaths, &t.Assists, &t.TotalScore, &t.MVPs); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}
