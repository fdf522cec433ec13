package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tundra-matches/models"
)

var ErrClanNotFound = errors.New("clan not found")

// ClanRepository только читает кланы: управление составом клана живет
// в другом сервисе.
type ClanRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Clan, error)
}

type postgresClanRepository struct {
	db *sql.DB
}

func NewPostgresClanRepository(db *sql.DB) ClanRepository {
	return &postgresClanRepository{db: db}
}

func (r *postgresClanRepository) GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Clan, error) {
	executor := getExecutor(r.db, exec)

	clan := &models.Clan{}
	err := executor.QueryRowContext(ctx,
		`SELECT id, name, tag, leader_address, created_at FROM clans WHERE id = $1`, id,
	).Scan(&clan.ID, &clan.Name, &clan.Tag, &clan.LeaderAddress, &clan.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClanNotFound
		}
		return nil, fmt.Errorf("failed to scan clan by id %d: %w", id, err)
	}

	rows, err := executor.QueryContext(ctx, `
		SELECT wallet_address, display_name, role, joined_at
		FROM clan_members
		WHERE clan_id = $1
		ORDER BY joined_at ASC, wallet_address ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of clan %d: %w", id, err)
	}
	defer rows.Close()

	clan.Members = make([]models.ClanMember, 0)
	for rows.Next() {
		var m models.ClanMember
		if err := rows.Scan(&m.WalletAddress, &m.DisplayName, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		clan.Members = append(clan.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clan, nil
}
