package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/tundra-matches/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200
)

// GetMatch собирает полное представление матча: кланы и заявки результатов
// грузятся параллельно, статус выводится на текущий момент.
func (s *matchService) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	match, err := s.repos.Matches.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Кланы обеих сторон
	g.Go(func() error {
		clan, err := s.repos.Clans.GetByID(gCtx, nil, match.Clan1ID)
		if err != nil {
			return fmt.Errorf("failed to fetch clan1 %d of match %d: %w", match.Clan1ID, matchID, handleRepositoryError(err))
		}
		match.Clan1 = clan
		return nil
	})
	g.Go(func() error {
		clan, err := s.repos.Clans.GetByID(gCtx, nil, match.Clan2ID)
		if err != nil {
			return fmt.Errorf("failed to fetch clan2 %d of match %d: %w", match.Clan2ID, matchID, handleRepositoryError(err))
		}
		match.Clan2 = clan
		return nil
	})

	// 2. Заявки результатов
	g.Go(func() error {
		submissions, err := s.repos.Submissions.ListByMatch(gCtx, nil, matchID)
		if err != nil {
			return fmt.Errorf("failed to fetch submissions of match %d: %w", matchID, err)
		}
		if len(submissions) == 0 {
			return nil
		}
		match.ResultsSubmissions = make(map[models.Side]*models.ResultSubmission, len(submissions))
		for _, sub := range submissions {
			match.ResultsSubmissions[sub.Side] = sub
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	match.Status = match.EffectiveStatus(s.now())
	return match, nil
}

// ListTournamentMatches фильтрует по статусу уже после вывода ready -> active.
func (s *matchService) ListTournamentMatches(ctx context.Context, tournamentID int64, status *models.MatchStatus) ([]*models.Match, error) {
	if status != nil && !status.IsValid() {
		v := newValidationError()
		v.Add("status", fmt.Sprintf("unknown status %q", *status))
		return nil, v
	}

	matches, err := s.repos.Matches.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}

	now := s.now()
	result := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		m.Status = m.EffectiveStatus(now)
		if status != nil && m.Status != *status {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (s *matchService) GetRoster(ctx context.Context, matchID int64) (*models.MatchRoster, error) {
	match, err := s.repos.Matches.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	entries, err := s.repos.Rosters.ListConfirmed(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster of match %d: %w", matchID, err)
	}

	roster := &models.MatchRoster{
		MatchID: matchID,
		Clan1:   []models.RosterEntry{},
		Clan2:   []models.RosterEntry{},
	}
	for _, e := range entries {
		switch side, _ := match.SideOfClan(e.ClanID); side {
		case models.SideClan1:
			roster.Clan1 = append(roster.Clan1, e)
		case models.SideClan2:
			roster.Clan2 = append(roster.Clan2, e)
		}
	}
	return roster, nil
}

func (s *matchService) Leaderboard(ctx context.Context, tournamentID int64, limit int) ([]models.PlayerTotals, error) {
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		limit = MaxLeaderboardLimit
	}
	totals, err := s.repos.PlayerStats.Leaderboard(ctx, nil, tournamentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard of tournament %d: %w", tournamentID, err)
	}
	return totals, nil
}
