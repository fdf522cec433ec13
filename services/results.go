package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
	"github.com/Dosada05/tundra-matches/utils"
)

// RelativeScore - счет в терминах "наш/их", как его вводит сторона.
type RelativeScore struct {
	Own      int
	Opponent int
}

// PlayerPerformanceInput - статистика игрока в том виде, в каком она пришла.
// Kills и Deaths обязательны, поэтому указатели.
type PlayerPerformanceInput struct {
	PlayerAddress string
	DisplayName   string
	ClanID        int64
	Kills         *int
	Deaths        *int
	Assists       *int
	MVP           bool
}

type SubmitResultInput struct {
	MatchID int64
	// Side можно не указывать: сторона выводится из прав отправителя.
	Side models.Side
	// Ровно одно из Score и Relative.
	Score              *models.Score
	Relative           *RelativeScore
	PlayerPerformances []PlayerPerformanceInput
}

// SubmitResult сохраняет результат одной стороны и, если обе стороны
// отчитались, сверяет их под блокировкой матча.
func (s *matchService) SubmitResult(ctx context.Context, actor Actor, input SubmitResultInput) (*models.Match, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}

	v := newValidationError()
	validateScoreInput(v, input.Score, input.Relative)
	validatePerformanceInputs(v, input.PlayerPerformances)
	if input.Side != "" && !input.Side.IsValid() {
		v.Add("side", "must be clan1 or clan2")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var match *models.Match
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		mc, err := s.lockMatch(ctx, exec, input.MatchID)
		if err != nil {
			return err
		}
		match = mc.match
		now := s.now()

		switch status := match.EffectiveStatus(now); status {
		case models.StatusActive, models.StatusResultsPending:
		case models.StatusCompleted:
			return ErrAlreadyFinalized
		case models.StatusResultsConflict:
			return ErrResultsFrozen
		default:
			return fmt.Errorf("%w (status %s)", ErrMatchNotStarted, status)
		}

		side, err := resolveSubmitterSide(mc, actor.Wallet, input.Side)
		if err != nil {
			return err
		}

		score := normalizeScore(side, input.Score, input.Relative)
		perfs, err := buildPerformances(match, input.PlayerPerformances)
		if err != nil {
			return err
		}

		submission := &models.ResultSubmission{
			MatchID:            match.ID,
			Side:               side,
			ClanID:             match.ClanID(side),
			SubmittedBy:        actor.Wallet,
			Score:              score,
			PlayerPerformances: perfs,
			SubmittedAt:        now,
		}
		if err := s.repos.Submissions.Upsert(ctx, exec, submission); err != nil {
			return handleRepositoryError(err)
		}

		submissions, err := s.repos.Submissions.ListByMatch(ctx, exec, match.ID)
		if err != nil {
			return fmt.Errorf("failed to load submissions of match %d: %w", match.ID, err)
		}
		bySide := make(map[models.Side]*models.ResultSubmission, len(submissions))
		for _, sub := range submissions {
			bySide[sub.Side] = sub
		}
		clan1Sub, clan2Sub := bySide[models.SideClan1], bySide[models.SideClan2]

		switch {
		case clan1Sub == nil || clan2Sub == nil:
			if err := transition(match, models.StatusResultsPending); err != nil {
				return err
			}
		case clan1Sub.Score == clan2Sub.Score:
			if err := s.completeMatch(ctx, exec, match, clan1Sub.Score, mergePerformances(match, clan1Sub, clan2Sub), now); err != nil {
				return err
			}
		default:
			match.ConflictData = &models.ConflictData{
				Clan1Submission: *clan1Sub,
				Clan2Submission: *clan2Sub,
				DetectedAt:      now,
			}
			if err := transition(match, models.StatusResultsConflict); err != nil {
				return err
			}
		}
		return s.saveMatch(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("result submitted",
		slog.Int64("match_id", match.ID),
		slog.String("submitted_by", actor.Wallet),
		slog.String("status", string(match.Status)),
	)
	return s.publish(ctx, match), nil
}

// completeMatch переводит матч в completed с указанным счетом и сохраняет
// статистику игроков для таблицы лидеров.
func (s *matchService) completeMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, score models.Score, perfs []models.PlayerPerformance, now time.Time) error {
	winnerSide, ok := score.Winner()
	if !ok {
		return fmt.Errorf("%w: score cannot be a tie", ErrValidationFailed)
	}
	winnerID := match.ClanID(winnerSide)
	settleMVP(perfs, winnerID)

	if err := transition(match, models.StatusCompleted); err != nil {
		return err
	}
	finalScore := score
	completedAt := now
	match.Score = &finalScore
	match.WinnerID = &winnerID
	match.PlayerPerformances = perfs
	match.CompletedAt = &completedAt

	if err := s.repos.PlayerStats.ReplaceForMatch(ctx, exec, match.TournamentID, match.ID, perfs); err != nil {
		return fmt.Errorf("failed to store player stats of match %d: %w", match.ID, err)
	}
	return nil
}

func resolveSubmitterSide(mc *matchContext, wallet string, requested models.Side) (models.Side, error) {
	sides := mc.sidesOf(wallet)
	if requested != "" {
		for _, side := range sides {
			if side == requested {
				return side, nil
			}
		}
		return "", fmt.Errorf("%w: not an organizer of %s", ErrNotParticipant, requested)
	}
	switch len(sides) {
	case 0:
		return "", ErrNotParticipant
	case 1:
		return sides[0], nil
	}
	return "", ErrAmbiguousSubmitter
}

func validateScoreInput(v *ValidationError, score *models.Score, relative *RelativeScore) {
	var a, b int
	switch {
	case score != nil && relative != nil:
		v.Add("score", "give either clan1Score/clan2Score or ownScore/opponentScore, not both")
		return
	case score != nil:
		a, b = score.Clan1, score.Clan2
	case relative != nil:
		a, b = relative.Own, relative.Opponent
	default:
		v.Add("score", "is required")
		return
	}
	if a < 0 || b < 0 {
		v.Add("score", "must be non-negative")
		return
	}
	if a == b {
		v.Add("score", "scores cannot be equal")
	}
}

// normalizeScore переводит счет стороны в термины clan1/clan2.
func normalizeScore(side models.Side, score *models.Score, relative *RelativeScore) models.Score {
	if score != nil {
		return *score
	}
	if side == models.SideClan1 {
		return models.Score{Clan1: relative.Own, Clan2: relative.Opponent}
	}
	return models.Score{Clan1: relative.Opponent, Clan2: relative.Own}
}

func validatePerformanceInputs(v *ValidationError, inputs []PlayerPerformanceInput) {
	seen := make(map[string]bool, len(inputs))
	mvps := 0
	for i, in := range inputs {
		if in.MVP {
			mvps++
		}
		field := fmt.Sprintf("playerPerformances[%d]", i)
		address, err := utils.NormalizeAddress(in.PlayerAddress)
		switch {
		case err != nil:
			v.Add(field+".playerAddress", "must be a valid wallet address")
		case seen[address]:
			v.Add(field+".playerAddress", "is listed twice")
		default:
			seen[address] = true
		}

		if in.ClanID == 0 {
			v.Add(field+".clanId", "is required")
		}
		if in.Kills == nil || in.Deaths == nil {
			v.Add(field, "kills and deaths are required for every listed player")
			continue
		}
		if *in.Kills < 0 || *in.Deaths < 0 || (in.Assists != nil && *in.Assists < 0) {
			v.Add(field, "stats must be non-negative")
		}
	}
	if mvps > 1 {
		v.Add("playerPerformances", "only one player can be marked as mvp")
	}
}

// buildPerformances проверяет кланы игроков относительно матча и считает очки.
// Входные данные уже прошли validatePerformanceInputs.
func buildPerformances(match *models.Match, inputs []PlayerPerformanceInput) ([]models.PlayerPerformance, error) {
	v := newValidationError()
	perfs := make([]models.PlayerPerformance, 0, len(inputs))
	for i, in := range inputs {
		if _, ok := match.SideOfClan(in.ClanID); !ok {
			v.Add(fmt.Sprintf("playerPerformances[%d].clanId", i), "must be one of the match clans")
			continue
		}
		address, _ := utils.NormalizeAddress(in.PlayerAddress)
		assists := 0
		if in.Assists != nil {
			assists = *in.Assists
		}
		perfs = append(perfs, models.PlayerPerformance{
			PlayerAddress: address,
			DisplayName:   in.DisplayName,
			ClanID:        in.ClanID,
			Kills:         *in.Kills,
			Deaths:        *in.Deaths,
			Assists:       assists,
			Score:         models.PerformanceScore(*in.Kills, *in.Deaths, assists),
			MVP:           in.MVP,
		})
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return perfs, nil
}

// mergePerformances собирает итоговую статистику из двух согласованных
// заявок. Про игрока верим отчету его собственного клана, отчет соперника
// используется только для игроков, которых свой клан не указал.
func mergePerformances(match *models.Match, submissions ...*models.ResultSubmission) []models.PlayerPerformance {
	byPlayer := make(map[string]models.PlayerPerformance)
	ownReport := make(map[string]bool)

	for _, sub := range submissions {
		for _, p := range sub.PlayerPerformances {
			own := p.ClanID == sub.ClanID
			if _, exists := byPlayer[p.PlayerAddress]; exists && (ownReport[p.PlayerAddress] || !own) {
				continue
			}
			byPlayer[p.PlayerAddress] = p
			ownReport[p.PlayerAddress] = own
		}
	}

	merged := make([]models.PlayerPerformance, 0, len(byPlayer))
	for _, p := range byPlayer {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		si, _ := match.SideOfClan(merged[i].ClanID)
		sj, _ := match.SideOfClan(merged[j].ClanID)
		if si != sj {
			return si < sj
		}
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].PlayerAddress < merged[j].PlayerAddress
	})
	return merged
}

// settleMVP оставляет в матче ровно одного MVP. Если стороны отметили
// разных игроков, побеждает отметка клана-победителя, среди равных - лучший
// по очкам. Без отметок MVP становится лучший игрок победителя.
func settleMVP(perfs []models.PlayerPerformance, winnerClanID int64) {
	better := func(i, j int) bool {
		if j < 0 {
			return true
		}
		if perfs[i].Score != perfs[j].Score {
			return perfs[i].Score > perfs[j].Score
		}
		return perfs[i].PlayerAddress < perfs[j].PlayerAddress
	}

	flaggedWinner, flaggedAny, topWinner := -1, -1, -1
	for i, p := range perfs {
		if p.MVP {
			if better(i, flaggedAny) {
				flaggedAny = i
			}
			if p.ClanID == winnerClanID && better(i, flaggedWinner) {
				flaggedWinner = i
			}
		}
		if p.ClanID == winnerClanID && better(i, topWinner) {
			topWinner = i
		}
	}

	keep := flaggedWinner
	if keep < 0 {
		keep = flaggedAny
	}
	if keep < 0 {
		keep = topWinner
	}
	for i := range perfs {
		perfs[i].MVP = i == keep
	}
}
