package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
	"github.com/google/uuid"
	"github.com/itbasis/go-clock"
)

// Actor - аутентифицированный вызывающий. Wallet уже нормализован.
type Actor struct {
	Wallet string
	Admin  bool
}

// MatchService - единственная точка, через которую проходят все изменения
// матча: расписание, результаты и решения администратора.
type MatchService interface {
	ProposeTime(ctx context.Context, actor Actor, input ProposeTimeInput) (*models.TimeProposal, error)
	RespondToTime(ctx context.Context, actor Actor, input RespondToTimeInput) (*models.Match, error)
	ListProposals(ctx context.Context, matchID int64) ([]*models.TimeProposal, error)

	SubmitResult(ctx context.Context, actor Actor, input SubmitResultInput) (*models.Match, error)

	ResolveConflict(ctx context.Context, actor Actor, input ResolveConflictInput) (*models.Match, error)
	SetWinner(ctx context.Context, actor Actor, matchID, winnerClanID int64) (*models.Match, error)
	MarkActive(ctx context.Context, actor Actor, matchID int64) (*models.Match, error)

	GetMatch(ctx context.Context, matchID int64) (*models.Match, error)
	ListTournamentMatches(ctx context.Context, tournamentID int64, status *models.MatchStatus) ([]*models.Match, error)
	GetRoster(ctx context.Context, matchID int64) (*models.MatchRoster, error)
	Leaderboard(ctx context.Context, tournamentID int64, limit int) ([]models.PlayerTotals, error)
}

// MatchNotifier получает матч после каждого зафиксированного изменения.
type MatchNotifier interface {
	MatchUpdated(ctx context.Context, match *models.Match)
}

// ResolutionArchiver сохраняет копию решения администратора вне базы.
type ResolutionArchiver interface {
	ArchiveResolution(ctx context.Context, match *models.Match) (string, error)
}

type nopNotifier struct{}

func (nopNotifier) MatchUpdated(context.Context, *models.Match) {}

type Repositories struct {
	Matches     repositories.MatchRepository
	Clans       repositories.ClanRepository
	Proposals   repositories.ProposalRepository
	Submissions repositories.SubmissionRepository
	Rosters     repositories.RosterRepository
	PlayerStats repositories.PlayerStatsRepository
}

type matchService struct {
	tx       repositories.TxRunner
	repos    Repositories
	clock    clock.Clock
	notifier MatchNotifier
	archiver ResolutionArchiver
	logger   *slog.Logger
	newID    func() uuid.UUID
}

type Option func(*matchService)

func WithNotifier(n MatchNotifier) Option {
	return func(s *matchService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithArchiver(a ResolutionArchiver) Option {
	return func(s *matchService) { s.archiver = a }
}

func NewMatchService(
	tx repositories.TxRunner,
	repos Repositories,
	clk clock.Clock,
	logger *slog.Logger,
	opts ...Option,
) MatchService {
	s := &matchService{
		tx:       tx,
		repos:    repos,
		clock:    clk,
		notifier: nopNotifier{},
		logger:   logger,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *matchService) now() time.Time {
	return s.clock.Now().UTC()
}

// matchContext - матч, загруженный под блокировкой, вместе с кланами.
type matchContext struct {
	match *models.Match
	clan1 *models.Clan
	clan2 *models.Clan
}

func (mc *matchContext) clan(side models.Side) *models.Clan {
	if side == models.SideClan1 {
		return mc.clan1
	}
	return mc.clan2
}

// sidesOf returns every side the wallet organizes. Usually one, two when
// the same wallet leads both clans.
func (mc *matchContext) sidesOf(wallet string) []models.Side {
	var sides []models.Side
	if mc.clan1.IsOrganizer(wallet) {
		sides = append(sides, models.SideClan1)
	}
	if mc.clan2.IsOrganizer(wallet) {
		sides = append(sides, models.SideClan2)
	}
	return sides
}

// lockMatch блокирует строку матча в текущей транзакции и подгружает кланы.
func (s *matchService) lockMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int64) (*matchContext, error) {
	match, err := s.repos.Matches.GetForUpdate(ctx, exec, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.withClans(ctx, exec, match)
}

func (s *matchService) withClans(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*matchContext, error) {
	clan1, err := s.repos.Clans.GetByID(ctx, exec, match.Clan1ID)
	if err != nil {
		return nil, fmt.Errorf("match %d clan1: %w", match.ID, handleRepositoryError(err))
	}
	clan2, err := s.repos.Clans.GetByID(ctx, exec, match.Clan2ID)
	if err != nil {
		return nil, fmt.Errorf("match %d clan2: %w", match.ID, handleRepositoryError(err))
	}
	match.Clan1, match.Clan2 = clan1, clan2
	return &matchContext{match: match, clan1: clan1, clan2: clan2}, nil
}

func (s *matchService) saveMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.UpdatedAt = s.now()
	if err := s.repos.Matches.Update(ctx, exec, match); err != nil {
		return handleRepositoryError(err)
	}
	return nil
}

// publish отдает наружу итоговое представление матча после коммита.
// Если перечитать не удалось, используется состояние из транзакции:
// изменение уже зафиксировано.
func (s *matchService) publish(ctx context.Context, committed *models.Match) *models.Match {
	match, err := s.GetMatch(ctx, committed.ID)
	if err != nil {
		s.logger.Error("failed to reload match after update", slog.Int64("match_id", committed.ID), slog.Any("error", err))
		match = committed
		match.Status = match.EffectiveStatus(s.now())
	}
	s.notifier.MatchUpdated(ctx, match)
	return match
}
