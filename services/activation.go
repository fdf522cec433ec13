package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
	"github.com/go-co-op/gocron/v2"
	"github.com/itbasis/go-clock"
)

// ActivationNotifier узнает о матчах, чье согласованное время наступило.
type ActivationNotifier interface {
	MatchActivated(ctx context.Context, match *models.Match)
}

// ActivationSweeper периодически находит ready-матчи, время которых прошло
// с прошлого прохода, и объявляет их начало. Статус при этом не пишется:
// active для них по-прежнему выводится при чтении.
type ActivationSweeper struct {
	matches  repositories.MatchRepository
	clock    clock.Clock
	notifier ActivationNotifier
	logger   *slog.Logger

	mu        sync.Mutex
	lastSweep time.Time
}

func NewActivationSweeper(matches repositories.MatchRepository, clk clock.Clock, notifier ActivationNotifier, logger *slog.Logger) *ActivationSweeper {
	return &ActivationSweeper{
		matches:   matches,
		clock:     clk,
		notifier:  notifier,
		logger:    logger,
		lastSweep: clk.Now().UTC(),
	}
}

// Sweep объявляет матчи со временем в (прошлый проход, сейчас].
func (a *ActivationSweeper) Sweep(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now().UTC()
	matches, err := a.matches.ListScheduledBetween(ctx, nil, a.lastSweep, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list matches scheduled up to %s: %w", now.Format(time.RFC3339), err)
	}
	for _, m := range matches {
		m.Status = m.EffectiveStatus(now)
		a.notifier.MatchActivated(ctx, m)
	}
	a.lastSweep = now
	return len(matches), nil
}

// Start запускает Sweep по расписанию. Остановка - через Shutdown планировщика.
func (a *ActivationSweeper) Start(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := a.Sweep(ctx)
			if err != nil {
				a.logger.Error("activation sweep failed", slog.Any("error", err))
				return
			}
			if n > 0 {
				a.logger.Info("matches became active", slog.Int("count", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register activation job: %w", err)
	}

	sched.Start()
	return sched, nil
}
