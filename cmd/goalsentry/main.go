package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jbot-sports/goalsentry/internal/acca"
	"github.com/jbot-sports/goalsentry/internal/apifootball"
	"github.com/jbot-sports/goalsentry/internal/config"
	"github.com/jbot-sports/goalsentry/internal/engine"
	"github.com/jbot-sports/goalsentry/internal/health"
	"github.com/jbot-sports/goalsentry/internal/logger"
	"github.com/jbot-sports/goalsentry/internal/models"
	"github.com/jbot-sports/goalsentry/internal/storage"
	"github.com/jbot-sports/goalsentry/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.MaxFixtures, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	afClient := apifootball.NewClient(
		cfg.APIFootball.BaseURL,
		cfg.APIFootball.APIKey,
		cfg.APIFootball.Timeout,
		apifootball.ClientConfig{
			MaxRetries:        cfg.APIFootball.MaxRetries,
			RetryDelayBase:    cfg.APIFootball.RetryDelayBase,
			RequestsPerMinute: cfg.APIFootball.RequestsPerMinute,
		},
	)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(
			cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.DMChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	estimator := engine.NewEstimator(store, engineConfig(cfg))

	var sink engine.Sink = logSink{}
	if telegramClient != nil {
		sink = telegramClient
	}
	lifecycle := engine.NewLifecycle(sink, engineConfig(cfg))

	generator := acca.NewGenerator(afClient, acca.Config{
		Season:          cfg.APIFootball.Season,
		Stake:           cfg.Acca.Stake,
		Bookmaker:       cfg.Acca.Bookmaker,
		MajorLeagues:    cfg.Acca.MajorLeagues,
		FallbackLeagues: cfg.Acca.FallbackLeagues,
		MinFixtures:     cfg.Acca.MinFixtures,
		RetryBudget:     cfg.Acca.RetryBudget,
		OddsMin:         cfg.Acca.OddsMin,
		OddsMax:         cfg.Acca.OddsMax,
		Folds:           accaFolds(cfg),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		estimator.Shutdown()
		cancel()
	}()

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(cfg.Health.ListenAddr)
		healthServer.Start()
		defer healthServer.Shutdown(5 * time.Second)
		logger.Info("Health server listening on %s", cfg.Health.ListenAddr)
	}

	postAccas := func() {
		runAccaPost(ctx, generator, telegramClient)
	}

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, postAccas)
	}

	var accaCron *cron.Cron
	if cfg.Acca.Enabled {
		accaCron = cron.New()
		if _, err := accaCron.AddFunc(cfg.Acca.Schedule, postAccas); err != nil {
			logger.Fatal("Invalid acca schedule %q: %v", cfg.Acca.Schedule, err)
		}
		accaCron.Start()
		defer accaCron.Stop()
		logger.Info("Daily accumulators scheduled: %s", cfg.Acca.Schedule)
	}

	logger.Info("Starting goal alert loop (interval: %v, threshold: %.2f, lookahead: %dm)",
		cfg.APIFootball.PollInterval,
		cfg.Engine.Threshold,
		cfg.Engine.LookaheadMinutes,
	)

	ticker := time.NewTicker(cfg.APIFootball.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Poll cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
		if healthServer != nil {
			healthServer.MarkCycle()
		}
	}

	handleCycleResult(runPollCycle(ctx, afClient, estimator, lifecycle))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			handleCycleResult(runPollCycle(ctx, afClient, estimator, lifecycle))
			if err := store.RotateFixtures(); err != nil {
				logger.Warn("Failed to rotate fixture states: %v", err)
			}
		}
	}
}

// runPollCycle fetches the live fixtures, feeds each one through the
// estimator, and lets the lifecycle manager emit and resolve alerts. A
// failed statistics fetch for a single fixture is skipped, never fatal.
func runPollCycle(
	ctx context.Context,
	afClient *apifootball.Client,
	estimator *engine.Estimator,
	lifecycle *engine.Lifecycle,
) error {
	startTime := time.Now()

	fixtures, err := afClient.LiveFixtures(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch live fixtures: %w", err)
	}
	logger.Debug("Fetched %d live fixtures", len(fixtures))

	now := time.Now()
	live := make(map[int]bool, len(fixtures))
	processed := 0

	for i := range fixtures {
		fixture := &fixtures[i]
		live[fixture.FixtureID] = true

		if !fixture.InPlay() {
			continue
		}

		totals, err := afClient.FixtureStatistics(ctx, fixture.FixtureID)
		if err != nil {
			logger.Warn("Skipping fixture %d this cycle: %v", fixture.FixtureID, err)
			continue
		}

		if !estimator.Ingest(fixture.FixtureID, totals, now) {
			logger.Debug("Fixture %d baseline stored (cold start)", fixture.FixtureID)
			continue
		}

		prob := estimator.GoalProbability(fixture.FixtureID, fixture.Elapsed)
		pressure := estimator.PressureIndex(fixture.FixtureID)
		processed++

		logger.Debug("Fixture %d (%s) minute=%d score=%s pi=%.1f prob=%.2f",
			fixture.FixtureID, fixture.Match(), fixture.Elapsed, fixture.Score(), pressure, prob)

		lifecycle.Observe(engine.Observation{
			Fixture:     *fixture,
			Probability: prob,
			Pressure:    pressure,
			Sums:        estimator.WindowSums(fixture.FixtureID),
		})
	}

	for _, fid := range lifecycle.ResolveDeparted(live) {
		logger.Debug("Cleaned up alert state for departed fixture %d", fid)
	}
	for _, fid := range estimator.Tracked() {
		if !live[fid] {
			estimator.Forget(fid)
		}
	}
	estimator.EndCycle()

	logger.Info("Poll cycle completed in %v (%d fixtures scored, %d alerts active)",
		time.Since(startTime), processed, lifecycle.ActiveCount())
	return nil
}

// runAccaPost builds and delivers the day's accumulator slips.
func runAccaPost(ctx context.Context, generator *acca.Generator, telegramClient *telegram.Client) {
	slips, err := generator.Generate(ctx, time.Now())
	if err == acca.ErrNotEnoughFixtures {
		logger.Warn("Accumulator run skipped: %v", err)
		if telegramClient != nil {
			if sendErr := telegramClient.SendWarning("Not enough priced fixtures for ACCAs today."); sendErr != nil {
				logger.Warn("Failed to send accumulator warning: %v", sendErr)
			}
		}
		return
	}
	if err != nil {
		logger.Error("Accumulator generation failed: %v", err)
		return
	}

	if telegramClient == nil {
		logger.Info("Built %d accumulator slips (telegram disabled)", len(slips))
		return
	}
	if err := telegramClient.SendAccaSlips(slips); err != nil {
		logger.Error("Failed to send accumulators: %v", err)
		return
	}
	logger.Info("Posted %d accumulator slips", len(slips))
}

func engineConfig(cfg *config.Config) engine.Config {
	boosts := make([]engine.BoostWindow, 0, len(cfg.Engine.BoostWindows))
	for _, w := range cfg.Engine.BoostWindows {
		boosts = append(boosts, engine.BoostWindow{From: w.From, To: w.To})
	}
	return engine.Config{
		Threshold:          cfg.Engine.Threshold,
		Cooldown:           cfg.Engine.Cooldown,
		WindowHorizon:      cfg.Engine.WindowHorizon,
		LookaheadMinutes:   cfg.Engine.LookaheadMinutes,
		Grace:              cfg.Engine.Grace,
		ShotWeight:         cfg.Engine.ShotWeight,
		ShotOnGoalWeight:   cfg.Engine.ShotOnGoalWeight,
		CornerWeight:       cfg.Engine.CornerWeight,
		RedCardBonus:       cfg.Engine.RedCardBonus,
		PressureCeiling:    cfg.Engine.PressureCeiling,
		DecayRate:          cfg.Engine.DecayRate,
		ProbabilityCap:     cfg.Engine.ProbabilityCap,
		BoostAmount:        cfg.Engine.BoostAmount,
		BoostWindows:       boosts,
		CheckpointInterval: cfg.Engine.CheckpointInterval,
	}
}

func accaFolds(cfg *config.Config) []acca.Fold {
	folds := make([]acca.Fold, 0, len(cfg.Acca.Folds))
	for _, f := range cfg.Acca.Folds {
		folds = append(folds, acca.Fold{Title: f.Title, Size: f.Size, Min: f.Min, Max: f.Max, Badge: f.Badge})
	}
	return folds
}

// logSink stands in for Telegram when notifications are disabled.
type logSink struct{}

func (logSink) SendGoalAlert(card models.GoalCard) (int, error) {
	logger.Info("ALERT %s minute=%d score=%s prob=%.2f", card.Match, card.Minute, card.Score, card.Probability)
	return 0, nil
}

func (logSink) EditGoalAlert(_ int, card models.GoalCard) error {
	logger.Debug("ALERT UPDATE %s status=%s score=%s", card.Match, card.Status, card.Score)
	return nil
}

func (logSink) SendCelebration(card models.GoalCard) error {
	logger.Info("ALERT SUCCESS %s score=%s", card.Match, card.Score)
	return nil
}
