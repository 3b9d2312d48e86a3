// Package control assembles the node from configuration and manages its
// lifecycle: wallet unlock, chain session, alerting, persistence, health
// surface and the role-specific work loop.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/config"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/epoch"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/health"
	redisclient "github.com/jbonilla-tao/sn35-vali-burn/internal/infra/redis"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage/memory"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage/postgres"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/subtensor"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/wallet"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/miner"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/notify"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/validator"
)

// initRetrySleep is the pause between validator startup attempts when the
// chain cannot yet resolve the validator's UID.
const initRetrySleep = 10 * time.Second

// App is the assembled node. Exactly one of sweeper or burner is set,
// depending on the role the app was built for.
type App struct {
	cfg  *config.AppConfig
	role notify.Role
	log  *slog.Logger

	keystore *wallet.FileKeystore
	creds    *wallet.CredentialCache
	session  *subtensor.FailoverManager
	notifier notify.Notifier
	slack    *notify.Slack
	lifetime *notify.LifetimeRecorder
	reporter *notify.Reporter
	attempts storage.AttemptRepository

	healthServer *health.Server
	redisClient  *redisclient.Client
	db           *postgres.DB

	sweeper   *miner.StakeManager
	scheduler *epoch.Scheduler
	burner    *validator.Validator
}

// NewMinerApp assembles a stake-sweeping node.
func NewMinerApp(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	return newApp(ctx, cfg, notify.RoleMiner, log)
}

// NewValidatorApp assembles a weight-setting node.
func NewValidatorApp(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	return newApp(ctx, cfg, notify.RoleValidator, log)
}

func newApp(ctx context.Context, cfg *config.AppConfig, role notify.Role, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. Wallet. Key metadata loads eagerly; decryption happens here too so
	// a bad password fails the process before anything touches the chain.
	keystore, err := wallet.NewFileKeystore(cfg.Wallet.Path, cfg.Wallet.Name, cfg.Wallet.Hotkey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	creds := wallet.NewCredentialCache(log)
	if err := wallet.UnlockForStaking(keystore, creds,
		cfg.Wallet.PasswordEnv, cfg.Wallet.EnvFile, cfg.Wallet.PasswordFile, log); err != nil {
		return nil, fmt.Errorf("unlock wallet: %w", err)
	}
	log.Info("Wallet unlocked",
		"coldkey", domain.TruncateAddress(keystore.ColdkeyAddress()),
		"hotkey", domain.TruncateAddress(keystore.HotkeyAddress()))

	// 2. Lifetime metrics. Redis when configured, local file otherwise.
	var redisClient *redisclient.Client
	var lifetimeStore notify.LifetimeStore
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis; using file lifetime store", "error", err)
		} else {
			lifetimeStore = redisclient.NewLifetimeStore(redisClient, role)
			log.Info("Using Redis lifetime store")
		}
	}
	if lifetimeStore == nil {
		lifetimeStore = notify.NewFileLifetimeStore(cfg.Alerts.MetricsFile)
	}
	lifetime, err := notify.NewLifetimeRecorder(lifetimeStore)
	if err != nil {
		log.Warn("Failed to load lifetime metrics; starting from zero", "error", err)
		lifetime, err = notify.NewLifetimeRecorder(notify.NewFileLifetimeStore(cfg.Alerts.MetricsFile))
		if err != nil {
			return nil, fmt.Errorf("init lifetime metrics: %w", err)
		}
	}

	// 3. Alerting. Public IP lookup only runs when alerts can use it.
	publicIP := ""
	if cfg.Alerts.WebhookURL != "" {
		publicIP = notify.DetectPublicIP(ctx)
	}
	slack := notify.NewSlack(notify.SlackOptions{
		WebhookURL:      cfg.Alerts.WebhookURL,
		ErrorWebhookURL: cfg.Alerts.ErrorWebhookURL,
		Role:            role,
		Hotkey:          keystore.HotkeyAddress(),
		PublicIP:        publicIP,
		Uptime:          lifetime.Uptime(),
	}, log)
	var notifier notify.Notifier = notify.Noop{}
	if slack != nil {
		notifier = slack
	} else {
		log.Info("No webhook configured; alerts disabled")
	}

	// 4. Chain session with round-robin failover.
	dial := func(network domain.Network) (subtensor.Client, error) {
		return subtensor.NewRPCClient(network, cfg.Subtensor.EndpointDomain,
			keystore, cfg.Subtensor.RequestTimeout, log), nil
	}
	rotator, err := subtensor.NewRotator(domain.DefaultNetworks, cfg.Subtensor.Network, dial, log)
	if err != nil {
		return nil, fmt.Errorf("init chain session: %w", err)
	}
	session := subtensor.NewFailoverManager(rotator, notifier, log)

	// 5. Attempt audit log. Postgres when configured, in-memory otherwise.
	var attempts storage.AttemptRepository
	var db *postgres.DB
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init db: %w", err)
		}
		attempts = postgres.NewAttemptRepo(db)
		log.Info("Using PostgreSQL attempt storage")
	} else {
		attempts = memory.NewAttemptRepo()
		log.Info("Using in-memory attempt storage")
	}

	app := &App{
		cfg:         cfg,
		role:        role,
		log:         log,
		keystore:    keystore,
		creds:       creds,
		session:     session,
		notifier:    notifier,
		slack:       slack,
		lifetime:    lifetime,
		attempts:    attempts,
		redisClient: redisClient,
		db:          db,
	}

	// 6. Role-specific worker, daily summary and health surface.
	trackers := make(map[domain.OperationKind]*failure.Tracker)
	var daily notify.DailyMetrics
	switch role {
	case notify.RoleMiner:
		trackers[domain.OpStakeSweep] = failure.NewTracker(cfg.Alerts.Thresholds)
		trackers[domain.OpStakeTransfer] = failure.NewTracker(cfg.Alerts.Thresholds)

		minerDaily := notify.NewMinerDaily()
		daily = minerDaily
		app.sweeper = miner.NewStakeManager(miner.Options{
			Session:       session,
			Coldkey:       keystore.ColdkeyAddress(),
			PrimaryHotkey: keystore.HotkeyAddress(),
			Netuid:        cfg.Subtensor.Netuid,
			Config:        cfg.Miner,
			Notifier:      notifier,
			Daily:         minerDaily,
			Lifetime:      lifetime,
			Attempts:      attempts,
			Trackers:      trackers,
			Log:           log,
		})
		app.scheduler = epoch.NewScheduler(&chainHeights{
			session: session,
			netuid:  cfg.Subtensor.Netuid,
		}, log)

	case notify.RoleValidator:
		tracker := failure.NewTracker(cfg.Alerts.Thresholds)
		trackers[domain.OpWeightSet] = tracker

		validatorDaily := notify.NewValidatorDaily()
		daily = validatorDaily
		app.burner = validator.New(validator.Options{
			Session:  session,
			Hotkey:   keystore.HotkeyAddress(),
			Netuid:   cfg.Subtensor.Netuid,
			Config:   cfg.Validator,
			Notifier: notifier,
			Daily:    validatorDaily,
			Lifetime: lifetime,
			Tracker:  tracker,
			Attempts: attempts,
			Log:      log,
		})

	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	app.reporter = notify.NewReporter(slack, daily, lifetime, log)
	monitor := health.NewMonitor(trackers, cfg.Alerts.Thresholds, session.CurrentNetwork)
	app.healthServer = health.NewServer(monitor, cfg.Server.Port)

	return app, nil
}

// Start launches the health server, the daily reporter and the role loop.
// It does not block; cancel ctx and call Stop to shut down.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if err := a.reporter.Start(); err != nil {
		a.log.Warn("Failed to start daily reporter", "error", err)
	}

	a.notifier.Send(a.startupMessage(), notify.LevelSuccess)
	a.log.Info("Node started", "role", a.role,
		"netuid", a.cfg.Subtensor.Netuid, "network", a.session.CurrentNetwork())

	switch a.role {
	case notify.RoleMiner:
		go a.runMiner(ctx)
	case notify.RoleValidator:
		go a.runValidator(ctx)
	}
	return nil
}

// runMiner logs the wallet's stake positions, performs the catch-up sweep,
// then hands the loop to the epoch scheduler.
func (a *App) runMiner(ctx context.Context) {
	hotkeys := a.sweeper.OwnedHotkeys(ctx)
	a.log.Info("Owned hotkeys resolved", "count", len(hotkeys))
	for _, snap := range a.sweeper.SnapshotStakes(ctx, a.sweeper.RelevantHotkeys()) {
		a.log.Info("Current stake position",
			"hotkey", domain.TruncateAddress(snap.Hotkey), "stake", snap.Stake)
	}

	// Catch up on anything staked while the node was down. The transfer leg
	// can be skipped so a freshly aggregated balance rides the first epoch.
	a.sweeper.SweepToAggregator(ctx)
	if a.cfg.Miner.NoInitialTransfer {
		a.log.Info("Skipping initial stake transfer")
	} else {
		a.sweeper.TransferAggregatedStake(ctx)
	}

	a.scheduler.Prime(ctx)
	a.scheduler.Run(ctx, a.cfg.Miner.PollInterval, a.sweeper.ProcessEpoch)
}

// runValidator retries initialization until the chain resolves the
// validator's UID, then runs the weight-setting loop.
func (a *App) runValidator(ctx context.Context) {
	for ctx.Err() == nil {
		err := a.burner.Init(ctx)
		if err == nil {
			break
		}
		a.log.Error("Validator initialization failed; retrying", "error", err)
		a.session.HandleFailure(err.Error(), "validator init")
		select {
		case <-ctx.Done():
			return
		case <-time.After(initRetrySleep):
		}
	}
	if ctx.Err() != nil {
		return
	}
	a.burner.Run(ctx)
}

// Stop flushes metrics, scrubs credentials and tears everything down.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping node", "role", a.role)
	a.notifier.Send(a.shutdownMessage(), notify.LevelWarning)

	a.reporter.Stop()
	if err := a.lifetime.Flush(); err != nil {
		a.log.Warn("Failed to persist lifetime metrics", "error", err)
	}

	a.session.Close()
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	a.creds.Clear()

	return a.healthServer.Stop(ctx)
}

func (a *App) startupMessage() string {
	switch a.role {
	case notify.RoleMiner:
		return fmt.Sprintf(
			"🚀 Miner started on subnet %d\nColdkey: %s\nHotkey: %s\nAggregator: %s\nDestination: %s\nNetwork: %s",
			a.cfg.Subtensor.Netuid,
			domain.TruncateAddress(a.keystore.ColdkeyAddress()),
			domain.TruncateAddress(a.keystore.HotkeyAddress()),
			domain.TruncateAddress(a.cfg.Miner.AggregatorHotkey),
			domain.TruncateAddress(a.cfg.Miner.DestinationColdkey),
			a.session.CurrentNetwork(),
		)
	default:
		return fmt.Sprintf(
			"🚀 Validator started on subnet %d\nHotkey: %s\nNetwork: %s",
			a.cfg.Subtensor.Netuid,
			domain.TruncateAddress(a.keystore.HotkeyAddress()),
			a.session.CurrentNetwork(),
		)
	}
}

func (a *App) shutdownMessage() string {
	return fmt.Sprintf("🛑 %s stopped on subnet %d\nUptime: %s",
		a.role, a.cfg.Subtensor.Netuid, a.lifetime.Uptime())
}

// chainHeights adapts the chain session to the epoch scheduler's reads.
type chainHeights struct {
	session *subtensor.FailoverManager
	netuid  int
}

func (c *chainHeights) CurrentBlock(ctx context.Context) (uint64, error) {
	return c.session.Client().GetCurrentBlock(ctx)
}

func (c *chainHeights) NextEpochStartBlock(ctx context.Context, block uint64) (uint64, bool, error) {
	return c.session.Client().GetNextEpochStartBlock(ctx, c.netuid, block)
}

func (c *chainHeights) Tempo(ctx context.Context) (uint64, error) {
	return c.session.Client().Tempo(ctx, c.netuid)
}
