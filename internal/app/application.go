package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/salvi-network/salvi-bridge/internal/app/config"
	paymentsvc "github.com/salvi-network/salvi-bridge/internal/app/services/payment"
	"github.com/salvi-network/salvi-bridge/internal/app/services/relay"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
	"github.com/salvi-network/salvi-bridge/internal/app/storage/memory"
	"github.com/salvi-network/salvi-bridge/internal/app/system"
	"github.com/salvi-network/salvi-bridge/internal/chain/appcall"
	"github.com/salvi-network/salvi-bridge/internal/chain/witness"
	"github.com/salvi-network/salvi-bridge/internal/chain/xrpl"
	"github.com/salvi-network/salvi-bridge/pkg/logger"
)

// ErrChannelNotBound is returned when a channel query names a channel the
// bridge is not relaying.
var ErrChannelNotBound = errors.New("channel not bound")

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Checkpoints storage.CheckpointStore
	Payments    storage.PaymentStore
}

// Application ties the relay engines and the settlement service together and
// manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger
	cfg     *config.Config

	Checkpoints storage.CheckpointStore
	Payments    *paymentsvc.Service

	engines  []*relay.Engine
	bindings []config.ChannelBinding
}

// ChannelStatus reports one bound channel and its relay progress.
type ChannelStatus struct {
	ChannelID  string `json:"channel_id"`
	AppID      uint64 `json:"app_id"`
	Checkpoint uint64 `json:"checkpoint"`
}

// New builds a fully initialised application with the provided stores.
// Ledger endpoints left unconfigured disable the services that need them;
// the application still starts so the remaining surfaces stay available.
func New(cfg *config.Config, stores Stores, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Checkpoints == nil {
		stores.Checkpoints = mem
	}
	if stores.Payments == nil {
		stores.Payments = mem
	}

	manager := system.NewManager()
	application := &Application{
		manager:     manager,
		log:         log,
		cfg:         cfg,
		Checkpoints: stores.Checkpoints,
	}

	bindings, err := channelBindings(cfg)
	if err != nil {
		return nil, err
	}
	application.bindings = bindings

	switch {
	case len(bindings) == 0:
		log.Warn("no channel bindings configured; relay disabled")
	case cfg.Witness.MirrorURL == "":
		log.Warn("BRIDGE_WITNESS_MIRROR_URL not set; relay disabled")
	case cfg.AppCall.GatewayURL == "":
		log.Warn("BRIDGE_APPCALL_GATEWAY_URL not set; relay disabled")
	default:
		mirror, err := witness.NewClient(witness.Config{
			BaseURL:           cfg.Witness.MirrorURL,
			APIKey:            cfg.Witness.APIKey,
			Timeout:           cfg.Witness.Timeout,
			RequestsPerSecond: cfg.Witness.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("configure witness mirror: %w", err)
		}
		gateway, err := appcall.NewClient(appcall.Config{
			RPCURL:    cfg.AppCall.GatewayURL,
			AuthToken: cfg.AppCall.AuthToken,
			Timeout:   cfg.AppCall.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("configure destination gateway: %w", err)
		}

		for _, binding := range bindings {
			interval := binding.Interval()
			if interval <= 0 {
				interval = cfg.Relay.PollInterval
			}
			batchSize := binding.BatchSize
			if batchSize <= 0 {
				batchSize = cfg.Relay.BatchSize
			}

			listener := relay.NewListener(mirror, binding.ChannelID)
			submitter := relay.NewSubmitter(gateway, binding.AppID, log)
			engine := relay.NewEngine(listener, submitter, relay.Config{
				ChannelID:    binding.ChannelID,
				PollInterval: interval,
				BatchSize:    batchSize,
			}, log).WithCheckpointStore(stores.Checkpoints)

			application.engines = append(application.engines, engine)
			if err := manager.Register(engine); err != nil {
				return nil, fmt.Errorf("register %s: %w", engine.Name(), err)
			}
		}
	}

	if cfg.Settlement.RPCURL == "" {
		log.Warn("BRIDGE_SETTLEMENT_RPC_URL not set; payment service disabled")
	} else {
		ledger, err := xrpl.NewClient(xrpl.Config{
			RPCURL:    cfg.Settlement.RPCURL,
			AuthToken: cfg.Settlement.AuthToken,
			Timeout:   cfg.Settlement.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("configure settlement client: %w", err)
		}
		application.Payments = paymentsvc.NewService(ledger, stores.Payments, log)

		sweeper := paymentsvc.NewSweeper(stores.Payments, cfg.Payments.CacheRetention, log).
			WithSchedule(cfg.Payments.SweepSchedule)
		if err := manager.Register(sweeper); err != nil {
			return nil, fmt.Errorf("register %s: %w", sweeper.Name(), err)
		}
	}

	return application, nil
}

// channelBindings merges the bindings file with the single-channel
// environment shortcut. A channel named in both places keeps the file's
// settings.
func channelBindings(cfg *config.Config) ([]config.ChannelBinding, error) {
	doc, err := config.LoadChannelBindingsOrDefault(cfg.Relay.ChannelsFile)
	if err != nil {
		return nil, err
	}

	bindings := doc.Channels
	if cfg.Relay.ChannelID == "" {
		return bindings, nil
	}
	for _, binding := range bindings {
		if binding.ChannelID == cfg.Relay.ChannelID {
			return bindings, nil
		}
	}
	if cfg.AppCall.AppID == 0 {
		return nil, fmt.Errorf("channel %s: BRIDGE_APPCALL_APP_ID is required", cfg.Relay.ChannelID)
	}
	return append(bindings, config.ChannelBinding{
		ChannelID: cfg.Relay.ChannelID,
		AppID:     cfg.AppCall.AppID,
	}), nil
}

// RelayChannels reports every bound channel with its current checkpoint.
func (a *Application) RelayChannels(ctx context.Context) ([]ChannelStatus, error) {
	out := make([]ChannelStatus, 0, len(a.bindings))
	for _, binding := range a.bindings {
		status, err := a.channelStatus(ctx, binding)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// RelayChannel reports a single bound channel.
func (a *Application) RelayChannel(ctx context.Context, channelID string) (ChannelStatus, error) {
	for _, binding := range a.bindings {
		if binding.ChannelID == channelID {
			return a.channelStatus(ctx, binding)
		}
	}
	return ChannelStatus{}, fmt.Errorf("%w: %s", ErrChannelNotBound, channelID)
}

func (a *Application) channelStatus(ctx context.Context, binding config.ChannelBinding) (ChannelStatus, error) {
	seq, err := a.Checkpoints.GetCheckpoint(ctx, binding.ChannelID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ChannelStatus{}, fmt.Errorf("load checkpoint for %s: %w", binding.ChannelID, err)
	}
	return ChannelStatus{
		ChannelID:  binding.ChannelID,
		AppID:      binding.AppID,
		Checkpoint: seq,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
