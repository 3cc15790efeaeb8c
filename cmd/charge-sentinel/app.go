package main

import (
	"context"
	"fmt"

	"charge-sentinel/internal/alert"
	"charge-sentinel/internal/incident"
	"charge-sentinel/internal/metrics"
	"charge-sentinel/internal/pipeline"
	"charge-sentinel/internal/rules"
	"charge-sentinel/internal/storage"
	"charge-sentinel/internal/traffic"
	"charge-sentinel/internal/utils"

	"github.com/sirupsen/logrus"
)

// app holds everything a command needs; close releases the backend and any
// broker connections
type app struct {
	config    *utils.Config
	logger    *logrus.Logger
	backend   storage.Backend
	store     *incident.Store
	engine    *rules.Engine
	processor *pipeline.Processor
	traffic   *traffic.Buffer
	closers   []func()
}

func loadConfig() (*utils.Config, *logrus.Logger, error) {
	config, err := utils.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config %s: %w", configFile, err)
	}
	if rulesFile != "" {
		loaded, err := rules.LoadRules(rulesFile)
		if err != nil {
			return nil, nil, err
		}
		config.Rules = loaded
		if err := config.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid rules in %s: %w", rulesFile, err)
		}
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	return config, utils.NewLogger(config.Logging.Level, config.Logging.Format), nil
}

// newStoreApp opens only the incident store, for the offline subcommands
func newStoreApp(ctx context.Context) (*app, error) {
	config, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := config.BackendOptions()
	opts.Logger = logger
	backend, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", config.Incidents.Backend, err)
	}

	a := &app{
		config:  config,
		logger:  logger,
		backend: backend,
		store:   incident.NewStore(backend, config.Incidents.MaxIncidents, logger),
	}
	a.closers = append(a.closers, func() {
		if err := backend.Close(); err != nil {
			logger.Warnf("Failed to close incident backend: %v", err)
		}
	})
	return a, nil
}

// newApp wires the full detection pipeline on top of the store
func newApp(ctx context.Context, m *metrics.PrometheusMetrics) (*app, error) {
	a, err := newStoreApp(ctx)
	if err != nil {
		return nil, err
	}

	a.engine = rules.NewEngine(a.logger)
	utils.RegisterBuiltinRules(a.engine, a.config, a.logger)

	factory := incident.NewFactory(a.store, a.config.Incidents.Thresholds, a.config.RiskActions(), a.logger)

	a.processor, err = pipeline.NewProcessor(a.engine, factory, pipeline.Options{
		Endpoint:   a.config.Endpoint(),
		Port:       a.config.Application.Port,
		MaxHistory: a.config.Application.MaxHistory,
	}, a.logger)
	if err != nil {
		a.close()
		return nil, err
	}

	a.traffic = traffic.NewBuffer(a.config.Traffic.MaxLogs, a.logger)
	a.processor.SetTrafficBuffer(a.traffic)

	if m != nil {
		a.processor.SetMetrics(m)
		a.store.SetSizeObserver(m.SetStoreSize)
	}

	a.registerNotifiers()
	return a, nil
}

func (a *app) registerNotifiers() {
	alerting := a.config.Alerting
	if !alerting.Enabled {
		a.logger.Info("Alerting disabled, incidents are stored only")
		return
	}

	if alerting.Channels.Log {
		a.processor.AddNotifier(alert.NewLogNotifier(a.logger))
	}

	if alerting.Channels.NATS {
		nn, err := alert.NewNATSNotifier(alerting.NATS.URL, alerting.NATS.Subject, a.logger)
		if err != nil {
			a.logger.Warnf("NATS notifier unavailable: %v", err)
		} else {
			a.processor.AddNotifier(nn)
			a.closers = append(a.closers, nn.Close)
		}
	}

	if alerting.Channels.Telegram && alerting.Telegram.Enabled {
		a.processor.AddNotifier(alert.NewTelegramNotifierWithTemplate(
			alerting.Telegram.BotToken,
			alerting.Telegram.ChatID,
			alerting.Telegram.ParseMode,
			alerting.Telegram.Enabled,
			alerting.Telegram.MessageTemplate,
			a.logger,
		))
	}
}

func (a *app) close() {
	if a.processor != nil {
		a.processor.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
