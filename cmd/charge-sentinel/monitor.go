package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charge-sentinel/internal/metrics"
	"charge-sentinel/internal/model"
	"charge-sentinel/internal/simulate"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the detector against simulated charge point traffic",
	Long: `Generates a random OCPP operation every monitoring interval, feeds it through
the burst detector and opens incidents for anything anomalous. Prometheus metrics
are exported when enabled in the configuration.`,
	RunE: runMonitor,
}

var monitorBurst int

func init() {
	monitorCmd.Flags().IntVar(&monitorBurst, "inject-burst", 0, "Inject a StartTransaction burst of this size at startup")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var m *metrics.PrometheusMetrics
	if config.Prometheus.Enabled {
		exporter := metrics.NewPrometheusExporter(config.Prometheus.Port, logger)
		m = exporter.GetMetrics()
		go func() {
			if err := exporter.Start(ctx); err != nil {
				logger.Errorf("Prometheus exporter error: %v", err)
			}
		}()
	}

	a, err := newApp(ctx, m)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Charge Sentinel v%s\n", version)
	fmt.Printf("Monitoring %s -> %s:%s every %s\n",
		config.Application.SourceIP, config.Application.DestinationIP, config.Application.Port, config.MonitoringInterval())

	gen := simulate.NewGenerator(config.Application.SimulationSeed, logger)
	sink := func(e model.FlowEvent) {
		res, err := a.processor.Process(ctx, e)
		if err != nil {
			logger.Errorf("Failed to process event %s: %v", e.ID, err)
			return
		}
		if res.Incident != nil {
			fmt.Printf("\n[%s] %s %s - %s\n", res.Incident.Timestamp.Format("2006-01-02 15:04:05"),
				res.Incident.Severity, res.Incident.Category, res.Incident.Title)
		}
	}

	if monitorBurst > 0 {
		for _, e := range gen.Burst("StartTransaction", monitorBurst, 50*time.Millisecond, time.Now()) {
			sink(e)
		}
	}

	if err := gen.Run(ctx, config.MonitoringInterval(), sink); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("\nMonitoring stopped")
	return nil
}
