package main

import (
	"context"
	"errors"

	"charge-sentinel/internal/model"
	"charge-sentinel/internal/simulate"
)

func runSimulation(ctx context.Context, a *app) {
	gen := simulate.NewGenerator(a.config.Application.SimulationSeed, a.logger)
	a.logger.Infof("Simulating charge point traffic every %s", a.config.MonitoringInterval())

	err := gen.Run(ctx, a.config.MonitoringInterval(), func(e model.FlowEvent) {
		if _, err := a.processor.Process(ctx, e); err != nil {
			a.logger.Errorf("Failed to process simulated event %s: %v", e.ID, err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Errorf("Simulation stopped: %v", err)
	}
}
