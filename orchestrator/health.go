package orchestrator

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tutormesh/tutormesh/agent"
	"github.com/tutormesh/tutormesh/core"
)

// healthCheckTimeout bounds one agent's health probe within the sweep.
const healthCheckTimeout = 5 * time.Second

func (o *Orchestrator) healthSweepLoop() {
	ticker := time.NewTicker(o.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.sweepAgents()
		}
	}
}

// sweepAgents polls every registered agent's health check concurrently. The
// sweep only reports: an unhealthy agent stays registered and keeps
// receiving traffic until an operator intervenes.
func (o *Orchestrator) sweepAgents() {
	agents := o.Agents()
	if len(agents) == 0 {
		return
	}

	var g errgroup.Group
	for _, a := range agents {
		a := a
		g.Go(func() error {
			o.checkAgent(a)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) checkAgent(a agent.Agent) {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	err := a.HealthCheck(ctx)
	if err == nil {
		return
	}

	eventType := core.EventAgentUnhealthy
	if errors.Is(err, context.DeadlineExceeded) {
		// The probe itself did not complete; that is a check failure, not a
		// verdict on the agent.
		eventType = core.EventHealthCheckFailed
	}
	o.logger.Warn("agent health sweep", "agent", a.Type(), "event", eventType, "error", err)
	o.events.Emit(core.SystemEvent{Type: eventType, Agent: a.Type(), Err: err})
}
