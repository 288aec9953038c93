/*
Copyright 2025 The Cozystack Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package restore

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
)

const (
	// RestoreAgentsInterval is the agent poll interval before a restore.
	RestoreAgentsInterval = 30 * time.Second
	// RollbackAgentsInterval is the agent poll interval before a rollback backup.
	RollbackAgentsInterval = 10 * time.Second
	// ReadyInterval is the poll interval while the orchestrator is unreachable.
	ReadyInterval = 10 * time.Second
)

// Gate blocks until the orchestrator is usable for a given set of agents.
type Gate struct {
	agents   AgentStatus
	clock    clock.Clock
	interval time.Duration
}

// NewGate returns a gate polling agents every interval.
func NewGate(agents AgentStatus, clk clock.Clock, interval time.Duration) *Gate {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Gate{agents: agents, clock: clk, interval: interval}
}

// WaitForAgents polls the orchestrator until every agent in required is
// registered. There is no deadline, the caller bounds it through ctx.
func (g *Gate) WaitForAgents(ctx context.Context, required []string) error {
	return g.WaitForAgentsFunc(ctx, func(context.Context) ([]string, error) {
		return required, nil
	})
}

// WaitForAgentsFunc is WaitForAgents with the required agents computed
// anew on every poll.
func (g *Gate) WaitForAgentsFunc(ctx context.Context, required func(context.Context) ([]string, error)) error {
	log := hook.Logger(ctx)
	for {
		agents, err := required(ctx)
		if err != nil {
			return err
		}
		status, err := g.agents.Status(ctx)
		if err != nil {
			return err
		}
		if status.HasAgents(agents) {
			log.Info("All required agents are registered", "agents", agents)
			return nil
		}
		log.Info("Waiting for all agents to register before proceeding",
			"required", agents, "registered", status.Agents)
		if err := hook.Sleep(ctx, g.clock, g.interval); err != nil {
			return err
		}
	}
}

// WaitReady polls the orchestrator status for as long as it cannot be
// reached. Any other error is returned.
func (g *Gate) WaitReady(ctx context.Context) error {
	log := hook.Logger(ctx)
	for {
		status, err := g.agents.Status(ctx)
		if err == nil {
			log.V(1).Info("BRO status", "health", status.Health, "availability", status.Availability)
			return nil
		}
		if !bro.IsUnavailable(err) || ctx.Err() != nil {
			return err
		}
		log.Info("Waiting for BRO to be ready", "error", err.Error())
		if err := hook.Sleep(ctx, g.clock, g.interval); err != nil {
			return err
		}
	}
}
