package health

import (
	"context"
	"sync"
	"time"

	"github.com/dreamware/shardcore"
)

// Report is the result of a single HealthProbe execution.
type Report struct {
	Healthy  bool
	Err      error
	Duration time.Duration
}

// Probe is the external collaborator consumed by Monitor (spec §6,
// HealthProbe): execute(ShardId) -> health report. Implementations should
// respect ctx's deadline; Monitor always calls with a context bounded by
// ProbeTimeout.
type Probe interface {
	Execute(ctx context.Context, id shardcore.ShardId) Report
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, id shardcore.ShardId) Report

func (f ProbeFunc) Execute(ctx context.Context, id shardcore.ShardId) Report { return f(ctx, id) }

// MonitorOptions configures Monitor's background cadence.
type MonitorOptions struct {
	ProbeInterval time.Duration // default 10s
	ProbeTimeout  time.Duration // default 2s
}

func (o *MonitorOptions) setDefaults() {
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = 10 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 2 * time.Second
	}
}

// Monitor drives proactive probing at ProbeInterval, feeding results into a
// Policy. It is grounded on
// torua/internal/coordinator.HealthMonitor.Start/Stop, generalized from an
// HTTP-specific poller to any Probe, and from a fixed node list to a
// caller-supplied shardProvider callback (mirroring the teacher's
// nodeProvider parameter).
type Monitor struct {
	policy *Policy
	probe  Probe
	opt    MonitorOptions

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor constructs a Monitor that will feed results into policy.
func NewMonitor(policy *Policy, probe Probe, opt MonitorOptions) *Monitor {
	opt.setDefaults()
	return &Monitor{policy: policy, probe: probe, opt: opt}
}

// Start begins the background probing loop. It returns immediately; the
// loop runs until ctx is canceled or Stop is called. shardProvider is
// invoked once per tick to get the current shard set, mirroring the
// teacher's live-membership handling.
func (m *Monitor) Start(ctx context.Context, shardProvider func() []shardcore.ShardId) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, shardProvider)
	}()
}

func (m *Monitor) run(ctx context.Context, shardProvider func() []shardcore.ShardId) {
	ticker := time.NewTicker(m.opt.ProbeInterval)
	defer ticker.Stop()

	m.checkAll(ctx, shardProvider())
	for {
		select {
		case <-ticker.C:
			m.checkAll(ctx, shardProvider())
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) checkAll(ctx context.Context, ids []shardcore.ShardId) {
	now := time.Now()
	for _, id := range ids {
		if !m.policy.ShouldProbe(id, now) {
			continue
		}
		m.checkOne(ctx, id)
	}
}

func (m *Monitor) checkOne(ctx context.Context, id shardcore.ShardId) {
	probeCtx, cancel := context.WithTimeout(ctx, m.opt.ProbeTimeout)
	defer cancel()

	start := time.Now()
	report := m.probe.Execute(probeCtx, id)
	elapsed := time.Since(start).Milliseconds()

	if report.Healthy && report.Err == nil {
		m.policy.RecordSuccessTimed(id, elapsed)
	} else {
		m.policy.RecordFailureTimed(id, report.Err, elapsed)
	}
}

// Stop cancels the background loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
