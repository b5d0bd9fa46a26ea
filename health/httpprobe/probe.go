package httpprobe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/health"
)

// Probe is a health.Probe that performs an HTTP GET against a shard's
// "/health" endpoint, exactly as torua's coordinator did for nodes.
// AddrOf resolves a ShardId to the network address to probe.
type Probe struct {
	Client *http.Client
	AddrOf func(shardcore.ShardId) string
}

// New constructs a Probe whose http.Client has no timeout of its own; each
// request is bounded only by the context deadline health.Monitor derives
// from ProbeTimeout.
func New(addrOf func(shardcore.ShardId) string) *Probe {
	return &Probe{Client: &http.Client{}, AddrOf: addrOf}
}

func (p *Probe) Execute(ctx context.Context, id shardcore.ShardId) health.Report {
	start := time.Now()
	addr := p.AddrOf(id)

	url := addr
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		url = fmt.Sprintf("http://%s", addr)
	}
	if !strings.HasSuffix(url, "/health") {
		url = strings.TrimRight(url, "/") + "/health"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return health.Report{Healthy: false, Err: err, Duration: time.Since(start)}
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return health.Report{Healthy: false, Err: fmt.Errorf("health check request failed: %w", err), Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return health.Report{
			Healthy:  false,
			Err:      fmt.Errorf("health check returned status %d", resp.StatusCode),
			Duration: time.Since(start),
		}
	}
	return health.Report{Healthy: true, Duration: time.Since(start)}
}

var _ health.Probe = (*Probe)(nil)
