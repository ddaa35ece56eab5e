package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/lysyi3m/work-dash/app/database"
)

type TargetStore interface {
	ListTargets(ctx context.Context) ([]database.ProbeTarget, error)
	UpdateObservation(ctx context.Context, id int64, rtt int64, lastError string, at int64) error
}

type AddressResolver interface {
	Resolve(ctx context.Context, address string) (net.IP, error)
}

var _ AddressResolver = (*Resolver)(nil)

// ProbeResult is the observation recorded for one target. Err holds the
// resolution or echo failure; PersistErr is set when the row could not be
// written.
type ProbeResult struct {
	Target     database.ProbeTarget
	IP         net.IP
	RTT        time.Duration
	At         int64
	Err        error
	PersistErr error
}

// Prober measures every target once per cycle and overwrites its last
// observation
type Prober struct {
	targets  TargetStore
	resolver AddressResolver
	pinger   Pinger
	now      func() time.Time
}

func NewProber(targets TargetStore, resolver AddressResolver, pinger Pinger) *Prober {
	return &Prober{
		targets:  targets,
		resolver: resolver,
		pinger:   pinger,
		now:      time.Now,
	}
}

func (p *Prober) Name() string {
	return "host_reachability"
}

func (p *Prober) Execute(ctx context.Context) error {
	results, err := p.RunCycle(ctx)
	if err != nil {
		return err
	}

	unreachable := 0
	for _, result := range results {
		if result.Err != nil {
			unreachable++
		}
	}

	slog.Info("Reachability cycle completed", "targets", len(results), "unreachable", unreachable)
	return nil
}

func (p *Prober) RunCycle(ctx context.Context) ([]ProbeResult, error) {
	targets, err := p.targets.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load probe targets: %w", err)
	}

	results := make([]ProbeResult, 0, len(targets))
	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.probeTarget(ctx, target))
	}

	return results, nil
}

func (p *Prober) probeTarget(ctx context.Context, target database.ProbeTarget) ProbeResult {
	result := ProbeResult{Target: target}

	result.IP, result.Err = p.resolver.Resolve(ctx, target.Address)
	if result.Err == nil {
		result.RTT, result.Err = p.pinger.Ping(ctx, result.IP)
	}
	result.At = p.now().Unix()

	rtt, lastError := result.RTT.Milliseconds(), ""
	if result.Err != nil {
		rtt, lastError = database.RTTFailed, result.Err.Error()
		slog.Warn("Target unreachable", "target", target.Label, "address", target.Address, "error", result.Err)
	} else {
		slog.Debug("Target reachable", "target", target.Label, "ip", result.IP.String(), "rtt_ms", rtt)
	}

	if err := p.targets.UpdateObservation(ctx, target.ID, rtt, lastError, result.At); err != nil {
		slog.Error("Failed to record observation", "target", target.Label, "error", err)
		result.PersistErr = err
	}

	return result
}
