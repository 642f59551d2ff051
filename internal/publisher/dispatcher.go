package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/repository"
)

const (
	defaultCallTimeout = 60 * time.Second
	maxParallelCalls   = 5
)

// Dispatcher resolves a post's target platforms against the owner's active
// connections and fans the publish out to the per-platform adapters.
type Dispatcher struct {
	sc          repository.SocialConnectionRepository
	registry    *platform.Registry
	callTimeout time.Duration
}

func NewDispatcher(sc repository.SocialConnectionRepository, registry *platform.Registry) *Dispatcher {
	return &Dispatcher{
		sc:          sc,
		registry:    registry,
		callTimeout: defaultCallTimeout,
	}
}

// Publish attempts the post on every target platform and returns exactly one
// outcome per target, in target order, regardless of completion order. A
// target with no active connection gets a synthesized failure outcome
// without any adapter call. Adapter calls run in parallel with a bounded
// semaphore, each under its own timeout; a panicking adapter is folded into
// a failure outcome for its platform only.
//
// The returned error is set only when the connection lookup itself fails;
// adapter failures never surface as errors.
func (d *Dispatcher) Publish(ctx context.Context, userID int64, content platform.PostContent, targets []platform.Platform) ([]platform.Outcome, error) {
	connections, err := d.sc.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing active connections: %w", err)
	}

	byPlatform := make(map[platform.Platform]*models.SocialConnection, len(connections))
	for _, conn := range connections {
		p, ok := platform.Parse(conn.Platform)
		if !ok {
			continue
		}
		if _, exists := byPlatform[p]; !exists {
			byPlatform[p] = conn
		}
	}

	outcomes := make([]platform.Outcome, len(targets))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxParallelCalls)

	for i, target := range targets {
		conn, ok := byPlatform[target]
		if !ok {
			outcomes[i] = platform.Outcome{
				Platform: target,
				Success:  false,
				Error:    fmt.Sprintf("no active %s account", target),
			}
			continue
		}

		adapter, ok := d.registry.ForPlatform(target)
		if !ok {
			outcomes[i] = platform.Outcome{
				Platform: target,
				Success:  false,
				Error:    fmt.Sprintf("platform %s is not supported", target),
			}
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, target platform.Platform, conn *models.SocialConnection, adapter platform.Adapter) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcomes[i] = d.callAdapter(ctx, target, adapter, conn, content)
		}(i, target, conn, adapter)
	}

	wg.Wait()
	return outcomes, nil
}

func (d *Dispatcher) callAdapter(ctx context.Context, target platform.Platform, adapter platform.Adapter, conn *models.SocialConnection, content platform.PostContent) (outcome platform.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("adapter panic", "platform", string(target), "panic", fmt.Sprintf("%v", r))
			outcome = platform.Outcome{
				Platform: target,
				Success:  false,
				Error:    fmt.Sprintf("internal error publishing to %s", target),
			}
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	return adapter.Publish(callCtx, conn, content)
}
