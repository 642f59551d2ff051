package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/publisher"
	"github.com/codenberg/socialflow/internal/repository"
)

const maxParallelPosts = 10

// Scheduler drives scheduled posts to a terminal publish status. It holds no
// state between ticks: any post still `scheduled` after a crash or a failed
// persist is simply picked up again on the next tick.
type Scheduler struct {
	pr         repository.PostRepository
	sc         repository.SocialConnectionRepository
	dispatcher *publisher.Dispatcher
}

func NewScheduler(pr repository.PostRepository, sc repository.SocialConnectionRepository, dispatcher *publisher.Dispatcher) *Scheduler {
	return &Scheduler{
		pr:         pr,
		sc:         sc,
		dispatcher: dispatcher,
	}
}

// Tick finds due scheduled posts and processes each one in isolation: one
// post's failure never blocks the rest of the batch. Wired to a cron entry
// in main.
func (s *Scheduler) Tick() {
	ctx := context.Background()

	posts, err := s.pr.FindDue(ctx, time.Now())
	if err != nil {
		slog.Error("finding due posts", "error", err.Error())
		return
	}
	if len(posts) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxParallelPosts)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic processing post", "post_id", post.ID, "panic", fmt.Sprintf("%v", r))
				}
			}()

			if err := s.processPost(ctx, post, models.PostStatusScheduled); err != nil {
				slog.Error("processing due post", "post_id", post.ID, "error", err.Error())
			}
		}(post)
	}

	wg.Wait()
}

// PublishNow re-runs the availability and dispatch logic synchronously for
// a single post. Used by the admin "publish now" action against failed and
// pending_manual_posting posts (and scheduled posts the admin does not want
// to wait for).
func (s *Scheduler) PublishNow(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errors.New("post not found")
	}

	switch post.Status {
	case models.PostStatusScheduled, models.PostStatusFailed, models.PostStatusPendingManualPosting:
	default:
		return fmt.Errorf("post %d cannot be published from status %s", postID, post.Status)
	}

	return s.processPost(ctx, post, post.Status)
}

// processPost is the core state machine. It reconciles requested platforms
// against the owner's active connections and branches on coverage:
//
//	no platform connected   -> pending_manual_posting, no dispatch, no results
//	partial coverage        -> dispatch to available only, partially_posted
//	full coverage           -> dispatch to all, posted or failed by outcome
//
// partially_posted reflects platform coverage, not per-call success: it is
// set even when every attempted publish failed. The final write is a
// compare-and-swap on expectStatus so that a concurrent manual publish and
// timer tick cannot both finalize the same post.
func (s *Scheduler) processPost(ctx context.Context, post *models.Post, expectStatus string) error {
	requested := requestedPlatforms(post)
	if len(requested) == 0 {
		return fmt.Errorf("post %d has no valid target platforms", post.ID)
	}

	connections, err := s.sc.ListActiveByUserID(ctx, post.UserID)
	if err != nil {
		return fmt.Errorf("listing connections for user %d: %w", post.UserID, err)
	}

	connected := make(map[platform.Platform]struct{}, len(connections))
	for _, conn := range connections {
		if p, ok := platform.Parse(conn.Platform); ok {
			connected[p] = struct{}{}
		}
	}

	available := make([]platform.Platform, 0, len(requested))
	for _, p := range requested {
		if _, ok := connected[p]; ok {
			available = append(available, p)
		}
	}

	if len(available) == 0 {
		claimed, err := s.pr.FinalizePublish(ctx, post.ID, expectStatus, models.PostStatusPendingManualPosting, nil, nil)
		if err != nil {
			return fmt.Errorf("marking post %d pending manual posting: %w", post.ID, err)
		}
		if !claimed {
			slog.Info("post already finalized by another writer", "post_id", post.ID)
		}
		return nil
	}

	content := platform.PostContent{
		Caption:     post.Caption,
		MediaURLs:   post.MediaURLs,
		Hashtags:    post.Hashtags,
		ScheduledAt: post.ScheduledTime,
	}

	targets := requested
	newStatus := ""
	if len(available) < len(requested) {
		// Never attempt platforms without a connection. The status reflects
		// coverage regardless of how the attempted calls went.
		targets = available
		newStatus = models.PostStatusPartiallyPosted
	}

	outcomes, err := s.dispatcher.Publish(ctx, post.UserID, content, targets)
	if err != nil {
		return fmt.Errorf("dispatching post %d: %w", post.ID, err)
	}

	if newStatus == "" {
		newStatus = models.PostStatusPosted
		for _, o := range outcomes {
			if !o.Success {
				newStatus = models.PostStatusFailed
				break
			}
		}
	}

	results := make([]models.PublishResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = models.PublishResult{
			Platform: string(o.Platform),
			Success:  o.Success,
			PostID:   o.PostID,
			Error:    o.Error,
		}
	}

	publishedAt := time.Now()
	claimed, err := s.pr.FinalizePublish(ctx, post.ID, expectStatus, newStatus, results, &publishedAt)
	if err != nil {
		return fmt.Errorf("finalizing post %d: %w", post.ID, err)
	}
	if !claimed {
		slog.Info("discarding publish outcome, post already finalized", "post_id", post.ID, "status", newStatus)
	}
	return nil
}

// requestedPlatforms lower-cases and validates the post's target list,
// preserving order and dropping duplicates.
func requestedPlatforms(post *models.Post) []platform.Platform {
	seen := make(map[platform.Platform]struct{}, len(post.Platforms))
	requested := make([]platform.Platform, 0, len(post.Platforms))
	for _, name := range post.Platforms {
		p, ok := platform.Parse(name)
		if !ok {
			slog.Info("skipping unknown platform", "post_id", post.ID, "platform", strings.TrimSpace(name))
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		requested = append(requested, p)
	}
	return requested
}
