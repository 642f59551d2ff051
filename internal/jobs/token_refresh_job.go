package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/repository"
	"github.com/codenberg/socialflow/internal/service"
)

type TokenRefreshJob struct {
	sc repository.SocialConnectionRepository
	cs service.ConnectService
}

func NewTokenRefreshJob(sc repository.SocialConnectionRepository, cs service.ConnectService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sc: sc,
		cs: cs,
	}
}

// RefreshTokens refreshes credentials expiring within the next half hour.
// Facebook and LinkedIn issue long-lived tokens without a refresh grant
// here, so only YouTube, Instagram, and Twitter connections are refreshed.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	connections, err := c.sc.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, conn := range connections {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(conn *models.SocialConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			p, ok := platform.Parse(conn.Platform)
			if !ok {
				return
			}

			switch p {
			case platform.Youtube:
				if err := c.cs.RefreshYoutubeToken(ctx, conn.UserID, conn.AccessToken, conn.RefreshToken); err != nil {
					slog.Info("Unable to refresh tokens for YouTube", "user_id", conn.UserID)
				}

			case platform.Instagram:
				if err := c.cs.RefreshInstagramToken(ctx, conn.UserID, conn.RefreshToken); err != nil {
					slog.Info("Unable to refresh tokens for Instagram", "user_id", conn.UserID)
				}

			case platform.Twitter:
				if err := c.cs.RefreshTwitterToken(ctx, conn.UserID, conn.AccessToken, conn.RefreshToken); err != nil {
					slog.Info("Unable to refresh tokens for Twitter", "user_id", conn.UserID)
				}
			}
		}(conn)
	}

	wg.Wait()
}
