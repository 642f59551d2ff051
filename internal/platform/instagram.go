package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/pkg/utils"
)

const instagramGraphURL = "https://graph.instagram.com/v21.0"

type instagramAdapter struct {
	secret  []byte
	client  *http.Client
	baseURL string
}

func NewInstagramAdapter(secret []byte) Adapter {
	return &instagramAdapter{
		secret:  secret,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: instagramGraphURL,
	}
}

// Publish creates a media container for the first image and publishes it.
// Instagram is image-only here; a post without media fails fast without a
// remote call.
func (a *instagramAdapter) Publish(ctx context.Context, conn *models.SocialConnection, content PostContent) Outcome {
	if len(content.MediaURLs) == 0 {
		return failureOutcome(Instagram, "instagram requires at least one media item")
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, a.secret)
	if err != nil {
		return failureOutcome(Instagram, fmt.Sprintf("unable to decrypt access token: %v", err))
	}

	caption := composeCaption(content.Caption, content.Hashtags)

	containerURL := fmt.Sprintf("%s/%s/media", a.baseURL, conn.AccountID)
	containerID, err := postGraphJSON(ctx, a.client, containerURL, map[string]interface{}{
		"image_url":    content.MediaURLs[0],
		"caption":      caption,
		"access_token": accessToken,
	})
	if err != nil {
		return failureOutcome(Instagram, fmt.Sprintf("creating media container: %v", err))
	}

	publishURL := fmt.Sprintf("%s/%s/media_publish", a.baseURL, conn.AccountID)
	mediaID, err := postGraphJSON(ctx, a.client, publishURL, map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	})
	if err != nil {
		return failureOutcome(Instagram, fmt.Sprintf("publishing media container: %v", err))
	}

	return successOutcome(Instagram, mediaID)
}
