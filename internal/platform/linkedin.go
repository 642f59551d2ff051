package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/pkg/utils"
)

const linkedinAPIURL = "https://api.linkedin.com/v2"

type linkedinAdapter struct {
	secret  []byte
	client  *http.Client
	baseURL string
}

func NewLinkedinAdapter(secret []byte) Adapter {
	return &linkedinAdapter{
		secret:  secret,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: linkedinAPIURL,
	}
}

func (a *linkedinAdapter) Publish(ctx context.Context, conn *models.SocialConnection, content PostContent) Outcome {
	accessToken, err := utils.Decrypt(conn.AccessToken, a.secret)
	if err != nil {
		return failureOutcome(Linkedin, fmt.Sprintf("unable to decrypt access token: %v", err))
	}

	commentary := composeCaption(content.Caption, content.Hashtags)

	shareContent := map[string]interface{}{
		"shareCommentary":    map[string]string{"text": commentary},
		"shareMediaCategory": "NONE",
	}
	if len(content.MediaURLs) > 0 {
		media := make([]map[string]interface{}, 0, len(content.MediaURLs))
		for _, u := range content.MediaURLs {
			media = append(media, map[string]interface{}{
				"status":      "READY",
				"originalUrl": u,
			})
		}
		shareContent["shareMediaCategory"] = "ARTICLE"
		shareContent["media"] = media
	}

	payload := map[string]interface{}{
		"author":         fmt.Sprintf("urn:li:person:%s", conn.AccountID),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failureOutcome(Linkedin, fmt.Sprintf("error marshalling payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/ugcPosts", bytes.NewBuffer(body))
	if err != nil {
		return failureOutcome(Linkedin, fmt.Sprintf("error creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return failureOutcome(Linkedin, fmt.Sprintf("HTTP request error: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureOutcome(Linkedin, fmt.Sprintf("error reading response body: %v", err))
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return failureOutcome(Linkedin, fmt.Sprintf("linkedin API error: %s", apiErr.Message))
		}
		return failureOutcome(Linkedin, fmt.Sprintf("unexpected status code %d from linkedin", resp.StatusCode))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return failureOutcome(Linkedin, fmt.Sprintf("error parsing response: %v", err))
	}
	if result.ID == "" {
		// LinkedIn also returns the created urn in a response header.
		if urn := resp.Header.Get("X-RestLi-Id"); urn != "" {
			return successOutcome(Linkedin, urn)
		}
		return failureOutcome(Linkedin, "no share ID returned from linkedin")
	}

	return successOutcome(Linkedin, result.ID)
}
