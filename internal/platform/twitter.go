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

const (
	twitterAPIURL  = "https://api.twitter.com/2"
	tweetMaxLength = 280
)

type twitterAdapter struct {
	secret  []byte
	client  *http.Client
	baseURL string
}

func NewTwitterAdapter(secret []byte) Adapter {
	return &twitterAdapter{
		secret:  secret,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: twitterAPIURL,
	}
}

func (a *twitterAdapter) Publish(ctx context.Context, conn *models.SocialConnection, content PostContent) Outcome {
	accessToken, err := utils.Decrypt(conn.AccessToken, a.secret)
	if err != nil {
		return failureOutcome(Twitter, fmt.Sprintf("unable to decrypt access token: %v", err))
	}

	text := composeCaption(content.Caption, content.Hashtags)
	if len([]rune(text)) > tweetMaxLength {
		runes := []rune(text)
		text = string(runes[:tweetMaxLength-1]) + "…"
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return failureOutcome(Twitter, fmt.Sprintf("error marshalling payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/tweets", bytes.NewBuffer(body))
	if err != nil {
		return failureOutcome(Twitter, fmt.Sprintf("error creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return failureOutcome(Twitter, fmt.Sprintf("HTTP request error: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureOutcome(Twitter, fmt.Sprintf("error reading response body: %v", err))
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Detail != "" {
			return failureOutcome(Twitter, fmt.Sprintf("twitter API error: %s", apiErr.Detail))
		}
		return failureOutcome(Twitter, fmt.Sprintf("unexpected status code %d from twitter", resp.StatusCode))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return failureOutcome(Twitter, fmt.Sprintf("error parsing response: %v", err))
	}
	if result.Data.ID == "" {
		return failureOutcome(Twitter, "no tweet ID returned from twitter")
	}

	return successOutcome(Twitter, result.Data.ID)
}
