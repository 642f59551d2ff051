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

const facebookGraphURL = "https://graph.facebook.com/v21.0"

type facebookAdapter struct {
	secret  []byte
	client  *http.Client
	baseURL string
}

func NewFacebookAdapter(secret []byte) Adapter {
	return &facebookAdapter{
		secret:  secret,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: facebookGraphURL,
	}
}

func (a *facebookAdapter) Publish(ctx context.Context, conn *models.SocialConnection, content PostContent) Outcome {
	accessToken, err := utils.Decrypt(conn.AccessToken, a.secret)
	if err != nil {
		return failureOutcome(Facebook, fmt.Sprintf("unable to decrypt access token: %v", err))
	}

	message := composeCaption(content.Caption, content.Hashtags)

	var url string
	payload := map[string]interface{}{
		"access_token": accessToken,
	}
	if len(content.MediaURLs) > 0 {
		// Page photo post; the first media URL becomes the photo.
		url = fmt.Sprintf("%s/%s/photos", a.baseURL, conn.AccountID)
		payload["url"] = content.MediaURLs[0]
		payload["caption"] = message
	} else {
		url = fmt.Sprintf("%s/%s/feed", a.baseURL, conn.AccountID)
		payload["message"] = message
	}

	id, err := postGraphJSON(ctx, a.client, url, payload)
	if err != nil {
		return failureOutcome(Facebook, err.Error())
	}
	return successOutcome(Facebook, id)
}

// postGraphJSON posts a JSON payload to a Graph-style endpoint and returns
// the created object id. Shared by the Facebook and Instagram adapters.
func postGraphJSON(ctx context.Context, client *http.Client, url string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var graphErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &graphErr); err == nil && graphErr.Error.Message != "" {
			return "", fmt.Errorf("graph API error: %s", graphErr.Error.Message)
		}
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.PostID != "" {
		return result.PostID, nil
	}
	if result.ID == "" {
		return "", fmt.Errorf("no object ID returned")
	}
	return result.ID, nil
}
