package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/pkg/utils"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type youtubeAdapter struct {
	secret []byte
	client *http.Client
}

func NewYoutubeAdapter(secret []byte) Adapter {
	return &youtubeAdapter{
		secret: secret,
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Publish uploads the post's first video to YouTube via the Data API.
// YouTube is video-only; a post without media fails fast without touching
// the API.
func (a *youtubeAdapter) Publish(ctx context.Context, conn *models.SocialConnection, content PostContent) Outcome {
	if len(content.MediaURLs) == 0 {
		return failureOutcome(Youtube, "youtube requires a video to upload")
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, a.secret)
	if err != nil {
		return failureOutcome(Youtube, fmt.Sprintf("unable to decrypt access token: %v", err))
	}

	token := &oauth2.Token{AccessToken: accessToken}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return failureOutcome(Youtube, fmt.Sprintf("error creating youtube service: %v", err))
	}

	tempFile, err := a.downloadVideo(ctx, content.MediaURLs[0])
	if err != nil {
		return failureOutcome(Youtube, fmt.Sprintf("error downloading video: %v", err))
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return failureOutcome(Youtube, fmt.Sprintf("error opening video file: %v", err))
	}
	defer file.Close()

	description := composeCaption(content.Caption, content.Hashtags)
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(content.Caption),
			Description: description,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		return failureOutcome(Youtube, fmt.Sprintf("error uploading video: %v", err))
	}

	return successOutcome(Youtube, response.Id)
}

func (a *youtubeAdapter) downloadVideo(ctx context.Context, mediaURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, "GET", mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d downloading media", resp.StatusCode)
	}

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		return "", fmt.Errorf("error saving media: %w", err)
	}

	return tempFile.Name(), nil
}

// videoTitle takes the first line of the caption, capped to YouTube's
// 100-character title limit.
func videoTitle(caption string) string {
	title := caption
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	runes := []rune(title)
	if len(runes) > 100 {
		title = string(runes[:100])
	}
	return title
}
