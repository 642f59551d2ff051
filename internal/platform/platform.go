package platform

import (
	"context"
	"strings"
	"time"

	config "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/models"
)

// Platform enumerates the supported social networks. Dispatch goes through
// the Registry, so an unsupported platform can never reach a remote API.
type Platform string

const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
	Linkedin  Platform = "linkedin"
	Youtube   Platform = "youtube"
)

func All() []Platform {
	return []Platform{Facebook, Instagram, Twitter, Linkedin, Youtube}
}

// Parse matches a platform name case-insensitively.
func Parse(name string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case Facebook, Instagram, Twitter, Linkedin, Youtube:
		return p, true
	}
	return "", false
}

// PostContent is the generic payload handed to every adapter. ScheduledAt is
// informational only; the call is already being made at or after due time.
type PostContent struct {
	Caption     string
	MediaURLs   []string
	Hashtags    []string
	ScheduledAt *time.Time
}

// Outcome is the result of one publish attempt on one platform. PostID is
// the remote id on success, Error a human-readable message on failure.
type Outcome struct {
	Platform Platform `json:"platform"`
	Success  bool     `json:"success"`
	PostID   string   `json:"postId,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func successOutcome(p Platform, postID string) Outcome {
	return Outcome{Platform: p, Success: true, PostID: postID}
}

func failureOutcome(p Platform, msg string) Outcome {
	return Outcome{Platform: p, Success: false, Error: msg}
}

// Adapter publishes a post to one platform. Implementations never return an
// error and never panic: every failure, including network and auth errors,
// is folded into the Outcome so that one platform cannot abort the others.
type Adapter interface {
	Publish(ctx context.Context, conn *models.SocialConnection, content PostContent) Outcome
}

// Registry is the closed mapping from platform to adapter. Built once in
// main; covers every member of the enum.
type Registry struct {
	adapters map[Platform]Adapter
}

func NewRegistry(cfg config.Config) *Registry {
	secret := []byte(cfg.SecretKey)
	return &Registry{
		adapters: map[Platform]Adapter{
			Facebook:  NewFacebookAdapter(secret),
			Instagram: NewInstagramAdapter(secret),
			Twitter:   NewTwitterAdapter(secret),
			Linkedin:  NewLinkedinAdapter(secret),
			Youtube:   NewYoutubeAdapter(secret),
		},
	}
}

// NewRegistryWith builds a registry from an explicit adapter map. Used by
// tests and by any caller that needs to swap a single adapter out.
func NewRegistryWith(adapters map[Platform]Adapter) *Registry {
	return &Registry{adapters: adapters}
}

func (r *Registry) ForPlatform(p Platform) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// composeCaption appends hashtags to the caption, one space-separated block
// on its own paragraph. Tags are normalized to carry a single leading '#'.
func composeCaption(caption string, hashtags []string) string {
	if len(hashtags) == 0 {
		return caption
	}
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		tags = append(tags, h)
	}
	if len(tags) == 0 {
		return caption
	}
	if caption == "" {
		return strings.Join(tags, " ")
	}
	return caption + "\n\n" + strings.Join(tags, " ")
}
