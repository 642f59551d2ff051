package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	config "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/repository"
)

const (
	FACEBOOK_AUTH_URL  = "https://www.facebook.com/v21.0/dialog/oauth"
	INSTAGRAM_AUTH_URL = "https://www.instagram.com/oauth/authorize"
	TWITTER_AUTH_URL   = "https://twitter.com/i/oauth2/authorize"
	LINKEDIN_AUTH_URL  = "https://www.linkedin.com/oauth/v2/authorization"
	GOOGLE_AUTH_URL    = "https://accounts.google.com/o/oauth2/v2/auth"
)

// AccountService handles the user-facing side of connections: building the
// authorization URL per platform, listing what is connected, and
// disconnecting.
type AccountService interface {
	GetAuthURL(ctx context.Context, platformName, tokenString string) (string, error)
	List(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	Disconnect(ctx context.Context, userID, connectionID int64) error
}

type accountService struct {
	cfg config.Config
	sc  repository.SocialConnectionRepository
}

func NewAccountService(cfg config.Config, sc repository.SocialConnectionRepository) AccountService {
	return &accountService{
		cfg: cfg,
		sc:  sc,
	}
}

func (s *accountService) GetAuthURL(ctx context.Context, platformName, tokenString string) (string, error) {
	p, ok := platform.Parse(platformName)
	if !ok {
		return "", fmt.Errorf("unknown platform %q", platformName)
	}

	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("state", tokenString)

	switch p {
	case platform.Facebook:
		params.Add("client_id", s.cfg.FacebookClientID)
		params.Add("redirect_uri", s.cfg.FacebookRedirectURI)
		params.Add("scope", "pages_manage_posts,pages_read_engagement,public_profile")
		return fmt.Sprintf("%s?%s", FACEBOOK_AUTH_URL, params.Encode()), nil

	case platform.Instagram:
		params.Add("client_id", s.cfg.InstagramClientID)
		params.Add("redirect_uri", s.cfg.InstagramRedirectURI)
		params.Add("scope", "instagram_business_basic,instagram_business_content_publish")
		return fmt.Sprintf("%s?%s", INSTAGRAM_AUTH_URL, params.Encode()), nil

	case platform.Twitter:
		params.Add("client_id", s.cfg.TwitterClientID)
		params.Add("redirect_uri", s.cfg.TwitterRedirectURI)
		params.Add("scope", "tweet.read tweet.write users.read offline.access")
		params.Add("code_challenge", "challenge")
		params.Add("code_challenge_method", "plain")
		return fmt.Sprintf("%s?%s", TWITTER_AUTH_URL, params.Encode()), nil

	case platform.Linkedin:
		params.Add("client_id", s.cfg.LinkedinClientID)
		params.Add("redirect_uri", s.cfg.LinkedinRedirectURI)
		params.Add("scope", "openid profile w_member_social")
		return fmt.Sprintf("%s?%s", LINKEDIN_AUTH_URL, params.Encode()), nil

	case platform.Youtube:
		params.Add("client_id", s.cfg.GoogleClientID)
		params.Add("redirect_uri", s.cfg.GoogleRedirectURI)
		params.Add("scope", "https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/youtube.upload")
		params.Add("access_type", "offline")
		params.Add("prompt", "consent")
		return fmt.Sprintf("%s?%s", GOOGLE_AUTH_URL, params.Encode()), nil
	}

	return "", fmt.Errorf("unknown platform %q", platformName)
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	connections, err := s.sc.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing social connections")
	}
	return connections, nil
}

func (s *accountService) Disconnect(ctx context.Context, userID, connectionID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("user is not valid")
		slog.Info(err.Error())
		return err
	}

	if connectionID == 0 {
		err = errors.New("connection id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sc.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("connection doesn't exist")
		slog.Info(err.Error())
		return err
	}

	return s.sc.Deactivate(ctx, connectionID)
}
