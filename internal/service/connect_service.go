package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/repository"
	"github.com/codenberg/socialflow/internal/transfer"
	"github.com/codenberg/socialflow/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	facebookTokenURL  = "https://graph.facebook.com/v21.0/oauth/access_token"
	instagramTokenURL = "https://api.instagram.com/oauth/access_token"
	twitterTokenURL   = "https://api.twitter.com/2/oauth2/token"
	linkedinTokenURL  = "https://www.linkedin.com/oauth/v2/accessToken"
)

// ConnectService completes each platform's authorization-code handshake and
// stores the resulting connection with encrypted tokens. It also refreshes
// tokens for the platforms whose credentials expire.
type ConnectService interface {
	FacebookCallback(ctx context.Context, code string, userID int64) error
	InstagramCallback(ctx context.Context, code string, userID int64) error
	TwitterCallback(ctx context.Context, code string, userID int64) error
	LinkedinCallback(ctx context.Context, code string, userID int64) error
	YoutubeCallback(ctx context.Context, code string, userID int64) error
	RefreshYoutubeToken(ctx context.Context, userID int64, accessToken, refreshToken string) error
	RefreshInstagramToken(ctx context.Context, userID int64, refreshToken string) error
	RefreshTwitterToken(ctx context.Context, userID int64, accessToken, refreshToken string) error
}

type connectService struct {
	cfg config.Config
	sc  repository.SocialConnectionRepository
}

func NewConnectService(cfg config.Config, sc repository.SocialConnectionRepository) ConnectService {
	return &connectService{
		cfg: cfg,
		sc:  sc,
	}
}

func (s *connectService) saveConnection(ctx context.Context, userID int64, p platform.Platform, accountID, accountName, picture, accessToken, refreshToken string, expiresAt time.Time) error {
	encryptedAccessToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	if refreshToken == "" {
		refreshToken = accessToken
	}
	encryptedRefreshToken, err := utils.Encrypt([]byte(refreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	conn := &models.SocialConnection{
		UserID:         userID,
		Platform:       string(p),
		AccountID:      accountID,
		AccountName:    accountName,
		ProfilePicture: picture,
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: expiresAt,
	}

	_, err = s.sc.Create(ctx, nil, conn)
	return err
}

func (s *connectService) FacebookCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	params := url.Values{}
	params.Set("client_id", s.cfg.FacebookClientID)
	params.Set("client_secret", s.cfg.FacebookClientSecret)
	params.Set("redirect_uri", s.cfg.FacebookRedirectURI)
	params.Set("code", code)

	var token transfer.FacebookTokenResponse
	if err := getJSON(ctx, facebookTokenURL+"?"+params.Encode(), "", &token); err != nil {
		return fmt.Errorf("failed to exchange facebook code: %w", err)
	}

	// Extend to a long-lived token before storing.
	params = url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", s.cfg.FacebookClientID)
	params.Set("client_secret", s.cfg.FacebookClientSecret)
	params.Set("fb_exchange_token", token.AccessToken)

	var longLived transfer.FacebookTokenResponse
	if err := getJSON(ctx, facebookTokenURL+"?"+params.Encode(), "", &longLived); err != nil {
		return fmt.Errorf("failed to get long-lived facebook token: %w", err)
	}

	var userInfo transfer.FacebookUserInfo
	infoURL := fmt.Sprintf("https://graph.facebook.com/v21.0/me?fields=id,name,picture&access_token=%s", url.QueryEscape(longLived.AccessToken))
	if err := getJSON(ctx, infoURL, "", &userInfo); err != nil {
		return fmt.Errorf("failed to fetch facebook profile: %w", err)
	}

	return s.saveConnection(ctx, userID, platform.Facebook,
		userInfo.ID, userInfo.Name, userInfo.Picture.Data.URL,
		longLived.AccessToken, "", GetExpiresAt(longLived.ExpiresIn))
}

func (s *connectService) InstagramCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	data := url.Values{}
	data.Set("client_id", s.cfg.InstagramClientID)
	data.Set("client_secret", s.cfg.InstagramClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", s.cfg.InstagramRedirectURI)
	data.Set("code", code)

	resp, err := http.Post(instagramTokenURL, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to get short-lived token: %w", err)
	}
	defer resp.Body.Close()

	var shortLived struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&shortLived); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	exchangeURL := fmt.Sprintf(
		"https://graph.instagram.com/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		s.cfg.InstagramClientSecret, shortLived.AccessToken,
	)
	var longLived struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := getJSON(ctx, exchangeURL, "", &longLived); err != nil {
		return fmt.Errorf("failed to get long-lived token: %w", err)
	}

	var userInfo transfer.InstagramUserInfo
	infoURL := fmt.Sprintf(
		"https://graph.instagram.com/me?fields=id,username,name,profile_picture_url&access_token=%s",
		longLived.AccessToken,
	)
	if err := getJSON(ctx, infoURL, "", &userInfo); err != nil {
		return fmt.Errorf("failed to fetch instagram profile: %w", err)
	}

	name := userInfo.Name
	if name == "" {
		name = userInfo.Username
	}

	// Instagram long-lived tokens refresh against themselves.
	return s.saveConnection(ctx, userID, platform.Instagram,
		userInfo.UserID, name, userInfo.ProfilePicture,
		longLived.AccessToken, longLived.AccessToken, GetExpiresAt(longLived.ExpiresIn))
}

func (s *connectService) TwitterCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := s.twitterTokenRequest(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {s.cfg.TwitterRedirectURI},
		"code_verifier": {"challenge"},
	})
	if err != nil {
		return err
	}

	var userInfo transfer.TwitterUserInfo
	if err := getJSON(ctx, "https://api.twitter.com/2/users/me?user.fields=profile_image_url", token.AccessToken, &userInfo); err != nil {
		return fmt.Errorf("failed to fetch twitter profile: %w", err)
	}

	return s.saveConnection(ctx, userID, platform.Twitter,
		userInfo.Data.ID, userInfo.Data.Name, userInfo.Data.ProfileImageURL,
		token.AccessToken, token.RefreshToken, GetExpiresAt(token.ExpiresIn))
}

func (s *connectService) twitterTokenRequest(ctx context.Context, data url.Values) (*transfer.TwitterTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", twitterTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(s.cfg.TwitterClientID + ":" + s.cfg.TwitterClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("twitter token endpoint returned non-200 status")
		return nil, errors.New("twitter token endpoint returned non-200 status")
	}

	var token transfer.TwitterTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &token, nil
}

func (s *connectService) LinkedinCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.cfg.LinkedinRedirectURI)
	data.Set("client_id", s.cfg.LinkedinClientID)
	data.Set("client_secret", s.cfg.LinkedinClientSecret)

	resp, err := http.Post(linkedinTokenURL, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("linkedin token endpoint returned non-200 status")
		return errors.New("linkedin token endpoint returned non-200 status")
	}

	var token struct {
		AccessToken  string `json:"access_token"`
		ExpiresIn    int    `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	var userInfo transfer.LinkedinUserInfo
	if err := getJSON(ctx, "https://api.linkedin.com/v2/userinfo", token.AccessToken, &userInfo); err != nil {
		return fmt.Errorf("failed to fetch linkedin profile: %w", err)
	}

	return s.saveConnection(ctx, userID, platform.Linkedin,
		userInfo.Sub, userInfo.Name, userInfo.Picture,
		token.AccessToken, token.RefreshToken, GetExpiresAt(token.ExpiresIn))
}

func (s *connectService) YoutubeCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	oauth2Config := &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile", "https://www.googleapis.com/auth/youtube.upload"},
		Endpoint:     google.Endpoint,
	}

	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if token.RefreshToken == "" {
		err := errors.New("refresh token is empty")
		slog.Info(err.Error())
		return err
	}

	client := oauth2Config.Client(ctx, token)
	userInfo, err := GetGoogleUserInfo(client)
	if err != nil {
		return err
	}

	return s.saveConnection(ctx, userID, platform.Youtube,
		userInfo.ID, userInfo.Name, userInfo.Picture,
		token.AccessToken, token.RefreshToken, token.Expiry)
}

func (s *connectService) RefreshYoutubeToken(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	conf := &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
		Endpoint:     google.Endpoint,
	}

	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: decryptedRefreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	conn := models.SocialConnection{
		AccessToken:    encryptedAccessToken,
		TokenExpiresAt: token.Expiry,
	}

	return s.sc.SetToken(ctx, userID, accessToken, &conn)
}

func (s *connectService) RefreshInstagramToken(ctx context.Context, userID int64, refreshToken string) error {
	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	refreshURL := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		decryptedRefreshToken,
	)

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := getJSON(ctx, refreshURL, "", &result); err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	conn := models.SocialConnection{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedAccessToken,
		TokenExpiresAt: GetExpiresAt(result.ExpiresIn),
	}

	return s.sc.SetToken(ctx, userID, refreshToken, &conn)
}

func (s *connectService) RefreshTwitterToken(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	token, err := s.twitterTokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {decryptedRefreshToken},
	})
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken := ""
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	conn := models.SocialConnection{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: GetExpiresAt(token.ExpiresIn),
	}

	return s.sc.SetToken(ctx, userID, accessToken, &conn)
}

// getJSON issues a GET and decodes a JSON body, optionally with a bearer
// token.
func getJSON(ctx context.Context, reqURL, bearer string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info(fmt.Sprintf("unexpected status code %d from %s", resp.StatusCode, reqURL))
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
