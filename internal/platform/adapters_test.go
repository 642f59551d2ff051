package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testConnection(t *testing.T, p Platform) *models.SocialConnection {
	t.Helper()

	encrypted, err := utils.Encrypt([]byte("access-token"), testSecret)
	require.NoError(t, err)

	return &models.SocialConnection{
		ID:          1,
		UserID:      1,
		Platform:    string(p),
		AccountID:   "acct-1",
		AccessToken: encrypted,
		IsActive:    true,
	}
}

func TestFacebookAdapterTextPost(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(map[string]string{"id": "fb-123"})
	}))
	defer srv.Close()

	adapter := &facebookAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(context.Background(), testConnection(t, Facebook), PostContent{
		Caption:  "launch day",
		Hashtags: []string{"golang"},
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, Facebook, outcome.Platform)
	assert.Equal(t, "fb-123", outcome.PostID)
	assert.Equal(t, "/acct-1/feed", gotPath)
	assert.Equal(t, "launch day\n\n#golang", gotPayload["message"])
	assert.Equal(t, "access-token", gotPayload["access_token"])
}

func TestFacebookAdapterPhotoPost(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"post_id": "fb-photo-9"})
	}))
	defer srv.Close()

	adapter := &facebookAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(context.Background(), testConnection(t, Facebook), PostContent{
		Caption:   "photo",
		MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, "fb-photo-9", outcome.PostID)
	assert.Equal(t, "/acct-1/photos", gotPath)
}

func TestFacebookAdapterGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "Invalid OAuth access token"},
		})
	}))
	defer srv.Close()

	adapter := &facebookAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(context.Background(), testConnection(t, Facebook), PostContent{Caption: "x"})

	require.False(t, outcome.Success)
	assert.Equal(t, Facebook, outcome.Platform)
	assert.Contains(t, outcome.Error, "Invalid OAuth access token")
}

func TestAdapterDecryptFailureIsOutcome(t *testing.T) {
	adapter := &facebookAdapter{secret: testSecret, client: http.DefaultClient, baseURL: "http://unused"}
	conn := testConnection(t, Facebook)
	conn.AccessToken = "not-encrypted"

	outcome := adapter.Publish(context.Background(), conn, PostContent{Caption: "x"})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "decrypt")
}

func TestTwitterAdapterPublish(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Text string `json:"text"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "tw-42"},
		})
	}))
	defer srv.Close()

	adapter := &twitterAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(context.Background(), testConnection(t, Twitter), PostContent{
		Caption:  "short tweet",
		Hashtags: []string{"go"},
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, "tw-42", outcome.PostID)
	assert.Equal(t, "Bearer access-token", gotAuth)
	assert.Equal(t, "short tweet\n\n#go", gotBody.Text)
}

func TestTwitterAdapterTruncatesLongText(t *testing.T) {
	var gotBody struct {
		Text string `json:"text"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "tw-43"},
		})
	}))
	defer srv.Close()

	adapter := &twitterAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(context.Background(), testConnection(t, Twitter), PostContent{
		Caption: strings.Repeat("a", 400),
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, tweetMaxLength, len([]rune(gotBody.Text)))
	assert.True(t, strings.HasSuffix(gotBody.Text, "…"))
}

func TestInstagramAdapterRequiresMedia(t *testing.T) {
	adapter := &instagramAdapter{secret: testSecret, client: http.DefaultClient, baseURL: "http://unused"}
	outcome := adapter.Publish(context.Background(), testConnection(t, Instagram), PostContent{Caption: "no media"})

	require.False(t, outcome.Success)
	assert.Equal(t, Instagram, outcome.Platform)
	assert.Contains(t, outcome.Error, "at least one media item")
}

func TestInstagramAdapterTwoStepPublish(t *testing.T) {
	var paths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/media_publish") {
			json.NewEncoder(w).Encode(map[string]string{"id": "ig-post-7"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "ig-container-1"})
	}))
	defer srv.Close()

	adapter := &instagramAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(context.Background(), testConnection(t, Instagram), PostContent{
		Caption:   "pic",
		MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, "ig-post-7", outcome.PostID)
	require.Len(t, paths, 2)
	assert.Equal(t, "/acct-1/media", paths[0])
	assert.Equal(t, "/acct-1/media_publish", paths[1])
}

func TestLinkedinAdapterPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:77"})
	}))
	defer srv.Close()

	adapter := &linkedinAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(context.Background(), testConnection(t, Linkedin), PostContent{Caption: "post"})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, "urn:li:share:77", outcome.PostID)
}

func TestYoutubeAdapterRequiresMedia(t *testing.T) {
	adapter := NewYoutubeAdapter(testSecret)
	outcome := adapter.Publish(context.Background(), testConnection(t, Youtube), PostContent{Caption: "talk"})

	require.False(t, outcome.Success)
	assert.Equal(t, Youtube, outcome.Platform)
}

func TestAdapterRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"id": "late"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	adapter := &facebookAdapter{secret: testSecret, client: srv.Client(), baseURL: srv.URL}
	outcome := adapter.Publish(ctx, testConnection(t, Facebook), PostContent{Caption: "x"})

	require.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Error)
}
