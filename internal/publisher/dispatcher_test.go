package publisher

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConnectionRepo struct {
	conns   []*models.SocialConnection
	listErr error
}

func (m *mockConnectionRepo) Create(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *mockConnectionRepo) GetByID(ctx context.Context, id int64) (*models.SocialConnection, error) {
	return nil, nil
}

func (m *mockConnectionRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	return m.conns, m.listErr
}

func (m *mockConnectionRepo) ListActiveByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	return m.conns, m.listErr
}

func (m *mockConnectionRepo) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialConnection, error) {
	return nil, nil
}

func (m *mockConnectionRepo) CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error) {
	return false, nil
}

func (m *mockConnectionRepo) SetToken(ctx context.Context, userID int64, oldAccessToken string, sc *models.SocialConnection) error {
	return nil
}

func (m *mockConnectionRepo) Deactivate(ctx context.Context, id int64) error {
	return nil
}

type stubAdapter struct {
	publish func(ctx context.Context, conn *models.SocialConnection, content platform.PostContent) platform.Outcome
}

func (s *stubAdapter) Publish(ctx context.Context, conn *models.SocialConnection, content platform.PostContent) platform.Outcome {
	return s.publish(ctx, conn, content)
}

func succeedWith(p platform.Platform, postID string, delay time.Duration) platform.Adapter {
	return &stubAdapter{publish: func(ctx context.Context, conn *models.SocialConnection, content platform.PostContent) platform.Outcome {
		time.Sleep(delay)
		return platform.Outcome{Platform: p, Success: true, PostID: postID}
	}}
}

func failWith(p platform.Platform, msg string) platform.Adapter {
	return &stubAdapter{publish: func(ctx context.Context, conn *models.SocialConnection, content platform.PostContent) platform.Outcome {
		return platform.Outcome{Platform: p, Success: false, Error: msg}
	}}
}

func connection(p platform.Platform) *models.SocialConnection {
	return &models.SocialConnection{
		ID:       int64(len(p)),
		UserID:   1,
		Platform: string(p),
		IsActive: true,
	}
}

func TestPublishOutcomesMatchTargetOrder(t *testing.T) {
	repo := &mockConnectionRepo{conns: []*models.SocialConnection{
		connection(platform.Facebook),
		connection(platform.Twitter),
		connection(platform.Linkedin),
	}}

	// The slowest adapter comes first so completion order differs from
	// target order.
	registry := platform.NewRegistryWith(map[platform.Platform]platform.Adapter{
		platform.Facebook: succeedWith(platform.Facebook, "fb-1", 50*time.Millisecond),
		platform.Twitter:  failWith(platform.Twitter, "rate limited"),
		platform.Linkedin: succeedWith(platform.Linkedin, "li-1", 0),
	})

	d := NewDispatcher(repo, registry)
	targets := []platform.Platform{platform.Facebook, platform.Twitter, platform.Linkedin}

	outcomes, err := d.Publish(context.Background(), 1, platform.PostContent{Caption: "hi"}, targets)
	require.NoError(t, err)
	require.Len(t, outcomes, len(targets))

	assert.Equal(t, platform.Facebook, outcomes[0].Platform)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, "fb-1", outcomes[0].PostID)

	assert.Equal(t, platform.Twitter, outcomes[1].Platform)
	assert.False(t, outcomes[1].Success)
	assert.Equal(t, "rate limited", outcomes[1].Error)

	assert.Equal(t, platform.Linkedin, outcomes[2].Platform)
	assert.True(t, outcomes[2].Success)
}

func TestPublishSynthesizesFailureWithoutConnection(t *testing.T) {
	repo := &mockConnectionRepo{conns: []*models.SocialConnection{
		connection(platform.Facebook),
	}}

	called := false
	registry := platform.NewRegistryWith(map[platform.Platform]platform.Adapter{
		platform.Facebook: succeedWith(platform.Facebook, "fb-1", 0),
		platform.Twitter: &stubAdapter{publish: func(ctx context.Context, conn *models.SocialConnection, content platform.PostContent) platform.Outcome {
			called = true
			return platform.Outcome{Platform: platform.Twitter, Success: true}
		}},
	})

	d := NewDispatcher(repo, registry)
	outcomes, err := d.Publish(context.Background(), 1, platform.PostContent{}, []platform.Platform{platform.Facebook, platform.Twitter})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Equal(t, "no active twitter account", outcomes[1].Error)
	assert.False(t, called, "adapter must not be called without a connection")
}

func TestPublishFoldsPanicIntoOutcome(t *testing.T) {
	repo := &mockConnectionRepo{conns: []*models.SocialConnection{
		connection(platform.Facebook),
		connection(platform.Twitter),
	}}

	registry := platform.NewRegistryWith(map[platform.Platform]platform.Adapter{
		platform.Facebook: &stubAdapter{publish: func(ctx context.Context, conn *models.SocialConnection, content platform.PostContent) platform.Outcome {
			panic("nil map write")
		}},
		platform.Twitter: succeedWith(platform.Twitter, "tw-1", 0),
	})

	d := NewDispatcher(repo, registry)
	outcomes, err := d.Publish(context.Background(), 1, platform.PostContent{}, []platform.Platform{platform.Facebook, platform.Twitter})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "internal error")
	assert.True(t, outcomes[1].Success, "a panicking adapter must not abort the others")
}

func TestPublishMatchesConnectionsCaseInsensitively(t *testing.T) {
	conn := connection(platform.Facebook)
	conn.Platform = "Facebook"
	repo := &mockConnectionRepo{conns: []*models.SocialConnection{conn}}

	registry := platform.NewRegistryWith(map[platform.Platform]platform.Adapter{
		platform.Facebook: succeedWith(platform.Facebook, "fb-1", 0),
	})

	d := NewDispatcher(repo, registry)
	outcomes, err := d.Publish(context.Background(), 1, platform.PostContent{}, []platform.Platform{platform.Facebook})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
}

func TestPublishReturnsLookupError(t *testing.T) {
	repo := &mockConnectionRepo{listErr: errors.New("connection refused")}

	d := NewDispatcher(repo, platform.NewRegistryWith(nil))
	outcomes, err := d.Publish(context.Background(), 1, platform.PostContent{}, []platform.Platform{platform.Facebook})

	require.Error(t, err)
	assert.Nil(t, outcomes)
}

func TestPublishUnregisteredPlatform(t *testing.T) {
	repo := &mockConnectionRepo{conns: []*models.SocialConnection{connection(platform.Youtube)}}

	d := NewDispatcher(repo, platform.NewRegistryWith(map[platform.Platform]platform.Adapter{}))
	outcomes, err := d.Publish(context.Background(), 1, platform.PostContent{}, []platform.Platform{platform.Youtube})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "not supported")
}
