package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	config "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type approvalCall struct {
	postID     int64
	status     string
	approvedBy int64
	reason     string
}

type scheduleCall struct {
	postID        int64
	scheduledTime time.Time
	status        string
}

type mockPostRepo struct {
	posts         map[int64]*models.Post
	created       *models.Post
	nextID        int64
	statusUpdates map[int64]string
	approvals     []approvalCall
	schedules     []scheduleCall
}

func newMockPostRepo(posts ...*models.Post) *mockPostRepo {
	m := &mockPostRepo{
		posts:         make(map[int64]*models.Post),
		nextID:        100,
		statusUpdates: make(map[int64]string),
	}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *mockPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	m.created = post
	return m.nextID, nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return m.posts[id], nil
}

func (m *mockPostRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	var posts []*models.Post
	for _, p := range m.posts {
		if p.UserID == userID {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (m *mockPostRepo) FindDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	return nil, nil
}

func (m *mockPostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	m.statusUpdates[postID] = status
	return nil
}

func (m *mockPostRepo) UpdateSchedule(ctx context.Context, postID int64, scheduledTime time.Time, status string) error {
	m.schedules = append(m.schedules, scheduleCall{postID, scheduledTime, status})
	return nil
}

func (m *mockPostRepo) SetApproval(ctx context.Context, postID int64, status string, approvedBy int64, reason string) error {
	m.approvals = append(m.approvals, approvalCall{postID, status, approvedBy, reason})
	return nil
}

func (m *mockPostRepo) FinalizePublish(ctx context.Context, postID int64, expectStatus, newStatus string, results []models.PublishResult, publishedAt *time.Time) (bool, error) {
	return false, errors.New("not implemented")
}

func (m *mockPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	p, ok := m.posts[postID]
	return ok && p.UserID == userID, nil
}

func (m *mockPostRepo) Remove(ctx context.Context, id int64) error {
	delete(m.posts, id)
	return nil
}

func newTestPostService(repo *mockPostRepo) PostService {
	media := NewMediaService(config.Config{}, nil)
	return NewPostService(nil, repo, media)
}

func userPost(id int64, status string) *models.Post {
	return &models.Post{
		ID:        id,
		UserID:    1,
		Caption:   "hello",
		Platforms: []string{"facebook"},
		Status:    status,
	}
}

func TestCreatePostValidation(t *testing.T) {
	repo := newMockPostRepo()
	s := newTestPostService(repo)

	tests := []struct {
		name string
		pc   *transfer.PostCreation
	}{
		{"no caption or media", &transfer.PostCreation{Platforms: []string{"facebook"}}},
		{"no platforms", &transfer.PostCreation{Caption: "hi"}},
		{"unknown platform", &transfer.PostCreation{Caption: "hi", Platforms: []string{"myspace"}}},
		{"bad time format", &transfer.PostCreation{Caption: "hi", Platforms: []string{"facebook"}, ScheduledTime: "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreatePost(context.Background(), 1, tt.pc, nil)
			require.Error(t, err)
			assert.Nil(t, repo.created)
		})
	}
}

func TestCreatePostStatus(t *testing.T) {
	tests := []struct {
		name          string
		scheduledTime string
		draft         bool
		want          string
	}{
		{"scheduled when timed", "2026-09-01T10:30", false, models.PostStatusScheduled},
		{"draft flag wins", "2026-09-01T10:30", true, models.PostStatusDraft},
		{"draft without time", "", false, models.PostStatusDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockPostRepo()
			s := newTestPostService(repo)

			postID, err := s.CreatePost(context.Background(), 1, &transfer.PostCreation{
				Caption:       "hello",
				Platforms:     []string{"facebook", "twitter"},
				ScheduledTime: tt.scheduledTime,
				Draft:         tt.draft,
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, int64(100), postID)

			require.NotNil(t, repo.created)
			assert.Equal(t, tt.want, repo.created.Status)
			if tt.scheduledTime != "" {
				require.NotNil(t, repo.created.ScheduledTime)
			} else {
				assert.Nil(t, repo.created.ScheduledTime)
			}
		})
	}
}

func TestSubmitForApproval(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		allowed bool
	}{
		{"from draft", models.PostStatusDraft, true},
		{"from rejected", models.PostStatusRejected, true},
		{"from scheduled", models.PostStatusScheduled, false},
		{"from posted", models.PostStatusPosted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockPostRepo(userPost(1, tt.status))
			s := newTestPostService(repo)

			err := s.SubmitForApproval(context.Background(), 1, 1)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, models.PostStatusPendingApproval, repo.statusUpdates[1])
			} else {
				require.Error(t, err)
				assert.Empty(t, repo.statusUpdates)
			}
		})
	}
}

func TestApprove(t *testing.T) {
	t.Run("with scheduled time goes straight to scheduled", func(t *testing.T) {
		post := userPost(1, models.PostStatusPendingApproval)
		due := time.Now().Add(time.Hour)
		post.ScheduledTime = &due
		repo := newMockPostRepo(post)
		s := newTestPostService(repo)

		require.NoError(t, s.Approve(context.Background(), 7, 1))
		require.Len(t, repo.approvals, 1)
		assert.Equal(t, models.PostStatusScheduled, repo.approvals[0].status)
		assert.Equal(t, int64(7), repo.approvals[0].approvedBy)
	})

	t.Run("without scheduled time awaits scheduling", func(t *testing.T) {
		repo := newMockPostRepo(userPost(1, models.PostStatusPendingApproval))
		s := newTestPostService(repo)

		require.NoError(t, s.Approve(context.Background(), 7, 1))
		require.Len(t, repo.approvals, 1)
		assert.Equal(t, models.PostStatusApproved, repo.approvals[0].status)
	})

	t.Run("only pending posts can be approved", func(t *testing.T) {
		repo := newMockPostRepo(userPost(1, models.PostStatusDraft))
		s := newTestPostService(repo)

		require.Error(t, s.Approve(context.Background(), 7, 1))
		assert.Empty(t, repo.approvals)
	})
}

func TestReject(t *testing.T) {
	repo := newMockPostRepo(userPost(1, models.PostStatusPendingApproval))
	s := newTestPostService(repo)

	require.NoError(t, s.Reject(context.Background(), 7, 1, "wrong image"))
	require.Len(t, repo.approvals, 1)
	assert.Equal(t, models.PostStatusRejected, repo.approvals[0].status)
	assert.Equal(t, "wrong image", repo.approvals[0].reason)

	repo = newMockPostRepo(userPost(1, models.PostStatusPosted))
	s = newTestPostService(repo)
	require.Error(t, s.Reject(context.Background(), 7, 1, "too late"))
}

func TestSchedule(t *testing.T) {
	t.Run("draft and approved posts can be scheduled", func(t *testing.T) {
		for _, status := range []string{models.PostStatusDraft, models.PostStatusApproved} {
			repo := newMockPostRepo(userPost(1, status))
			s := newTestPostService(repo)

			require.NoError(t, s.Schedule(context.Background(), 1, 1, "2026-09-01T10:30"))
			require.Len(t, repo.schedules, 1)
			assert.Equal(t, models.PostStatusScheduled, repo.schedules[0].status)
		}
	})

	t.Run("posted post cannot be rescheduled", func(t *testing.T) {
		repo := newMockPostRepo(userPost(1, models.PostStatusPosted))
		s := newTestPostService(repo)

		require.Error(t, s.Schedule(context.Background(), 1, 1, "2026-09-01T10:30"))
	})

	t.Run("rejects bad time format", func(t *testing.T) {
		repo := newMockPostRepo(userPost(1, models.PostStatusDraft))
		s := newTestPostService(repo)

		require.Error(t, s.Schedule(context.Background(), 1, 1, "next tuesday"))
		assert.Empty(t, repo.schedules)
	})
}

func TestOwnershipEnforced(t *testing.T) {
	repo := newMockPostRepo(userPost(1, models.PostStatusDraft))
	s := newTestPostService(repo)

	_, err := s.PostInfo(context.Background(), 1, 2)
	require.Error(t, err)

	require.Error(t, s.Remove(context.Background(), 2, 1))
	_, ok := repo.posts[1]
	assert.True(t, ok, "post must survive a remove by a non-owner")
}
