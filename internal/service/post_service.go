package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/repository"
	"github.com/codenberg/socialflow/internal/transfer"
)

const scheduledTimeLayout = "2006-01-02T15:04"

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error)
	SubmitForApproval(ctx context.Context, userID, postID int64) error
	Approve(ctx context.Context, approverID, postID int64) error
	Reject(ctx context.Context, approverID, postID int64, reason string) error
	Schedule(ctx context.Context, userID, postID int64, scheduledTime string) error
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db    *sql.DB
	pr    repository.PostRepository
	media *MediaService
}

func NewPostService(db *sql.DB, pr repository.PostRepository, media *MediaService) PostService {
	return &postService{
		db:    db,
		pr:    pr,
		media: media,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Caption == "" && len(files) == 0 {
		err := errors.New("post needs a caption or media")
		slog.Info(err.Error())
		return 0, err
	}

	if len(pc.Platforms) == 0 {
		err := errors.New("no target platforms selected")
		slog.Info(err.Error())
		return 0, err
	}
	for _, name := range pc.Platforms {
		if _, ok := platform.Parse(name); !ok {
			err := fmt.Errorf("unknown platform %q", name)
			slog.Info(err.Error())
			return 0, err
		}
	}

	var scheduledTime *time.Time
	if pc.ScheduledTime != "" {
		t, err := time.Parse(scheduledTimeLayout, pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, err
		}
		scheduledTime = &t
	}

	mediaURLs, err := s.media.UploadFiles(ctx, userID, files)
	if err != nil {
		return 0, fmt.Errorf("error processing files: %w", err)
	}

	status := models.PostStatusDraft
	if !pc.Draft && scheduledTime != nil {
		status = models.PostStatusScheduled
	}

	post := models.Post{
		UserID:        userID,
		Caption:       pc.Caption,
		MediaURLs:     mediaURLs,
		Hashtags:      pc.Hashtags,
		Platforms:     pc.Platforms,
		ScheduledTime: scheduledTime,
		Status:        status,
	}

	postID, err := s.pr.Create(ctx, nil, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	return postID, nil
}

func (s *postService) SubmitForApproval(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusRejected {
		return fmt.Errorf("post cannot be submitted from status %s", post.Status)
	}

	return s.pr.UpdateStatus(ctx, models.PostStatusPendingApproval, postID)
}

// Approve moves a pending post forward: straight to scheduled when a due
// time is already set, otherwise to approved awaiting scheduling.
func (s *postService) Approve(ctx context.Context, approverID, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errors.New("post doesn't exist")
	}

	if post.Status != models.PostStatusPendingApproval {
		return fmt.Errorf("post cannot be approved from status %s", post.Status)
	}

	newStatus := models.PostStatusApproved
	if post.ScheduledTime != nil {
		newStatus = models.PostStatusScheduled
	}

	return s.pr.SetApproval(ctx, postID, newStatus, approverID, "")
}

func (s *postService) Reject(ctx context.Context, approverID, postID int64, reason string) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errors.New("post doesn't exist")
	}

	if post.Status != models.PostStatusPendingApproval {
		return fmt.Errorf("post cannot be rejected from status %s", post.Status)
	}

	return s.pr.SetApproval(ctx, postID, models.PostStatusRejected, approverID, reason)
}

func (s *postService) Schedule(ctx context.Context, userID, postID int64, scheduledTime string) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusApproved {
		return fmt.Errorf("post cannot be scheduled from status %s", post.Status)
	}

	t, err := time.Parse(scheduledTimeLayout, scheduledTime)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Info(err.Error())
		return err
	}

	return s.pr.UpdateSchedule(ctx, postID, t, models.PostStatusScheduled)
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}
	return nil
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	var err error

	if userID == 0 {
		err = errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info")
	}
	if post == nil {
		return nil, errors.New("post doesn't exist")
	}

	return post, nil
}
