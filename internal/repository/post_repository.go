package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/codenberg/socialflow/internal/models"
	"github.com/lib/pq"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	FindDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	UpdateStatus(ctx context.Context, status string, postID int64) error
	UpdateSchedule(ctx context.Context, postID int64, scheduledTime time.Time, status string) error
	SetApproval(ctx context.Context, postID int64, status string, approvedBy int64, reason string) error
	FinalizePublish(ctx context.Context, postID int64, expectStatus, newStatus string, results []models.PublishResult, publishedAt *time.Time) (bool, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, caption, media_urls, hashtags, platforms, scheduled_time, status, publish_results, approved_by, rejection_reason, published_at, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, caption, media_urls, hashtags, platforms, scheduled_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	var err error

	args := []interface{}{
		post.UserID,
		post.Caption,
		pq.Array(post.MediaURLs),
		pq.Array(post.Hashtags),
		pq.Array(post.Platforms),
		post.ScheduledTime,
		post.Status,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanPost(scan func(dest ...interface{}) error) (*models.Post, error) {
	var post models.Post
	var scheduledTime, publishedAt sql.NullTime
	var approvedBy sql.NullInt64
	var rejectionReason sql.NullString
	var results []byte

	err := scan(
		&post.ID,
		&post.UserID,
		&post.Caption,
		pq.Array(&post.MediaURLs),
		pq.Array(&post.Hashtags),
		pq.Array(&post.Platforms),
		&scheduledTime,
		&post.Status,
		&results,
		&approvedBy,
		&rejectionReason,
		&publishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if scheduledTime.Valid {
		post.ScheduledTime = &scheduledTime.Time
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if approvedBy.Valid {
		post.ApprovedBy = &approvedBy.Int64
	}
	if rejectionReason.Valid {
		post.RejectionReason = rejectionReason.String
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &post.PublishResults); err != nil {
			return nil, err
		}
	}

	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// FindDue returns scheduled posts whose due time has passed. Posts without a
// scheduled time are never due.
func (r *postRepository) FindDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_time IS NOT NULL AND scheduled_time <= $2`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateSchedule(ctx context.Context, postID int64, scheduledTime time.Time, status string) error {
	query := `
		UPDATE posts
		SET scheduled_time = $1,
			status = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, scheduledTime, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetApproval(ctx context.Context, postID int64, status string, approvedBy int64, reason string) error {
	query := `
		UPDATE posts
		SET status = $1,
			approved_by = $2,
			rejection_reason = NULLIF($3, ''),
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, status, approvedBy, reason, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// FinalizePublish writes status, publish results, and published_at in one
// atomic update, guarded by a compare-and-swap on the current status. It
// reports whether the row was claimed; a false return means another writer
// (timer loop vs manual publish) finalized the post first.
func (r *postRepository) FinalizePublish(ctx context.Context, postID int64, expectStatus, newStatus string, results []models.PublishResult, publishedAt *time.Time) (bool, error) {
	var resultsJSON interface{}
	if results != nil {
		b, err := json.Marshal(results)
		if err != nil {
			slog.Info(err.Error())
			return false, err
		}
		resultsJSON = b
	}

	query := `
		UPDATE posts
		SET status = $1,
			publish_results = $2,
			published_at = $3,
			updated_at = $4
		WHERE id = $5 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query, newStatus, resultsJSON, publishedAt, time.Now(), postID, expectStatus)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
