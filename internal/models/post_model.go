package models

import "time"

type Post struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	Caption         string          `db:"caption" json:"caption"`
	MediaURLs       []string        `db:"media_urls" json:"media_urls"`
	Hashtags        []string        `db:"hashtags" json:"hashtags"`
	Platforms       []string        `db:"platforms" json:"platforms"`
	ScheduledTime   *time.Time      `db:"scheduled_time" json:"scheduled_time"`
	Status          string          `db:"status" json:"status"`
	PublishResults  []PublishResult `db:"publish_results" json:"publish_results,omitempty"`
	ApprovedBy      *int64          `db:"approved_by" json:"approved_by,omitempty"`
	RejectionReason string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	PublishedAt     *time.Time      `db:"published_at" json:"published_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// PublishResult is the persisted per-platform entry of the last publish
// attempt. PostID is set on success, Error on failure.
type PublishResult struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	PostID   string `json:"postId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type MediaAsset struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	FileSize  int64     `db:"file_size"`
	FileURL   string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	PostStatusDraft                = "draft"
	PostStatusScheduled            = "scheduled"
	PostStatusPendingApproval      = "pending_approval"
	PostStatusApproved             = "approved"
	PostStatusRejected             = "rejected"
	PostStatusPendingManualPosting = "pending_manual_posting"
	PostStatusPosted               = "posted"
	PostStatusPartiallyPosted      = "partially_posted"
	PostStatusFailed               = "failed"
)
