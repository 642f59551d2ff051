package handlers

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"

	"github.com/codenberg/socialflow/internal/queue"
	"github.com/codenberg/socialflow/internal/service"
	"github.com/codenberg/socialflow/internal/transfer"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient *asynq.Client
}

func NewPostHandler(service service.PostService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: service, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["files"]
	}

	var hashtags []string
	if raw := c.FormValue("hashtags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &hashtags); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid hashtags format",
			})
		}
	}

	var platforms []string
	if raw := c.FormValue("platforms"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &platforms); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid platforms format",
			})
		}
	}

	pc := &transfer.PostCreation{
		Caption:       c.FormValue("caption"),
		Hashtags:      hashtags,
		Platforms:     platforms,
		ScheduledTime: c.FormValue("scheduled_time"),
		Draft:         c.FormValue("draft") == "true",
	}

	postID, err := h.s.CreatePost(c.Context(), userID, pc, files)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post created successfully",
		"post_id": postID,
	})
}

func (h *PostHandler) SubmitForApproval(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.SubmitForApproval(c.Context(), userID, int64(postID)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) ApprovePost(c *fiber.Ctx) error {
	approverID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Approve(c.Context(), approverID, int64(postID)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RejectPost(c *fiber.Ctx) error {
	approverID := GetUserID(c)

	var rejection transfer.PostRejection
	if err := c.BodyParser(&rejection); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.s.Reject(c.Context(), approverID, rejection.PostID, rejection.Reason); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)
	scheduledTime := c.Query("scheduled_time")

	if err := h.s.Schedule(c.Context(), userID, int64(postID), scheduledTime); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// PublishNow queues an immediate publish attempt. The queued task runs the
// same availability and dispatch logic as the timer loop.
func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	// Ownership check via PostInfo before queueing.
	if _, err := h.s.PostInfo(c.Context(), int64(postID), userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err := queue.EnqueuePublishNow(h.AsynqClient, queue.PublishNowPayload{PostID: int64(postID)})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error queueing publish",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Publish queued",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to fetch post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
