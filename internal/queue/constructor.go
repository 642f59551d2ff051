package queue

import (
	"github.com/codenberg/socialflow/internal/scheduler"
)

type Queue struct {
	sch *scheduler.Scheduler
}

func NewQueue(sch *scheduler.Scheduler) *Queue {
	return &Queue{sch: sch}
}

const TaskTypePublishNow = "publish:now"

type PublishNowPayload struct {
	PostID int64 `json:"post_id"`
}
