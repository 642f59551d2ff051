package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishNowTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishNowPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.sch.PublishNow(ctx, payload.PostID)
}
