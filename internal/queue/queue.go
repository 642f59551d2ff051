package queue

import (
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// EnqueuePublishNow queues an immediate publish of the given post. The
// handler runs the same availability/dispatch logic as the timer loop.
func EnqueuePublishNow(asynqClient *asynq.Client, payload PublishNowPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishNow, taskPayload)

	_, err = asynqClient.Enqueue(task)
	if err != nil {
		return err
	}

	log.Printf("Publish task queued: %+v", payload)
	return nil
}
