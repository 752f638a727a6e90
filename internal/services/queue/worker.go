package queue

import (
	"fmt"
	"log"

	"notefeed-desktop/internal/api"
	"notefeed-desktop/internal/models"
)

// Outcome is what one worker run reports back to the scheduler
type Outcome int

const (
	// OutcomeSuccess - task uploaded and confirmed
	OutcomeSuccess Outcome = iota
	// OutcomeRetry - transient failure, the scheduler may re-invoke after backoff
	OutcomeRetry
	// OutcomeFail - permanent failure, retrying cannot help
	OutcomeFail
)

// Publisher is the one endpoint the worker consumes
type Publisher interface {
	PublishPost(req api.PublishRequest) (*api.PostDetail, error)
}

// Worker executes one upload attempt for one task. The scheduler may invoke
// Run more than once for the same local id (at-least-once execution), so
// the whole routine is re-runnable: media is re-resolved and re-sent.
type Worker struct {
	queue  *Manager
	client Publisher
}

// NewWorker creates an upload worker bound to a queue and a publish endpoint
func NewWorker(queue *Manager, client Publisher) *Worker {
	return &Worker{queue: queue, client: client}
}

// Run performs one upload attempt. Every failure path persists a Failed
// status before returning; nothing is allowed to escape and leave the task
// stuck in Uploading with no outcome reported.
func (w *Worker) Run(localID string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Upload worker panic for task %s: %v", localID, r)
			w.fail(localID, fmt.Sprintf("internal error: %v", r))
			outcome = OutcomeRetry
		}
	}()

	task, err := w.queue.Task(localID)
	if err != nil {
		log.Printf("ERROR: Failed to load task %s: %v", localID, err)
		w.fail(localID, err.Error())
		return OutcomeRetry
	}
	if task == nil {
		// Nothing to do; the task was cleaned up or never existed
		log.Printf("WARNING: Upload requested for unknown task: %s", localID)
		return OutcomeFail
	}

	// Persist "in flight" before any network call, so a restart observes an
	// interrupted upload instead of silently losing the task
	if err := w.queue.UpdateStatus(localID, models.StatusUploading, nil, nil); err != nil {
		log.Printf("ERROR: Failed to mark task %s uploading: %v", localID, err)
		return OutcomeRetry
	}

	// Resolve media references to readable local files. A reference that can
	// no longer be read is terminal: no retry can bring the bytes back.
	media, err := openMedia(task.Media())
	if err != nil {
		log.Printf("ERROR: Task %s media unreadable: %v", localID, err)
		w.fail(localID, err.Error())
		return OutcomeFail
	}
	defer media.Close()

	width, height := media.ProbeDimensions()

	detail, err := w.client.PublishPost(api.PublishRequest{
		Title:     task.Title,
		Content:   task.Content,
		ImgWidth:  width,
		ImgHeight: height,
		Files:     media.Files(),
	})
	if err != nil {
		log.Printf("ERROR: Task %s upload failed: %v", localID, err)
		w.fail(localID, err.Error())
		return OutcomeRetry
	}

	if err := w.queue.UpdateStatus(localID, models.StatusSucceeded, &detail.ID, nil); err != nil {
		log.Printf("ERROR: Failed to persist success for task %s: %v", localID, err)
		return OutcomeRetry
	}

	log.Printf("Task %s uploaded, serverId: %d", localID, detail.ID)
	return OutcomeSuccess
}

// fail persists a Failed status with a human-readable message
func (w *Worker) fail(localID, msg string) {
	if err := w.queue.UpdateStatus(localID, models.StatusFailed, nil, &msg); err != nil {
		log.Printf("ERROR: Failed to persist failure for task %s: %v", localID, err)
	}
}
