package scheduler

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"notefeed-desktop/internal/services/queue"

	"github.com/robfig/cron/v3"
)

// RunnerFunc executes one upload attempt and reports its outcome
type RunnerFunc func(localID string) queue.Outcome

// Dispatcher drives upload workers with at-least-once semantics: each
// enqueued task gets its own goroutine that retries with exponential
// backoff up to a fixed attempt ceiling, and a cron sweep re-enqueues work
// a previous process left in flight. The queue only tells it what to run
// and whether a failure is retryable; concurrency and timing live here.
type Dispatcher struct {
	runner      RunnerFunc
	maxAttempts int
	cron        *cron.Cron

	mu      sync.Mutex
	active  map[string]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. The retry ceiling defaults to 5
// attempts and can be overridden with UPLOAD_MAX_ATTEMPTS.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		maxAttempts: getEnvInt("UPLOAD_MAX_ATTEMPTS", 5),
		cron:        cron.New(),
		active:      make(map[string]struct{}),
	}
}

// SetRunner binds the worker body. Must be called before Start; it is
// separate from construction because the queue manager and the dispatcher
// reference each other.
func (d *Dispatcher) SetRunner(runner RunnerFunc) {
	d.runner = runner
}

// Start launches the recovery sweep: once now for tasks interrupted by the
// previous process, then periodically for anything that slips through.
func (d *Dispatcher) Start(manager *queue.Manager) error {
	if d.runner == nil {
		return fmt.Errorf("dispatcher started without a runner")
	}

	if err := manager.RecoverInFlight(); err != nil {
		log.Printf("WARNING: Startup recovery sweep failed: %v", err)
	}

	_, err := d.cron.AddFunc("@every 5m", func() {
		if err := manager.RecoverInFlight(); err != nil {
			log.Printf("WARNING: Recovery sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule recovery sweep: %w", err)
	}

	d.cron.Start()
	log.Println("Upload dispatcher started")
	return nil
}

// Stop halts the sweep, refuses new work and waits for in-flight uploads
// to report an outcome (workers are never interrupted mid-run)
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	ctx := d.cron.Stop()
	<-ctx.Done()
	d.wg.Wait()
	log.Println("Upload dispatcher stopped")
}

// Enqueue schedules one upload for a task. Non-blocking; duplicate enqueues
// of a task already being worked on are coalesced.
func (d *Dispatcher) Enqueue(localID string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		log.Printf("WARNING: Dispatcher stopped, dropping enqueue for %s", localID)
		return
	}
	if _, running := d.active[localID]; running {
		d.mu.Unlock()
		return
	}
	d.active[localID] = struct{}{}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.active, localID)
			d.mu.Unlock()
		}()
		d.runWithBackoff(localID)
	}()
}

// runWithBackoff invokes the worker until it reports a non-retryable
// outcome or the attempt ceiling is reached
func (d *Dispatcher) runWithBackoff(localID string) {
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		switch d.runner(localID) {
		case queue.OutcomeSuccess:
			if attempt > 1 {
				log.Printf("Task %s: Upload succeeded on retry %d/%d", localID, attempt, d.maxAttempts)
			}
			return
		case queue.OutcomeFail:
			log.Printf("Task %s: Permanent failure, no retry", localID)
			return
		case queue.OutcomeRetry:
			if attempt == d.maxAttempts {
				log.Printf("Task %s: All %d attempts failed", localID, d.maxAttempts)
				return
			}
			backoff := time.Duration(500*attempt*attempt) * time.Millisecond // 500ms, 2s, 4.5s, 8s
			log.Printf("Task %s: Retry %d/%d after %v", localID, attempt, d.maxAttempts, backoff)
			time.Sleep(backoff)
		}
	}
}

// getEnvInt retrieves an integer from environment variable with default fallback
func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}
