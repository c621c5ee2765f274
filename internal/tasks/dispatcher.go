package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job is one unit of asynchronous work: a name plus arguments. Callers
// never consume a return value; failures are the dispatcher's problem.
type Job struct {
	ID      string
	Name    string
	Args    map[string]any
	Attempt int
}

// Handler executes a job. Returning an error may trigger a retry
// depending on the registered policy.
type Handler func(ctx context.Context, job Job) error

// RetryPolicy is plain data describing how a job's failures are retried.
// It is passed at registration instead of being baked into the handler,
// so the same handler can run under different policies.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	BackoffFactor  float64
	// Retryable decides whether an error is worth retrying. nil means
	// every error is retryable.
	Retryable func(error) bool
}

// DefaultRetryPolicy retries twice with doubling backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 200 * time.Millisecond, BackoffFactor: 2}
}

type registration struct {
	handler Handler
	policy  RetryPolicy
}

// Dispatcher runs named jobs on a pool of worker goroutines.
// Enqueue is fire-and-forget: the transaction that triggered the job has
// already committed by the time the handler runs.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]registration

	queue  chan Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

func New(workers, buffer int, log zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		handlers: map[string]registration{},
		queue:    make(chan Job, buffer),
		ctx:      ctx,
		cancel:   cancel,
		log:      log.With().Str("component", "tasks").Logger(),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Register binds a handler and its retry policy to a job name.
func (d *Dispatcher) Register(name string, h Handler, policy RetryPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	d.handlers[name] = registration{handler: h, policy: policy}
}

// Enqueue submits a named job and returns its ID. Unknown job names are
// logged and dropped; the caller has nothing useful to do about them.
func (d *Dispatcher) Enqueue(name string, args map[string]any) string {
	job := Job{ID: uuid.NewString(), Name: name, Args: args, Attempt: 1}
	select {
	case d.queue <- job:
		d.log.Debug().Str("job", name).Str("id", job.ID).Msg("job enqueued")
	case <-d.ctx.Done():
		d.log.Warn().Str("job", name).Msg("dispatcher stopped, job dropped")
	}
	return job.ID
}

// Stop drains in-flight work and waits for workers to exit, bounded by ctx.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.log.Warn().Msg("dispatcher stop timed out")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.run(job)
		case <-d.ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case job := <-d.queue:
					d.run(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) run(job Job) {
	d.mu.RLock()
	reg, ok := d.handlers[job.Name]
	d.mu.RUnlock()
	if !ok {
		d.log.Error().Str("job", job.Name).Msg("no handler registered")
		return
	}

	backoff := reg.policy.InitialBackoff
	for {
		err := reg.handler(d.ctx, job)
		if err == nil {
			d.log.Debug().Str("job", job.Name).Str("id", job.ID).Int("attempt", job.Attempt).Msg("job done")
			return
		}
		retryable := reg.policy.Retryable == nil || reg.policy.Retryable(err)
		if !retryable || job.Attempt >= reg.policy.MaxAttempts {
			d.log.Error().Err(err).Str("job", job.Name).Str("id", job.ID).
				Int("attempt", job.Attempt).Msg("job failed permanently")
			return
		}
		d.log.Warn().Err(err).Str("job", job.Name).Str("id", job.ID).
			Int("attempt", job.Attempt).Dur("backoff", backoff).Msg("job failed, retrying")
		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			// Shutdown: give the job one last immediate try, then give up.
		}
		job.Attempt++
		if reg.policy.BackoffFactor > 1 {
			backoff = time.Duration(float64(backoff) * reg.policy.BackoffFactor)
		}
	}
}
