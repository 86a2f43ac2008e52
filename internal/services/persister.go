package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"financia/internal/backend"
	"financia/internal/budget"
	"financia/internal/core"
	"financia/internal/log"
	"financia/internal/snapshot"
)

const (
	// DefaultPersistTimeout bounds a single backend save.
	DefaultPersistTimeout = 5 * time.Second

	// DefaultRetryBase and DefaultRetryMax shape the backoff after a failed
	// save: the delay doubles from the base up to the max.
	DefaultRetryBase = time.Second
	DefaultRetryMax  = time.Minute
)

// Persister mirrors a budget.Store into a backend. StateChanged never blocks
// on I/O: it keeps the newest state and wakes Run, which saves it locally
// first and then publishes a sync message.
type Persister struct {
	writer    backend.StateWriter
	publisher backend.SyncPublisher
	userID    string
	timeout   time.Duration
	retryBase time.Duration
	retryMax  time.Duration
	now       func() time.Time
	logger    *log.Logger

	mu      sync.Mutex
	pending *budget.State
	saved   uint64
	wake    chan struct{}
}

var _ budget.Observer = (*Persister)(nil)

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithPublisher enables sync messages after each successful save.
func WithPublisher(p backend.SyncPublisher) PersisterOption {
	return func(ps *Persister) { ps.publisher = p }
}

// WithPersistTimeout overrides DefaultPersistTimeout.
func WithPersistTimeout(d time.Duration) PersisterOption {
	return func(ps *Persister) {
		if d > 0 {
			ps.timeout = d
		}
	}
}

// WithRetryBackoff overrides DefaultRetryBase and DefaultRetryMax.
func WithRetryBackoff(base, maxDelay time.Duration) PersisterOption {
	return func(ps *Persister) {
		if base > 0 {
			ps.retryBase = base
		}
		if maxDelay > 0 {
			ps.retryMax = maxDelay
		}
	}
}

// WithLogger sets the logger used for background failures.
func WithLogger(l *log.Logger) PersisterOption {
	return func(ps *Persister) { ps.logger = l }
}

// WithNow replaces time.Now for lastUpdated stamps.
func WithNow(now func() time.Time) PersisterOption {
	return func(ps *Persister) { ps.now = now }
}

func NewPersister(writer backend.StateWriter, userID string, opts ...PersisterOption) *Persister {
	p := &Persister{
		writer:    writer,
		userID:    userID,
		timeout:   DefaultPersistTimeout,
		retryBase: DefaultRetryBase,
		retryMax:  DefaultRetryMax,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(log.DefaultConfig())
	}
	p.logger = p.logger.WithComponent(log.ComponentPersist)
	return p
}

// StateChanged records st if it is newer than what is pending and wakes Run.
func (p *Persister) StateChanged(st budget.State) {
	p.mu.Lock()
	if p.pending == nil || st.Revision > p.pending.Revision {
		p.pending = &st
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run saves pending states until ctx is done, then flushes what is left.
// A failed save is retried with exponential backoff even when no further
// change arrives.
func (p *Persister) Run(ctx context.Context) error {
	retry := time.NewTimer(time.Hour)
	retry.Stop()
	defer retry.Stop()
	failures := 0

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
			defer cancel()
			if err := p.Flush(flushCtx); err != nil {
				p.logger.Error("Final flush failed", log.FieldUserID, p.userID, log.FieldError, err)
			}
			return nil
		case <-p.wake:
		case <-retry.C:
		}

		if err := p.Flush(ctx); err != nil {
			failures++
			wait := p.retryDelay(failures)
			p.logger.ErrorContext(ctx, "Failed to persist state",
				log.FieldUserID, p.userID,
				log.FieldOperation, log.OpPersist,
				"attempt", failures,
				"retry_in", wait,
				log.FieldError, err)
			retry.Reset(wait)
			continue
		}
		if failures > 0 {
			p.logger.InfoContext(ctx, "State persisted after retry",
				log.FieldUserID, p.userID, "attempts", failures+1)
			failures = 0
			retry.Stop()
		}
	}
}

// retryDelay doubles from retryBase per consecutive failure, capped at
// retryMax.
func (p *Persister) retryDelay(failures int) time.Duration {
	d := p.retryBase
	for i := 1; i < failures && d < p.retryMax; i++ {
		d *= 2
	}
	return min(d, p.retryMax)
}

// Flush saves the pending state, if any, and publishes its revision.
// A stale revision is not an error: a newer one is already stored.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	st := p.pending
	p.pending = nil
	p.mu.Unlock()
	if st == nil {
		return nil
	}

	saveCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.writer.SaveState(saveCtx, p.userID, snapshot.FromState(*st, p.now()))
	switch {
	case errors.Is(err, core.ErrStaleRevision):
		p.logger.DebugContext(ctx, "Skipped stale state",
			log.FieldUserID, p.userID, log.FieldRevision, st.Revision)
		return nil
	case err != nil:
		p.requeue(*st)
		return fmt.Errorf("save revision %d: %w", st.Revision, err)
	}

	p.mu.Lock()
	if st.Revision > p.saved {
		p.saved = st.Revision
	}
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "State persisted",
		log.FieldUserID, p.userID, log.FieldRevision, st.Revision)

	if p.publisher == nil {
		return nil
	}
	if err := p.publisher.PublishStateSync(ctx, p.userID, st.Revision); err != nil {
		// The worker's poller picks the revision up later.
		p.logger.WarnContext(ctx, "Failed to publish sync message",
			log.FieldUserID, p.userID,
			log.FieldRevision, st.Revision,
			log.FieldError, err)
	}
	return nil
}

// requeue puts st back unless something newer arrived meanwhile.
func (p *Persister) requeue(st budget.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil || st.Revision > p.pending.Revision {
		p.pending = &st
	}
}

// SavedRevision is the highest revision the backend accepted.
func (p *Persister) SavedRevision() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved
}
