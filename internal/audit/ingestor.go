package audit

import (
	"context"
	"sync"
	"time"

	"github.com/nulzo/model-registry/internal/store"
	"github.com/nulzo/model-registry/internal/store/model"
	"go.uber.org/zap"
)

// Recorder accepts audit events without blocking the caller.
type Recorder interface {
	Record(event *model.AuditEvent)
}

// Ingestor handles the asynchronous persistence of audit events.
type Ingestor interface {
	Recorder
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	eventChan chan *model.AuditEvent
	batchSize int
	flushTime time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// Option tunes the ingestor buffer and flush cadence.
type Option func(*ingestor)

func WithBatchSize(n int) Option {
	return func(i *ingestor) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(i *ingestor) {
		if d > 0 {
			i.flushTime = d
		}
	}
}

func WithBufferSize(n int) Option {
	return func(i *ingestor) {
		if n > 0 {
			i.eventChan = make(chan *model.AuditEvent, n)
		}
	}
}

func NewIngestor(logger *zap.Logger, repo store.Repository, opts ...Option) Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &ingestor{
		logger:    logger,
		repo:      repo,
		eventChan: make(chan *model.AuditEvent, 1000),
		batchSize: 50,
		flushTime: 5 * time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *ingestor) Record(event *model.AuditEvent) {
	select {
	case i.eventChan <- event:
	default:
		i.logger.Warn("Audit buffer full, dropping event",
			zap.String("id", event.ID),
			zap.String("action", event.Action))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

// Stop closes the buffer and waits for the final flush.
func (i *ingestor) Stop() {
	i.stopOnce.Do(func() {
		close(i.eventChan)
	})
	<-i.done
}

func (i *ingestor) worker(ctx context.Context) {
	defer close(i.done)

	batch := make([]*model.AuditEvent, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		err := i.repo.WithTx(context.Background(), func(repo store.Repository) error {
			for _, event := range batch {
				if err := repo.Audit().Log(context.Background(), event); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			i.logger.Error("Failed to persist audit batch", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-i.eventChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			// drain whatever was already accepted
			for {
				select {
				case event, ok := <-i.eventChan:
					if !ok {
						flush()
						return
					}
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(*model.AuditEvent) {}
