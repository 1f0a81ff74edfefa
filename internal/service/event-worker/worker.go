package eventworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
	"github.com/KattyaCuevas/posts-service/internal/lib/mapper"
	"github.com/KattyaCuevas/posts-service/internal/storage"
)

type PageProvider interface {
	EventPage(ctx context.Context, limit int) ([]models.Event, error)
}

type Deleter interface {
	DeleteEvent(ctx context.Context, ids []string) error
}

type Reserver interface {
	Reserve(ctx context.Context, ids []string) error
	Release(ctx context.Context, ids []string) error
}

type Sender interface {
	Send(ctx context.Context, page []models.Event) error
}

// Worker periodically moves outbox events to the sender
type Worker struct {
	log          *slog.Logger
	pageSize     int
	pageProvider PageProvider
	deleter      Deleter
	reserver     Reserver
	sender       Sender
	interval     time.Duration
	timeout      time.Duration

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(
	log *slog.Logger,
	pageSize int,
	pageProvider PageProvider,
	reserver Reserver,
	deleter Deleter,
	sender Sender,
	interval time.Duration,
	timeout time.Duration,
) *Worker {
	return &Worker{
		log:          log,
		pageSize:     pageSize,
		pageProvider: pageProvider,
		deleter:      deleter,
		reserver:     reserver,
		sender:       sender,
		interval:     interval,
		timeout:      timeout,
		done:         make(chan struct{}),
	}
}

// Start runs the worker loop in background until Stop is called or ctx is done
func (w *Worker) Start(ctx context.Context) {
	const op = "eventworker.Start"
	log := w.log.With(slog.String("op", op))
	log.Info("starting worker", slog.Duration("interval", w.interval))

	ctx, w.cancel = context.WithCancel(ctx)
	ticker := time.NewTicker(w.interval)

	go func() {
		defer close(w.done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("stop signal is received")
				return
			case <-ticker.C:
			}

			err := w.handleEvents(ctx)
			if err != nil {
				log.Error("failed to handle events", sl.Err(err))
			}
		}
	}()
}

// Stop stops the loop and waits for the current page to be handled
func (w *Worker) Stop() {
	const op = "eventworker.Stop"
	w.log.Info("starting to stop worker", slog.String("op", op))

	w.stopOnce.Do(func() {
		if w.cancel == nil {
			close(w.done)
			return
		}
		w.cancel()
	})
	<-w.done

	w.log.Info("worker stopped", slog.String("op", op))
}

// handleEvents publishes one page of events. Published events are deleted,
// events which failed to be sent are released for the next round
func (w *Worker) handleEvents(ctx context.Context) error {
	const op = "eventworker.handleEvents"
	log := w.log.With(slog.String("op", op))
	log.Debug("starting to handle events")

	ctx, cncl := context.WithTimeout(ctx, w.timeout)
	defer cncl()

	page, err := w.pageProvider.EventPage(ctx, w.pageSize)
	if err != nil {
		log.Error("failed to get event page", sl.Err(err))
		return fail(op, err)
	}
	if len(page) == 0 {
		log.Debug("no new events")
		return nil
	}

	ids := mapper.EventsToIds(page)

	err = w.reserver.Reserve(ctx, ids)
	if err != nil {
		if errors.Is(err, storage.ErrNoEvents) {
			log.Info("no new events")
			return nil
		}

		log.Error("failed to reserve events", sl.Err(err))
		return fail(op, err)
	}

	err = w.sender.Send(ctx, page)
	if err != nil {
		log.Error("failed to send events", sl.Err(err))

		// ctx may already be done here
		relCtx, relCncl := context.WithTimeout(context.Background(), w.timeout)
		defer relCncl()
		if relErr := w.reserver.Release(relCtx, ids); relErr != nil {
			log.Error("failed to release events", sl.Err(relErr))
		}

		return fail(op, err)
	}

	err = w.deleter.DeleteEvent(ctx, ids)
	if err != nil {
		log.Error("failed to delete events", sl.Err(err))
		return fail(op, err)
	}

	log.Info("events are handled", slog.Int("count", len(ids)))
	return nil
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
