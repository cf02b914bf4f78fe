package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kalambet/intake/internal/storage"
)

// ErrWriterClosed is returned by Append once the writer has stopped.
var ErrWriterClosed = errors.New("record writer closed")

// RecordAppender persists one record at the end of the collection.
type RecordAppender interface {
	Append(ctx context.Context, rec storage.Record) error
}

// Request states. A queued request is claimed either by the writer, which
// then always reports a result, or by a caller that stopped waiting.
const (
	reqQueued int32 = iota
	reqTaken
	reqAbandoned
)

type appendRequest struct {
	ctx    context.Context
	rec    storage.Record
	state  atomic.Int32
	result chan error
}

// Writer is the single owner of collection writes. Appends from any number of
// goroutines are queued and applied one at a time, in arrival order.
type Writer struct {
	store  RecordAppender
	reqs   chan *appendRequest
	done   chan struct{}
	logger *slog.Logger
}

// NewWriter creates a Writer whose queue holds up to depth pending appends.
// A negative depth is treated as 0 (callers hand off directly to Run).
func NewWriter(store RecordAppender, depth int) *Writer {
	if depth < 0 {
		depth = 0
	}
	return &Writer{
		store:  store,
		reqs:   make(chan *appendRequest, depth),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
}

// Run applies queued appends until ctx is cancelled. Appends already queued
// when ctx ends are still written before Run returns.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case req := <-w.reqs:
			w.apply(req)
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case req := <-w.reqs:
			w.apply(req)
		default:
			return
		}
	}
}

func (w *Writer) apply(req *appendRequest) {
	if !req.state.CompareAndSwap(reqQueued, reqTaken) {
		w.logger.Debug("skipping abandoned append", "id", req.rec.ID)
		return
	}
	if err := req.ctx.Err(); err != nil {
		req.result <- err
		return
	}
	start := time.Now()
	err := w.store.Append(context.WithoutCancel(req.ctx), req.rec)
	if err != nil {
		w.logger.Error("append failed", "id", req.rec.ID, "error", err)
	} else {
		w.logger.Debug("record appended", "id", req.rec.ID, "duration", time.Since(start))
	}
	req.result <- err
}

// Append queues rec and waits for the outcome. If ctx ends while rec is still
// queued, rec is dropped and ctx.Err() is returned. Once the write has
// started, Append reports its result regardless of ctx.
func (w *Writer) Append(ctx context.Context, rec storage.Record) error {
	req := &appendRequest{ctx: ctx, rec: rec, result: make(chan error, 1)}

	select {
	case <-w.done:
		return ErrWriterClosed
	default:
	}

	select {
	case w.reqs <- req:
	case <-w.done:
		return ErrWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		if req.state.CompareAndSwap(reqQueued, reqAbandoned) {
			return ctx.Err()
		}
		return <-req.result
	case <-w.done:
		select {
		case err := <-req.result:
			return err
		default:
			return ErrWriterClosed
		}
	}
}

// Pending reports how many appends are waiting in the queue.
func (w *Writer) Pending() int {
	return len(w.reqs)
}
