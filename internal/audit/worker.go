package audit

import "context"

// Worker consumes audit events from a buffered channel and persists them.
// It keeps background processing testable without wiring a queue.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

// Run consumes events until ctx is cancelled or the inbox closes. On
// cancellation it drains events already buffered so none are dropped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(ctx)
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

// drain appends whatever is still buffered without blocking.
func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.inbox:
			if !ok {
				return
			}
			_ = w.store.Append(ctx, event)
		default:
			return
		}
	}
}
