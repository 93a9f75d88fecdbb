package history

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ksmt/ava/internal/models"
	"github.com/ksmt/ava/internal/types"
)

type appendJob struct {
	chatID string
	msg    models.Message
}

// Writer decouples history appends from the response path. Enqueue
// never blocks the caller; a single worker drains the queue in order,
// which keeps appends FIFO per chat id. Failures are logged, never
// surfaced to the chat response.
type Writer struct {
	store   types.HistoryStore
	queue   chan appendJob
	timeout time.Duration
	wg      sync.WaitGroup

	closeOnce sync.Once
}

func NewWriter(store types.HistoryStore, queueSize int, timeout time.Duration) *Writer {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	w := &Writer{
		store:   store,
		queue:   make(chan appendJob, queueSize),
		timeout: timeout,
	}

	w.wg.Add(1)
	go w.run()

	return w
}

// Enqueue schedules an append. A full queue drops the message rather
// than blocking the response path.
func (w *Writer) Enqueue(chatID string, msg models.Message) {
	select {
	case w.queue <- appendJob{chatID: chatID, msg: msg}:
	default:
		log.Printf("history queue full, dropping message for chat %s", chatID)
	}
}

func (w *Writer) run() {
	defer w.wg.Done()

	for job := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.store.Append(ctx, job.chatID, job.msg); err != nil {
			log.Printf("history append failed for chat %s: %v", job.chatID, err)
		}
		cancel()
	}
}

// Close drains pending appends and stops the worker.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.queue)
	})
	w.wg.Wait()
}
