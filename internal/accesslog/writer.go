package accesslog

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains audit jobs handed to it by the writer's dispatcher.
type Worker struct {
	ID         int
	WorkerPool chan chan *Entry
	JobChannel chan *Entry
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan *Entry, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan *Entry),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(*Entry)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case entry := <-w.JobChannel:
				w.Logger.Debug("audit worker writing entry", "worker_id", w.ID, "lock_id", entry.LockID)
				process(entry)
			case <-ctx.Done():
				w.Logger.Debug("audit worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Writer persists access-log entries off the request path. The access
// decision must not block on log durability, but entries must never be
// silently dropped: when the queue is full, Enqueue falls back to a
// synchronous write before returning.
type Writer struct {
	service *Service
	logger  *slog.Logger

	jobQueue   chan *Entry
	workerPool chan chan *Entry
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type WriterConfig struct {
	QueueSize  int
	MaxWorkers int
}

func NewWriter(service *Service, config WriterConfig, logger *slog.Logger) *Writer {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	w := &Writer{
		service:    service,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *Entry, queueSize),
		workerPool: make(chan chan *Entry, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	w.start()
	return w
}

func (w *Writer) start() {
	w.once.Do(func() {
		for i := 0; i < w.maxWorkers; i++ {
			worker := NewWorker(i, w.workerPool, w.logger)
			worker.Start(w.ctx, &w.wg, w.write)
		}

		w.wg.Add(1)
		go w.dispatch()

		w.logger.Info("access log writer started",
			"max_workers", w.maxWorkers,
			"queue_size", cap(w.jobQueue))
	})
}

func (w *Writer) dispatch() {
	defer w.wg.Done()

	for {
		select {
		case entry := <-w.jobQueue:
			select {
			case jobChannel := <-w.workerPool:
				jobChannel <- entry
			case <-w.ctx.Done():
				w.write(entry)
				return
			}
		case <-w.ctx.Done():
			return
		}
	}
}

// Enqueue hands an entry to the pool, writing inline when the queue is
// saturated so the attempt is still logged.
func (w *Writer) Enqueue(entry *Entry) {
	select {
	case w.jobQueue <- entry:
	default:
		w.logger.Warn("audit queue full, writing synchronously", "lock_id", entry.LockID)
		w.write(entry)
	}
}

// Close stops the workers after draining what is left in the queue.
func (w *Writer) Close() {
	for {
		select {
		case entry := <-w.jobQueue:
			w.write(entry)
		default:
			w.cancel()
			w.wg.Wait()
			return
		}
	}
}

func (w *Writer) write(entry *Entry) {
	if err := w.service.Record(entry); err != nil {
		w.logger.Error("failed to persist access log entry",
			"error", err,
			"method", entry.Method,
			"lock_id", entry.LockID,
			"result", entry.Result)
	}
}
