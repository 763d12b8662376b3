package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"go.uber.org/zap"
)

// Определение пользовательских ошибок.
var (
	ErrJobQueueIsFull = errors.New("очередь заданий заполнена")
	ErrJobQueueClosed = errors.New("очередь заданий закрыта")
)

// Job представляет собой функцию, выполняющуюся в очереди заданий.
type Job func(ctx context.Context)

// JobQueueService предоставляет функционал для управления очередью заданий.
type JobQueueService struct {
	jobs    chan Job       // Канал для очереди заданий.
	resume  chan struct{}  // Закрывается при возобновлении после паузы.
	paused  atomic.Bool    // Очередь приостановлена.
	closing bool           // Очередь закрыта для новых заданий.
	wg      sync.WaitGroup // Группа ожидания для отслеживания воркеров.
	mu      sync.Mutex     // Защищает канал resume.
	sendMu  sync.RWMutex   // Защищает closing и отправку в jobs от закрытия канала.
}

// NewJobQueueService создает очередь емкостью capacity и запускает workers воркеров.
// Воркеры завершаются при отмене ctx или после Shutdown.
func NewJobQueueService(ctx context.Context, capacity, workers int) *JobQueueService {
	service := &JobQueueService{
		jobs:   make(chan Job, capacity),
		resume: make(chan struct{}),
	}
	service.start(ctx, workers)

	return service
}

func (jqs *JobQueueService) start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		jqs.wg.Add(1)

		go func() {
			defer jqs.wg.Done()

			for {
				select {
				case job, ok := <-jqs.jobs:
					if !ok {
						return
					}

					for jqs.paused.Load() {
						resumed := jqs.resumed()
						if !jqs.paused.Load() {
							break
						}
						select {
						case <-resumed:
						case <-ctx.Done():
							return
						}
					}

					job(ctx)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (jqs *JobQueueService) resumed() <-chan struct{} {
	jqs.mu.Lock()
	defer jqs.mu.Unlock()
	return jqs.resume
}

// Enqueue добавляет новое задание в очередь.
// Возвращает ошибку, если очередь заполнена или закрыта.
func (jqs *JobQueueService) Enqueue(job Job) error {
	jqs.sendMu.RLock()
	defer jqs.sendMu.RUnlock()

	if jqs.closing {
		return ErrJobQueueClosed
	}

	select {
	case jqs.jobs <- job:
		return nil
	default:
		return ErrJobQueueIsFull
	}
}

// ScheduleJob планирует выполнение задания через заданную задержку.
func (jqs *JobQueueService) ScheduleJob(job Job, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := jqs.Enqueue(job); err != nil {
			logger.Log.Warn("failed to schedule job", zap.Error(err))
		}
	})
}

// Pause приостанавливает выполнение заданий.
func (jqs *JobQueueService) Pause() {
	jqs.paused.Store(true)
}

// Resume возобновляет выполнение заданий после паузы.
func (jqs *JobQueueService) Resume() {
	if jqs.paused.CompareAndSwap(true, false) {
		jqs.mu.Lock()
		defer jqs.mu.Unlock()
		// Закрытие канала освобождает ожидающих воркеров, для следующей паузы нужен новый.
		close(jqs.resume)
		jqs.resume = make(chan struct{})
	}
}

// PauseAndResume приостанавливает выполнение заданий на заданный промежуток времени, а затем возобновляет.
func (jqs *JobQueueService) PauseAndResume(delay time.Duration) {
	jqs.Pause()
	time.AfterFunc(delay, jqs.Resume)
}

// Shutdown корректно завершает работу очереди заданий.
// Закрывает канал заданий и ожидает завершения всех воркеров.
func (jqs *JobQueueService) Shutdown() {
	jqs.sendMu.Lock()
	if jqs.closing {
		jqs.sendMu.Unlock()
		return
	}
	jqs.closing = true
	close(jqs.jobs)
	jqs.sendMu.Unlock()

	jqs.Resume()
	jqs.wg.Wait()
}
