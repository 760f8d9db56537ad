package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/account-auth/internal/models"
	logctx "github.com/pribylovaa/account-auth/internal/pkg/log"
	"github.com/pribylovaa/account-auth/internal/storage"
)

// Параметры очереди аудита по умолчанию.
const (
	DefaultAuditQueueSize    = 1024
	DefaultAuditWriteTimeout = 3 * time.Second
)

type auditJob struct {
	ctx    context.Context
	record *models.AuditRecord
}

// auditQueue пишет записи о входах в фоне одним воркером.
//
// Очередь ограничена: при переполнении запись отбрасывается, вход не ждёт.
// Контекст записи отвязан от отмены запроса, но сохраняет его значения
// (request-scoped логгер). Close дописывает накопленное и останавливает воркер.
type auditQueue struct {
	store     storage.AuditStorage
	timeout   time.Duration
	onFailure func()

	jobs      chan auditJob
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditQueue(store storage.AuditStorage, size int, timeout time.Duration, onFailure func()) *auditQueue {
	if size <= 0 {
		size = DefaultAuditQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultAuditWriteTimeout
	}

	q := &auditQueue{
		store:     store,
		timeout:   timeout,
		onFailure: onFailure,
		jobs:      make(chan auditJob, size),
		done:      make(chan struct{}),
	}

	q.wg.Add(1)
	go q.run()

	return q
}

// enqueue ставит запись в очередь; false — очередь полна или закрыта.
func (q *auditQueue) enqueue(ctx context.Context, record *models.AuditRecord) bool {
	if q.closed.Load() {
		return false
	}

	select {
	case q.jobs <- auditJob{ctx: context.WithoutCancel(ctx), record: record}:
		return true
	case <-q.done:
		return false
	default:
		return false
	}
}

func (q *auditQueue) run() {
	defer q.wg.Done()

	for {
		select {
		case job := <-q.jobs:
			q.write(job)
		case <-q.done:
			for {
				select {
				case job := <-q.jobs:
					q.write(job)
				default:
					return
				}
			}
		}
	}
}

func (q *auditQueue) write(job auditJob) {
	const op = "service.audit.write"

	ctx, cancel := context.WithTimeout(job.ctx, q.timeout)
	defer cancel()

	if err := q.store.AppendAudit(ctx, job.record); err != nil {
		q.onFailure()
		logctx.From(job.ctx).Warn("audit_append_failed",
			slog.String("op", op),
			slog.String("account_id", job.record.AccountID.String()),
			slog.String("err", err.Error()),
		)
	}
}

// close останавливает приём, дописывает очередь и ждёт воркер. Идемпотентен.
func (q *auditQueue) close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.done)
		q.wg.Wait()
	})
}
