package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/notifications"
	"github.com/campus-pulse/backend/pkg/mailer"
	"github.com/campus-pulse/backend/pkg/queue"
)

// EmailProcessor consumes email jobs: log pending, send via the mailer,
// record the outcome.
type EmailProcessor struct {
	logs   *notifications.Repository
	mailer mailer.Mailer
	queue  *queue.Queue
	logger *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(logs *notifications.Repository, m mailer.Mailer, q *queue.Queue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{logs: logs, mailer: m, queue: q, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	log := &models.NotificationLog{
		UserID:    payload.UserID,
		EventID:   payload.EventID,
		EmailType: payload.EmailType,
		Recipient: payload.RecipientEmail,
		Subject:   payload.Subject,
	}
	if err := p.logs.CreatePending(ctx, log); err != nil {
		p.logger.Error("notification log insert failed", zap.Error(err))
		// Deliver anyway; the log row is bookkeeping, not a precondition.
	}

	err := p.mailer.Send(ctx, mailer.Message{
		ToName:    payload.RecipientName,
		ToAddress: payload.RecipientEmail,
		Subject:   payload.Subject,
		BodyHTML:  payload.BodyHTML,
	})
	if err != nil {
		if log.ID != uuid.Nil {
			_ = p.logs.MarkFailed(ctx, log.ID, err.Error())
		}
		return fmt.Errorf("send: %w", err)
	}
	if log.ID != uuid.Nil {
		_ = p.logs.MarkSent(ctx, log.ID, time.Now())
	}
	p.logger.Info("email sent",
		zap.String("email_type", payload.EmailType),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
