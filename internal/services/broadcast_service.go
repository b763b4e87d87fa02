package services

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/pointmart/backend/internal/transport"
	"golang.org/x/sync/errgroup"
)

// BroadcastService sends one admin text to many users. Each delivery is
// attempted once; failures are counted, not retried.
type BroadcastService struct {
	messenger   transport.Messenger
	log         *logger.Logger
	concurrency int
}

func NewBroadcastService(messenger transport.Messenger, concurrency int, log *logger.Logger) *BroadcastService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BroadcastService{
		messenger:   messenger,
		log:         log.With("service", "BroadcastService"),
		concurrency: concurrency,
	}
}

// Broadcast delivers text to every recipient and returns the tally. The
// caller's cancellation does not stop a broadcast once started.
func (s *BroadcastService) Broadcast(ctx context.Context, recipients []int64, text string) models.BroadcastResult {
	ctx = context.WithoutCancel(ctx)
	jobID := uuid.NewString()
	targets := append([]int64(nil), recipients...)
	log := s.log.With("job_id", jobID)
	log.Info("broadcast started", "recipients", len(targets))

	var success, failure atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, chatID := range targets {
		chatID := chatID
		g.Go(func() error {
			if err := s.messenger.SendText(ctx, chatID, text, nil); err != nil {
				failure.Add(1)
				log.Warn("broadcast delivery failed", "chat_id", chatID, "error", err)
				return nil
			}
			success.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := models.BroadcastResult{
		JobID:      jobID,
		Recipients: len(targets),
		Success:    int(success.Load()),
		Failure:    int(failure.Load()),
	}
	log.Info("broadcast finished", "success", result.Success, "failure", result.Failure)
	return result
}
