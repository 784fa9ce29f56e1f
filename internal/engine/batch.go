package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/monsignal/signal-engine/internal/models"
	"github.com/monsignal/signal-engine/internal/store"
)

// BatchResult summarizes one processing pass.
type BatchResult struct {
	Fetched           int   `json:"fetched"`
	Processed         int   `json:"processed"`
	Dispatched        int   `json:"dispatched"`
	NotificationsSent int   `json:"notificationsSent"`
	LastBlock         int64 `json:"lastBlock"`
	NoOp              bool  `json:"noOp"`
}

// BatchProcessor drives the Dispatcher over one bounded window of events
// per invocation. It has no scheduler of its own: a timer or an inbound
// trigger calls Run, which executes a single pass to completion.
type BatchProcessor struct {
	store      *store.Store
	source     EventSource
	dispatcher *Dispatcher
	logger     *logrus.Logger
	limit      int
}

// BatchProcessorConfig holds dependencies and tuning for a BatchProcessor.
type BatchProcessorConfig struct {
	Store      *store.Store
	Source     EventSource
	Dispatcher *Dispatcher
	Logger     *logrus.Logger
	Limit      int
}

func NewBatchProcessor(cfg BatchProcessorConfig) *BatchProcessor {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Limit < 1 {
		cfg.Limit = 100
	}
	return &BatchProcessor{
		store:      cfg.Store,
		source:     cfg.Source,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		limit:      cfg.Limit,
	}
}

// Run fetches recent events, drops those at or below the watermark, runs
// the dispatcher over the rest sequentially in arrival order, and advances
// the watermark to the highest block seen in the surviving batch. Events
// are processed one at a time so that dedup and cooldown marks are visible
// to later events in the same pass. A per-event failure never aborts the
// rest of the batch.
func (p *BatchProcessor) Run(ctx context.Context) (*BatchResult, error) {
	watermark, err := p.store.LastProcessedBlock(ctx)
	if err != nil {
		return nil, err
	}

	events, err := p.source.Recent(ctx, p.limit)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return &BatchResult{NoOp: true, LastBlock: watermark}, nil
	}

	// Watermark filter, skipped on cold start so the first pass can seed
	fresh := events
	if watermark > 0 {
		fresh = make([]models.TradeEvent, 0, len(events))
		for _, event := range events {
			if event.BlockNumber > watermark {
				fresh = append(fresh, event)
			}
		}
	}
	if len(fresh) == 0 {
		return &BatchResult{Fetched: len(events), NoOp: true, LastBlock: watermark}, nil
	}

	result := &BatchResult{Fetched: len(events)}
	maxBlock := watermark
	for _, event := range fresh {
		if event.BlockNumber > maxBlock {
			maxBlock = event.BlockNumber
		}

		res, err := p.dispatcher.ProcessTrade(ctx, event)
		if err != nil {
			p.logger.WithError(err).WithField("tx", event.TxHash).Error("event processing failed")
			continue
		}
		result.Processed++
		if res.Dispatched {
			result.Dispatched++
			result.NotificationsSent += res.NotificationsSent
		}
	}

	if err := p.store.SetLastProcessedBlock(ctx, maxBlock); err != nil {
		return nil, err
	}
	result.LastBlock = maxBlock

	p.logger.WithFields(logrus.Fields{
		"fetched":    result.Fetched,
		"processed":  result.Processed,
		"dispatched": result.Dispatched,
		"sent":       result.NotificationsSent,
		"last_block": result.LastBlock,
	}).Info("batch pass complete")

	return result, nil
}
