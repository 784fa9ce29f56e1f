package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monsignal/signal-engine/internal/directory"
	"github.com/monsignal/signal-engine/internal/models"
	"github.com/monsignal/signal-engine/internal/store"
)

type fakeSource struct {
	events []models.TradeEvent
	err    error
	calls  int
}

func (f *fakeSource) Recent(_ context.Context, _ int) ([]models.TradeEvent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type batchFixture struct {
	processor *BatchProcessor
	store     *store.Store
	source    *fakeSource
	sink      *fakeSink
}

func newBatchFixture(t *testing.T) *batchFixture {
	st, err := store.NewStore(setupTestRedis(t))
	require.NoError(t, err)

	resolver := &fakeResolver{users: map[string][]directory.User{
		traderWallet: {{ID: 900, Username: "trader"}},
	}}
	watchers := &fakeWatcherIndex{
		watchers:   map[string][]int64{traderWallet: {1}},
		subscribed: map[int64]bool{1: true},
	}
	sink := &fakeSink{}
	source := &fakeSource{}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	d := NewDispatcher(DispatcherConfig{
		Store:    st,
		Dir:      resolver,
		Graph:    watchers,
		Sink:     sink,
		Logger:   logger,
		AppURL:   appURL,
		DedupTTL: time.Hour,
		Cooldown: time.Minute,
	})

	p := NewBatchProcessor(BatchProcessorConfig{
		Store:      st,
		Source:     source,
		Dispatcher: d,
		Logger:     logger,
		Limit:      100,
	})

	return &batchFixture{processor: p, store: st, source: source, sink: sink}
}

func TestBatchProcessor_ColdStartProcessesEverything(t *testing.T) {
	f := newBatchFixture(t)
	f.source.events = []models.TradeEvent{
		buyEvent("0xaaa2", 12),
		buyEvent("0xaaa1", 11),
	}

	result, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.NoOp)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, int64(12), result.LastBlock)
	// Second event is rate limited against the same recipient, so only one
	// dispatch goes out
	assert.Equal(t, 1, result.Dispatched)
}

func TestBatchProcessor_WatermarkFiltersStaleEvents(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetLastProcessedBlock(ctx, 100))
	f.source.events = []models.TradeEvent{
		buyEvent("0xold1", 99),
		buyEvent("0xold2", 100),
	}

	result, err := f.processor.Run(ctx)
	require.NoError(t, err)

	assert.True(t, result.NoOp)
	assert.Empty(t, f.sink.batches, "stale events never reach the dispatcher")

	block, err := f.store.LastProcessedBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), block, "no-op must not touch the watermark")
}

func TestBatchProcessor_EmptyFetchIsNoOp(t *testing.T) {
	f := newBatchFixture(t)

	result, err := f.processor.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.NoOp)
	assert.Zero(t, result.Fetched)
}

func TestBatchProcessor_AdvancesWatermarkPastSkippedEvents(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	zero := buyEvent("0xzero", 50)
	zero.ToAddress = models.ZeroAddress

	f.source.events = []models.TradeEvent{zero}

	result, err := f.processor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), result.LastBlock, "skipped events still advance the watermark")

	block, err := f.store.LastProcessedBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), block)
}

func TestBatchProcessor_DuplicateTxInOneBatch(t *testing.T) {
	f := newBatchFixture(t)
	f.source.events = []models.TradeEvent{
		buyEvent("0xdupe", 10),
		buyEvent("0xdupe", 10),
	}

	result, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Dispatched)
	assert.Len(t, f.sink.batches, 1, "second occurrence short-circuits at dedup")
}

func TestBatchProcessor_SourceErrorPropagates(t *testing.T) {
	f := newBatchFixture(t)
	f.source.err = errors.New("indexer down")

	_, err := f.processor.Run(context.Background())
	assert.Error(t, err)
}

func TestBatchProcessor_SecondRunSeesNewWatermark(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	f.source.events = []models.TradeEvent{buyEvent("0xaaa1", 10)}
	_, err := f.processor.Run(ctx)
	require.NoError(t, err)

	// Same fetch result again: everything now sits at the watermark
	result, err := f.processor.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.NoOp)
}
