package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// HasProcessed reports whether the transaction has already gone through the
// full dispatch path. Dedup is keyed on the transaction hash alone: multiple
// transfer logs within one transaction collapse into a single record.
func (s *Store) HasProcessed(ctx context.Context, txHash string) (bool, error) {
	_, err := s.client.Get(ctx, keyProcessed(txHash)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get processed marker: %w", err)
	}
	return true, nil
}

// MarkProcessed records the transaction as done for the dedup window. The
// check and the mark are two separate calls; concurrent duplicates can race
// through the gap, which is accepted best-effort behavior.
func (s *Store) MarkProcessed(ctx context.Context, txHash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyProcessed(txHash), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// TryAcquireCooldown attempts to take the per-recipient notification slot.
// It returns true and writes the cooldown record only when no unexpired
// record exists; a false return leaves no side effect. SetNX keeps the
// check and the write in one round trip.
func (s *Store) TryAcquireCooldown(ctx context.Context, id int64, cooldown time.Duration) (bool, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	ok, err := s.client.SetNX(ctx, keyCooldown(id), now, cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("acquire cooldown: %w", err)
	}
	return ok, nil
}

// LastProcessedBlock returns the watermark, or 0 when none has been set yet.
func (s *Store) LastProcessedBlock(ctx context.Context) (int64, error) {
	val, err := s.client.Get(ctx, keyLastBlock).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get watermark: %w", err)
	}
	block, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse watermark %q: %w", val, err)
	}
	return block, nil
}

// SetLastProcessedBlock advances the watermark. It is a plain overwrite: the
// watermark only bounds the next fetch window, duplicates slipping past it
// are caught by the dedup records.
func (s *Store) SetLastProcessedBlock(ctx context.Context, block int64) error {
	if err := s.client.Set(ctx, keyLastBlock, strconv.FormatInt(block, 10), 0).Err(); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}
