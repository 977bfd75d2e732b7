package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

// ErrSessionNotFound is returned when no progress session exists for the operator and booking.
var ErrSessionNotFound = errors.New("progress session not found")

// ProgressSessionRepository keeps in-flight progress sessions in Redis.
type ProgressSessionRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewProgressSessionRepository constructs the store. Sessions expire after ttl as a safety net.
func NewProgressSessionRepository(client redis.UniversalClient, ttl time.Duration) *ProgressSessionRepository {
	if ttl <= 0 {
		ttl = 36 * time.Hour
	}
	return &ProgressSessionRepository{client: client, ttl: ttl}
}

// SessionKey is the Redis key of one operator's session for one booking.
func SessionKey(operatorID, bookingID int64) string {
	return fmt.Sprintf("%sprogress:%d:%d", keyPrefix, operatorID, bookingID)
}

// Get loads a session.
func (r *ProgressSessionRepository) Get(ctx context.Context, operatorID, bookingID int64) (*models.ProgressSession, error) {
	raw, err := r.client.Get(ctx, SessionKey(operatorID, bookingID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get progress session: %w", err)
	}
	var session models.ProgressSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode progress session: %w", err)
	}
	return &session, nil
}

// Save writes a session, replacing any previous version.
func (r *ProgressSessionRepository) Save(ctx context.Context, session *models.ProgressSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode progress session: %w", err)
	}
	if err := r.client.Set(ctx, SessionKey(session.OperatorID, session.BookingID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set progress session: %w", err)
	}
	return nil
}

// Delete discards a session.
func (r *ProgressSessionRepository) Delete(ctx context.Context, operatorID, bookingID int64) error {
	if err := r.client.Del(ctx, SessionKey(operatorID, bookingID)).Err(); err != nil {
		return fmt.Errorf("redis delete progress session: %w", err)
	}
	return nil
}
