package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ticketKeyPrefix = "upload:ticket:"

// ErrTicketNotFound is returned when a ticket was never issued, expired, or was already used.
var ErrTicketNotFound = errors.New("upload ticket not found")

// ErrTicketOwner is returned when a ticket is redeemed by someone other than its owner.
var ErrTicketOwner = errors.New("upload ticket belongs to another user")

// TicketStore records which user a presigned media object key was issued to.
// A ticket can be redeemed once.
type TicketStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewTicketStore creates a ticket store whose entries expire after ttl.
func NewTicketStore(rdb redis.Cmdable, ttl time.Duration) *TicketStore {
	return &TicketStore{rdb: rdb, ttl: ttl}
}

// Issue registers objectKey as uploadable by ownerID.
func (s *TicketStore) Issue(ctx context.Context, objectKey, ownerID string) error {
	ok, err := s.rdb.SetNX(ctx, ticketKeyPrefix+objectKey, ownerID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store upload ticket: %w", err)
	}
	if !ok {
		return fmt.Errorf("upload ticket for %s already exists", objectKey)
	}
	return nil
}

// Redeem consumes the ticket for objectKey and checks it was issued to ownerID.
// The ticket is gone afterwards even when the owner does not match.
func (s *TicketStore) Redeem(ctx context.Context, objectKey, ownerID string) error {
	owner, err := s.rdb.GetDel(ctx, ticketKeyPrefix+objectKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrTicketNotFound
		}
		return fmt.Errorf("redeem upload ticket: %w", err)
	}
	if owner != ownerID {
		return ErrTicketOwner
	}
	return nil
}

// TTL returns how long issued tickets stay valid.
func (s *TicketStore) TTL() time.Duration {
	return s.ttl
}
