package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"

	"github.com/redis/go-redis/v9"
)

// voteUpdateChannel is the pub/sub channel carrying live vote updates to
// the websocket feed.
const voteUpdateChannel = "votes:events"

func restrictionKey(userID int64) string {
	return "ban:" + strconv.FormatInt(userID, 10)
}

// SetEnforcementStatus records an applied restriction in Redis with a
// TTL matching its duration, so the hot message path can check it
// without touching PostgreSQL.
func (s *Service) SetEnforcementStatus(userID int64, status string, ttl time.Duration) error {
	if err := s.Redis.Set(s.Ctx, restrictionKey(userID), status, ttl).Err(); err != nil {
		return fmt.Errorf("set enforcement status for user %d: %w", userID, moderr.ErrPersistence)
	}
	return nil
}

// IsUserRestricted checks the enforcement status in Redis.
func (s *Service) IsUserRestricted(userID int64) (bool, error) {
	status, err := s.Redis.Get(s.Ctx, restrictionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check enforcement status for user %d: %w", userID, moderr.ErrPersistence)
	}
	return status != "", nil
}

// PublishVoteUpdate pushes a vote state change onto the pub/sub channel.
func (s *Service) PublishVoteUpdate(update models.VoteUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(s.Ctx, voteUpdateChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish vote update %d: %w", update.VoteID, moderr.ErrPersistence)
	}
	return nil
}

func (s *Service) SubscribeVoteUpdates() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, voteUpdateChannel)
}
