package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quizweb/internal/config"
	"quizweb/internal/domain"
)

// QuizLoader fetches quiz details from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error)
}

// QuizCache keeps quiz details as JSON under quiz:{id}:detail and falls back
// to a loader on cache miss. Redis failures degrade to direct loads.
type QuizCache struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizCache(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error) {
	if detail, ok := c.lookup(ctx, quizID); ok {
		return detail, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if detail, ok := c.lookup(ctx, quizID); ok {
			return detail, nil
		}

		detail, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizDetail{}, err
		}

		// a zero expiration would keep the key forever; ttl <= 0 disables caching
		if c.ttl <= 0 {
			return detail, nil
		}
		raw, err := json.Marshal(detail)
		if err == nil {
			err = c.client.Set(ctx, c.detailKey(quizID), raw, c.ttlWithJitter()).Err()
		}
		if err != nil {
			config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("quiz cache write failed")
		}
		return detail, nil
	})
	if err != nil {
		return domain.QuizDetail{}, err
	}
	return result.(domain.QuizDetail), nil
}

func (c *QuizCache) Invalidate(ctx context.Context, quizID int64) {
	if err := c.client.Del(ctx, c.detailKey(quizID)).Err(); err != nil {
		config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("quiz cache invalidation failed")
	}
}

func (c *QuizCache) lookup(ctx context.Context, quizID int64) (domain.QuizDetail, bool) {
	raw, err := c.client.Get(ctx, c.detailKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("quiz cache read failed")
		}
		return domain.QuizDetail{}, false
	}
	var detail domain.QuizDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		_ = c.client.Del(ctx, c.detailKey(quizID)).Err()
		return domain.QuizDetail{}, false
	}
	return detail, true
}

func (c *QuizCache) detailKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":detail"
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
