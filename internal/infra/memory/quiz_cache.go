package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quizweb/internal/domain"
)

// QuizLoader fetches quiz details from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error)
}

// QuizCache caches quiz details with TTL to avoid repeated DB hits.
type QuizCache struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[int64]cachedQuiz
}

type cachedQuiz struct {
	detail    domain.QuizDetail
	expiresAt time.Time
}

func NewQuizCache(loader QuizLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedQuiz),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error) {
	if detail, ok := c.lookup(quizID); ok {
		return detail, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		if detail, ok := c.lookup(quizID); ok {
			return detail, nil
		}

		detail, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizDetail{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedQuiz{
			detail:    detail,
			expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return detail, nil
	})
	if err != nil {
		return domain.QuizDetail{}, err
	}
	return result.(domain.QuizDetail), nil
}

// Invalidate drops the cached entry so the next read goes to the loader.
func (c *QuizCache) Invalidate(_ context.Context, quizID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, quizID)
}

func (c *QuizCache) lookup(quizID int64) (domain.QuizDetail, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuizDetail{}, false
	}
	return entry.detail, true
}

func (c *QuizCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
