package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"pyquest-backend/internal/domain"
)

// QuestionLoader fetches question content from a backing store (Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// QuestionCache caches questions in Redis (one JSON blob per question) and
// falls back to a loader on cache miss. Stored as:
// SET question:{questionID} {json}
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Get(ctx context.Context, questionID string) (domain.Question, error) {
	key := c.key(questionID)

	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		if question, ok := decode(raw); ok {
			return question, nil
		}
	}

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Result(); err == nil {
			if question, ok := decode(raw); ok {
				return question, nil
			}
		}

		question, err := c.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		if encoded, err := json.Marshal(question); err == nil {
			// best-effort fill; a failed SET just means another miss later
			_ = c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) key(questionID string) string {
	return "question:" + questionID
}

func decode(raw string) (domain.Question, bool) {
	var question domain.Question
	if err := json.Unmarshal([]byte(raw), &question); err != nil {
		return domain.Question{}, false
	}
	return question, true
}

// ttlWithJitter adds up to 10% jitter to spread expirations. Singleflight
// only dedupes per key, so misses for distinct questions reach the RNG
// concurrently; rndMu keeps that safe.
func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
