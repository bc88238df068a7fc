package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
)

// AnswerCache keeps finished answers per source scope.
type AnswerCache interface {
	Lookup(ctx context.Context, sources []string, question string, threshold int) (string, bool, error)
	Store(ctx context.Context, sources []string, question, answer string) error
}

// RedisAnswerCache stores one hash per scope mapping question to answer.
type RedisAnswerCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisAnswerCache(client *redis.Client, ttl time.Duration) *RedisAnswerCache {
	return &RedisAnswerCache{redis: client, ttl: ttl}
}

func scopeKey(sources []string) string {
	if len(sources) == 0 {
		return "answer_cache:all"
	}
	sorted := append([]string(nil), sources...)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, "\x00")))
	return "answer_cache:" + hex.EncodeToString(sum[:])
}

// Lookup returns the cached answer whose question is most similar to
// question, if that similarity reaches threshold (0-100).
func (c *RedisAnswerCache) Lookup(ctx context.Context, sources []string, question string, threshold int) (string, bool, error) {
	entries, err := c.redis.HGetAll(ctx, scopeKey(sources)).Result()
	if err != nil {
		return "", false, err
	}

	best, bestScore := "", -1
	for cached, answer := range entries {
		if score := QuestionSimilarity(question, cached); score > bestScore {
			best, bestScore = answer, score
		}
	}
	if bestScore < 0 || bestScore < threshold {
		return "", false, nil
	}
	return best, true, nil
}

func (c *RedisAnswerCache) Store(ctx context.Context, sources []string, question, answer string) error {
	key := scopeKey(sources)
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, key, normalizeQuestion(question), answer)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func normalizeQuestion(q string) string {
	return strings.Join(questionWords(q), " ")
}

func questionWords(q string) []string {
	return strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// QuestionSimilarity is the Jaccard similarity of the word sets of a and b
// as a percentage.
func QuestionSimilarity(a, b string) int {
	setA := map[string]struct{}{}
	for _, w := range questionWords(a) {
		setA[w] = struct{}{}
	}
	setB := map[string]struct{}{}
	for _, w := range questionWords(b) {
		setB[w] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 100
	}

	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return shared * 100 / union
}
