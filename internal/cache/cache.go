package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// Cache errors
var (
	ErrCacheNotAvailable = fmt.Errorf("cache not available")
	ErrCacheNotFound     = fmt.Errorf("cache not found")
)

// Default TTLs. Expiry is enforced by Redis itself; an entry is never served
// past its TTL even if not yet evicted.
const (
	AnalyticsTTL  = 300 * time.Second
	SurveyListTTL = 60 * time.Second
)

// Key scheme. Reproduced exactly for interop with other consumers of the
// same Redis instance.
func AnalyticsKey(surveyID uint) string {
	return fmt.Sprintf("survey_analytics:%d", surveyID)
}

func SurveyListKey(fingerprint string) string {
	return fmt.Sprintf("survey_list:%s", fingerprint)
}

func surveyScopePattern(surveyID uint) string {
	return fmt.Sprintf("survey_*:%d", surveyID)
}

// CacheService provides best-effort caching over Redis. Every operation
// degrades gracefully: a nil client or a Redis failure surfaces as a miss
// (Get) or a false success flag (Set/Delete/InvalidatePattern), never as an
// error the caller has to handle.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

// Get retrieves and unmarshals data from cache.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache with the given TTL.
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if c.client == nil {
		return false
	}

	data, err := json.Marshal(value)
	if err != nil {
		slog.ErrorContext(ctx, "Cache marshal error", "error", err, "key", key)
		return false
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.ErrorContext(ctx, "Cache set error", "error", err, "key", key)
		return false
	}

	return true
}

// Delete removes a single key from cache.
func (c *CacheService) Delete(ctx context.Context, key string) bool {
	if c.client == nil {
		return false
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		slog.ErrorContext(ctx, "Cache delete error", "error", err, "key", key)
		return false
	}

	return true
}

// InvalidatePattern removes all keys matching a glob-style pattern using SCAN
// instead of KEYS.
func (c *CacheService) InvalidatePattern(ctx context.Context, pattern string) bool {
	keys, ok := c.scan(ctx, pattern)
	if !ok {
		return false
	}
	return c.deleteKeys(ctx, keys)
}

func (c *CacheService) scan(ctx context.Context, pattern string) ([]string, bool) {
	if c.client == nil {
		return nil, false
	}

	var cursor uint64
	var keys []string
	for {
		scanKeys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.ErrorContext(ctx, "Cache scan pattern error", "error", err, "pattern", pattern)
			return nil, false
		}
		keys = append(keys, scanKeys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, true
}

func (c *CacheService) deleteKeys(ctx context.Context, keys []string) bool {
	if len(keys) == 0 {
		return true
	}

	pipe := c.client.Pipeline()
	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		pipe.Del(ctx, keys[i:end]...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "Cache pipeline delete error", "error", err, "total_keys", len(keys))
		return false
	}

	return true
}

// Ping verifies cache connectivity.
func (c *CacheService) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}

// Close releases the underlying client.
func (c *CacheService) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ===== SURVEY-SPECIFIC CACHE METHODS =====

// GetSurveyAnalytics returns the cached analytics for a survey, or false on
// any kind of miss.
func (c *CacheService) GetSurveyAnalytics(ctx context.Context, surveyID uint) (*models.SurveyAnalytics, bool) {
	var analytics models.SurveyAnalytics
	if err := c.Get(ctx, AnalyticsKey(surveyID), &analytics); err != nil {
		return nil, false
	}
	return &analytics, true
}

// SetSurveyAnalytics caches the analytics for a survey under the default
// analytics TTL.
func (c *CacheService) SetSurveyAnalytics(ctx context.Context, surveyID uint, analytics *models.SurveyAnalytics) bool {
	return c.Set(ctx, AnalyticsKey(surveyID), analytics, AnalyticsTTL)
}

// GetSurveyList returns the cached survey list for a filter fingerprint.
func (c *CacheService) GetSurveyList(ctx context.Context, fingerprint string, dest interface{}) bool {
	return c.Get(ctx, SurveyListKey(fingerprint), dest) == nil
}

// SetSurveyList caches a survey list result under the default list TTL.
func (c *CacheService) SetSurveyList(ctx context.Context, fingerprint string, surveys interface{}) bool {
	return c.Set(ctx, SurveyListKey(fingerprint), surveys, SurveyListTTL)
}

// InvalidateSurvey removes every survey_<kind>:{id} entry for the given
// survey. Redis glob matching alone would also catch keys whose trailing
// identity merely ends with the same digits (survey_analytics:142 for survey
// 42), so scanned keys are checked for an exact identity suffix before
// deletion.
func (c *CacheService) InvalidateSurvey(ctx context.Context, surveyID uint) bool {
	keys, ok := c.scan(ctx, surveyScopePattern(surveyID))
	if !ok {
		return false
	}

	suffix := fmt.Sprintf(":%d", surveyID)
	scoped := keys[:0]
	for _, key := range keys {
		kind, found := strings.CutSuffix(key, suffix)
		if !found || !strings.HasPrefix(kind, "survey_") || strings.Contains(kind, ":") {
			continue
		}
		scoped = append(scoped, key)
	}

	return c.deleteKeys(ctx, scoped)
}
