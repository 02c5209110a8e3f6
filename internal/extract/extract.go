// Package extract turns free-form user text into a structured scheduling
// intent by delegating natural-language robustness to a text-completion
// provider. Every failure path degrades to "not a scheduling request";
// the extractor never returns an error to its caller.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Quinventa/Buddy-sub001/internal/metrics"
	"github.com/Quinventa/Buddy-sub001/internal/models"
)

const systemPrompt = `You interpret messages from elderly users of a companion app.
Decide whether the message is a request to schedule a calendar event.
Users often mistype; correct obvious misspellings of scheduling vocabulary
(for example "shedule" means "schedule", "apointment" means "appointment",
"tomorow" means "tomorrow") and never carry typos into extracted fields.
Respond with exactly one JSON object and nothing else, in this shape:
{"isSchedulingRequest": true|false, "title": "", "date": "YYYY-MM-DD",
"time": "HH:MM", "duration": minutes, "location": "", "guests": [],
"description": "", "missing": []}
If the message is not a scheduling request, return
{"isSchedulingRequest": false}. List in "missing" every required field
(title, date, time) you could not determine.`

// Extractor parses scheduling intents out of user text.
type Extractor struct {
	providers []CompletionProvider
	limiter   *rate.Limiter
	redis     *redis.Client
	cacheTTL  time.Duration
	logger    *zerolog.Logger
}

// NewExtractor builds an extractor over an ordered provider list. The
// first configured provider wins; ordering comes from the config.
func NewExtractor(providers []CompletionProvider, ratePerSec float64, burst int, logger *zerolog.Logger) *Extractor {
	if ratePerSec <= 0 {
		ratePerSec = 2.0
	}
	if burst <= 0 {
		burst = 5
	}
	return &Extractor{
		providers: providers,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:    logger,
	}
}

// UseRedisCache configures optional caching of extraction results keyed
// on the normalized input text.
func (e *Extractor) UseRedisCache(client *redis.Client, ttl time.Duration) {
	e.redis = client
	e.cacheTTL = ttl
}

// Extract interprets userText as a scheduling request. It always returns
// a well-formed intent: configuration errors, upstream failures and
// malformed completions all yield {isSchedulingRequest: false}.
func (e *Extractor) Extract(ctx context.Context, userText string) *models.SchedulingIntent {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		metrics.IncExtraction("empty_input")
		return models.NotASchedulingRequest()
	}

	provider := e.selectProvider()
	if provider == nil {
		e.logger.Warn().Msg("no completion provider configured, skipping extraction")
		metrics.IncExtraction("no_credential")
		return models.NotASchedulingRequest()
	}

	cacheKey := "extract:" + hashText(userText)
	if cached := e.readCache(ctx, cacheKey); cached != nil {
		metrics.IncExtraction("cache_hit")
		return cached
	}

	if err := e.limiter.Wait(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("extraction cancelled while rate limited")
		metrics.IncExtraction("cancelled")
		return models.NotASchedulingRequest()
	}

	start := time.Now()
	completion, err := provider.Complete(ctx, systemPrompt, userText)
	metrics.ObserveExtractionDuration(time.Since(start).Seconds())
	if err != nil {
		e.logger.Error().Err(err).Str("provider", provider.Name()).Msg("extraction call failed")
		metrics.IncExtraction("upstream_error")
		return models.NotASchedulingRequest()
	}

	intent, ok := parseIntent(completion)
	if !ok {
		e.logger.Error().Str("provider", provider.Name()).Msg("unparseable extraction completion")
		metrics.IncExtraction("parse_error")
		return models.NotASchedulingRequest()
	}

	metrics.IncExtraction("ok")
	e.writeCache(ctx, cacheKey, intent)
	return intent
}

// selectProvider returns the first provider with a credential present.
func (e *Extractor) selectProvider() CompletionProvider {
	for _, p := range e.providers {
		if p.Configured() {
			return p
		}
	}
	return nil
}

// parseIntent extracts the single JSON object the provider was instructed
// to return. Models occasionally wrap output in code fences or prose, so
// the text is trimmed to its outermost braces and, when straight parsing
// fails, run through jsonrepair before giving up.
func parseIntent(completion string) (*models.SchedulingIntent, bool) {
	text := strings.TrimSpace(completion)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	text = text[start : end+1]

	var intent models.SchedulingIntent
	if err := json.Unmarshal([]byte(text), &intent); err == nil {
		return &intent, true
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &intent); err != nil {
		return nil, false
	}
	return &intent, true
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(text)))
	return hex.EncodeToString(sum[:])
}

func (e *Extractor) readCache(ctx context.Context, key string) *models.SchedulingIntent {
	if e.redis == nil || e.cacheTTL <= 0 {
		return nil
	}
	val, err := e.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}
	var intent models.SchedulingIntent
	if err := json.Unmarshal([]byte(val), &intent); err != nil {
		return nil
	}
	return &intent
}

func (e *Extractor) writeCache(ctx context.Context, key string, intent *models.SchedulingIntent) {
	if e.redis == nil || e.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(intent)
	if err != nil {
		return
	}
	_ = e.redis.Set(ctx, key, data, e.cacheTTL).Err()
}
