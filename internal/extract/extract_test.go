package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quinventa/Buddy-sub001/internal/config"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return &logger
}

// fakeProvider counts calls and returns a canned completion.
type fakeProvider struct {
	name       string
	configured bool
	completion string
	err        error
	calls      int
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Complete(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.completion, nil
}

func TestExtractNoCredentialSkipsNetworkCall(t *testing.T) {
	p1 := &fakeProvider{name: "xai", configured: false}
	p2 := &fakeProvider{name: "openai", configured: false}
	e := NewExtractor([]CompletionProvider{p1, p2}, 100, 100, testLogger())

	intent := e.Extract(context.Background(), "schedule lunch tomorrow at noon")

	assert.False(t, intent.IsSchedulingRequest)
	assert.Zero(t, p1.calls, "unconfigured provider must not be called")
	assert.Zero(t, p2.calls, "unconfigured provider must not be called")
}

func TestExtractFirstConfiguredProviderWins(t *testing.T) {
	p1 := &fakeProvider{name: "xai", configured: false}
	p2 := &fakeProvider{
		name:       "openai",
		configured: true,
		completion: `{"isSchedulingRequest": true, "title": "Lunch", "date": "2026-09-01", "time": "12:00", "missing": []}`,
	}
	e := NewExtractor([]CompletionProvider{p1, p2}, 100, 100, testLogger())

	intent := e.Extract(context.Background(), "schedule lunch tomorrow at noon")

	require.True(t, intent.IsSchedulingRequest)
	assert.Equal(t, "Lunch", intent.Title)
	assert.Zero(t, p1.calls)
	assert.Equal(t, 1, p2.calls)
}

func TestExtractCorrectsTypos(t *testing.T) {
	// The provider carries the typo-correction contract; the extractor
	// must pass its corrected fields through untouched.
	p := &fakeProvider{
		name:       "xai",
		configured: true,
		completion: `{"isSchedulingRequest": true, "title": "Doctor appointment", "date": "2026-08-31", "time": "15:00", "missing": []}`,
	}
	e := NewExtractor([]CompletionProvider{p}, 100, 100, testLogger())

	intent := e.Extract(context.Background(), "shedule a doctr apointment tomorow at 3pm")

	require.True(t, intent.IsSchedulingRequest)
	for _, typo := range []string{"shedule", "doctr", "apointment", "tomorow"} {
		assert.NotContains(t, intent.Title, typo)
	}
}

func TestExtractNonSchedulingInput(t *testing.T) {
	p := &fakeProvider{
		name:       "xai",
		configured: true,
		completion: `{"isSchedulingRequest": false}`,
	}
	e := NewExtractor([]CompletionProvider{p}, 100, 100, testLogger())

	intent := e.Extract(context.Background(), "what's the weather today")
	assert.False(t, intent.IsSchedulingRequest)
}

func TestExtractSoftFails(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{
			name:     "upstream error",
			provider: &fakeProvider{name: "xai", configured: true, err: errors.New("status 500")},
		},
		{
			name:     "non-JSON completion",
			provider: &fakeProvider{name: "xai", configured: true, completion: "I cannot help with that."},
		},
		{
			name:     "truncated JSON beyond repair",
			provider: &fakeProvider{name: "xai", configured: true, completion: `{"isSchedulingRequest`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor([]CompletionProvider{tt.provider}, 100, 100, testLogger())
			intent := e.Extract(context.Background(), "schedule something")
			assert.False(t, intent.IsSchedulingRequest)
		})
	}
}

func TestExtractEmptyInput(t *testing.T) {
	p := &fakeProvider{name: "xai", configured: true}
	e := NewExtractor([]CompletionProvider{p}, 100, 100, testLogger())

	intent := e.Extract(context.Background(), "   ")
	assert.False(t, intent.IsSchedulingRequest)
	assert.Zero(t, p.calls)
}

func TestParseIntentToleratesWrapping(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		wantOK     bool
		wantTitle  string
	}{
		{
			name:       "bare object",
			completion: `{"isSchedulingRequest": true, "title": "Dentist"}`,
			wantOK:     true,
			wantTitle:  "Dentist",
		},
		{
			name:       "code fenced",
			completion: "```json\n{\"isSchedulingRequest\": true, \"title\": \"Dentist\"}\n```",
			wantOK:     true,
			wantTitle:  "Dentist",
		},
		{
			name:       "surrounding prose",
			completion: `Here is the result: {"isSchedulingRequest": true, "title": "Dentist"} Hope that helps!`,
			wantOK:     true,
			wantTitle:  "Dentist",
		},
		{
			name:       "repairable trailing comma",
			completion: `{"isSchedulingRequest": true, "title": "Dentist",}`,
			wantOK:     true,
			wantTitle:  "Dentist",
		},
		{
			name:       "no object at all",
			completion: "sorry, no",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, ok := parseIntent(tt.completion)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantTitle, intent.Title)
			}
		})
	}
}

func TestExtractRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	p := &fakeProvider{
		name:       "xai",
		configured: true,
		completion: `{"isSchedulingRequest": true, "title": "Lunch"}`,
	}
	e := NewExtractor([]CompletionProvider{p}, 100, 100, testLogger())
	e.UseRedisCache(rdb, time.Minute)

	first := e.Extract(context.Background(), "schedule lunch")
	second := e.Extract(context.Background(), "schedule lunch")

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, 1, p.calls, "second extraction should be served from cache")
}

func TestChatClientAgainstHTTPServer(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"isSchedulingRequest\": false}"}}]}`))
	}))
	defer srv.Close()

	client := NewChatClient(config.ProviderConfig{
		Name:    "xai",
		BaseURL: srv.URL,
		Model:   "grok-3-mini",
		APIKey:  "test-key",
	})

	require.True(t, client.Configured())
	completion, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"isSchedulingRequest": false}`, completion)
	assert.Equal(t, 1, requests)
}

func TestChatClientUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewChatClient(config.ProviderConfig{Name: "xai", BaseURL: srv.URL, APIKey: "k"})
	_, err := client.Complete(context.Background(), "system", "user")
	assert.Error(t, err)
}

func TestChatClientEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewChatClient(config.ProviderConfig{Name: "xai", BaseURL: srv.URL, APIKey: "k"})
	_, err := client.Complete(context.Background(), "system", "user")
	assert.Error(t, err)
}
