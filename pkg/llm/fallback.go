package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/relicore/chrongraph/pkg/types"
)

// FallbackClient wraps a primary and secondary Client. It calls the primary
// until a rate limit (or rate-limit-shaped error) is seen, then sends
// subsequent calls to the secondary for as long as the secondary succeeds.
// When the secondary fails, it switches back to the primary and retries the
// call there. There is no cool-down timer: the primary is not probed again
// while the secondary keeps succeeding. Unlike RouterClient, which picks a provider per
// call based on context, FallbackClient tracks sticky state across calls for
// a single logical provider pair.
type FallbackClient struct {
	primary   Client
	secondary Client
	log       *slog.Logger

	usingFallback atomic.Bool
	mu            sync.Mutex
}

// NewFallbackClient builds a FallbackClient favoring primary until it trips.
func NewFallbackClient(primary, secondary Client, logger *slog.Logger) *FallbackClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackClient{primary: primary, secondary: secondary, log: logger}
}

func looksRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate") || strings.Contains(msg, "quota")
}

// Chat implements Client, routing around a rate-limited primary.
func (f *FallbackClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return f.call(ctx, func(c Client) (*types.Response, error) {
		return c.Chat(ctx, messages)
	})
}

// ChatWithStructuredOutput implements Client, routing around a rate-limited primary.
func (f *FallbackClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return f.call(ctx, func(c Client) (*types.Response, error) {
		return c.ChatWithStructuredOutput(ctx, messages, schema)
	})
}

func (f *FallbackClient) call(ctx context.Context, do func(Client) (*types.Response, error)) (*types.Response, error) {
	if !f.usingFallback.Load() {
		resp, err := do(f.primary)
		if err == nil {
			return resp, nil
		}
		if !looksRateLimited(err) {
			return nil, err
		}
		f.log.WarnContext(ctx, "primary llm client rate limited, switching to fallback", "error", err)
		f.usingFallback.Store(true)
	}

	resp, err := do(f.secondary)
	if err == nil {
		return resp, nil
	}

	f.log.ErrorContext(ctx, "fallback llm client also failed, retrying primary", "error", err)
	f.usingFallback.Store(false)
	return do(f.primary)
}

// GetCapabilities returns the primary's capability set.
func (f *FallbackClient) GetCapabilities() []TaskCapability {
	return f.primary.GetCapabilities()
}

// Close closes both underlying clients.
func (f *FallbackClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	errP := f.primary.Close()
	errS := f.secondary.Close()
	if errP != nil {
		return errP
	}
	return errS
}
