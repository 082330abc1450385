package chronoerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfExtractsKind(t *testing.T) {
	err := Transient("dial", errors.New("refused"))
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindTransient, kind)
}

func TestKindOfFalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindOfUnwrapsThroughFmtErrorf(t *testing.T) {
	base := RateLimited("429", nil)
	wrapped := fmt.Errorf("calling provider: %w", base)
	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindRateLimited, kind)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transient("x", nil)))
	assert.True(t, IsRetryable(RateLimited("x", nil)))
	assert.False(t, IsRetryable(Validation("x", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestPropagatesToCaller(t *testing.T) {
	assert.True(t, PropagatesToCaller(Validation("bad input", nil)))
	assert.True(t, PropagatesToCaller(Fatal("no config", nil)))
	assert.False(t, PropagatesToCaller(Transient("x", nil)))
	assert.False(t, PropagatesToCaller(NotFound("x", nil)))
}

func TestErrorIsMatchesSameKindRegardlessOfMessage(t *testing.T) {
	a := NotFound("node n1 missing", nil)
	b := NotFound("edge e9 missing", nil)
	assert.True(t, errors.Is(a, b))
}

func TestErrorIsDoesNotMatchDifferentKind(t *testing.T) {
	a := NotFound("node n1 missing", nil)
	b := Validation("node n1 missing", nil)
	assert.False(t, errors.Is(a, b))
}

func TestErrorUnwrapsUnderlyingCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Transient("connecting to neo4j", cause)
	assert.ErrorIs(t, err, cause)
}
