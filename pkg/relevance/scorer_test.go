package relevance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicore/chrongraph/pkg/driver"
)

func TestFeedbackAddScoreSeedsThenBlends(t *testing.T) {
	f := NewFeedback("m1")
	f.AddScore(Score{Value: 0.8, Timestamp: time.Now()})
	assert.Equal(t, 0.8, f.AvgRelevance)

	f.AddScore(Score{Value: 0.2, Timestamp: time.Now()})
	assert.InDelta(t, 0.3*0.2+0.7*0.8, f.AvgRelevance, 1e-9)
}

func TestFeedbackApplyDecayHalvesAtHalfLife(t *testing.T) {
	f := NewFeedback("m1")
	f.AvgRelevance = 1.0
	f.LastAccessed = time.Now().Add(-30 * 24 * time.Hour)

	f.ApplyDecay(30)
	assert.InDelta(t, 0.5, f.DecayFactor, 0.01)
	assert.InDelta(t, 0.5, f.EffectiveScore(), 0.01)
}

func TestFeedbackApplyDecayNoOpWithoutLastAccessed(t *testing.T) {
	f := NewFeedback("m1")
	f.ApplyDecay(30)
	assert.Equal(t, 1.0, f.DecayFactor)
}

func TestScoreHeuristicJaccardScaling(t *testing.T) {
	sc := ScoringContext{OriginalQuery: "cats and dogs", MemoryContent: "cats and dogs"}
	score := ScoreHeuristic(sc)
	assert.InDelta(t, 0.7, score, 1e-9)
}

func TestScoreHeuristicNoOverlap(t *testing.T) {
	sc := ScoringContext{OriginalQuery: "apples", MemoryContent: "oranges"}
	score := ScoreHeuristic(sc)
	assert.InDelta(t, 0.3, score, 1e-9)
}

func TestScoreHeuristicResponseBonusCapped(t *testing.T) {
	sc := ScoringContext{
		OriginalQuery: "cats and dogs", MemoryContent: "cats and dogs",
		AgentResponse: "cats and dogs",
	}
	score := ScoreHeuristic(sc)
	assert.LessOrEqual(t, score, 1.0)
	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestScoreMemoryHeuristicMethod(t *testing.T) {
	scorer := NewScorer(driver.NewMemoryDriver(), nil, Config{})
	score := scorer.ScoreMemory(context.Background(), ScoringContext{
		OriginalQuery: "hello world", MemoryContent: "hello world", MemoryUUID: "m1",
	}, ScoringMethodHeuristic)
	assert.Equal(t, ScoringMethodHeuristic, score.Method)
	assert.Greater(t, score.Value, 0.0)
}

func TestScoreMemoryLLMWithoutClientFallsBackNeutral(t *testing.T) {
	scorer := NewScorer(driver.NewMemoryDriver(), nil, Config{})
	score := scorer.ScoreMemory(context.Background(), ScoringContext{MemoryUUID: "m1"}, ScoringMethodLLM)
	assert.Equal(t, 0.5, score.Value)
}

func TestReciprocalRankFusionOrdersByFusedScore(t *testing.T) {
	rankings := map[string][]string{
		"vector":  {"a", "b", "c"},
		"keyword": {"b", "a", "c"},
	}
	results := ReciprocalRankFusion(rankings, 60)
	require.Len(t, results, 3)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, "c", results[2].MemoryUUID)
}

func TestCombineScoresNormalizesOverPresentSources(t *testing.T) {
	scorer := NewScorer(driver.NewMemoryDriver(), nil, Config{})
	semantic := 1.0
	combined := scorer.CombineScores(&semantic, nil, nil, nil)
	assert.Equal(t, 1.0, combined)
}

func TestCombineScoresNeutralWhenNoSources(t *testing.T) {
	scorer := NewScorer(driver.NewMemoryDriver(), nil, Config{})
	combined := scorer.CombineScores(nil, nil, nil, nil)
	assert.Equal(t, 0.5, combined)
}
