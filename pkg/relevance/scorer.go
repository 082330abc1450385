package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/relicore/chrongraph/pkg/driver"
	"github.com/relicore/chrongraph/pkg/llm"
	"github.com/relicore/chrongraph/pkg/types"
)

// ScoringContext holds everything a scorer needs to judge one memory against
// one query.
type ScoringContext struct {
	OriginalQuery    string
	DecomposedQuery  string
	MemoryContent    string
	MemoryUUID       string
	AgentResponse    string
	QueryID          string
	AdditionalContext map[string]interface{}
}

// Scorer produces and persists relevance feedback for memories retrieved
// against a query.
type Scorer struct {
	driver    driver.GraphDriver
	llmClient llm.Client
	config    Config
}

// NewScorer creates a Scorer. llmClient may be nil if only heuristic scoring
// is needed.
func NewScorer(d driver.GraphDriver, llmClient llm.Client, config Config) *Scorer {
	return &Scorer{driver: d, llmClient: llmClient, config: config.withDefaults()}
}

type llmScoreResponse struct {
	RelevanceScore float64 `json:"relevance_score"`
	Reasoning      string  `json:"reasoning"`
}

var llmScoreSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"relevance_score": map[string]interface{}{
			"type": "number", "minimum": 0, "maximum": 1,
			"description": "Relevance score between 0 and 1",
		},
		"reasoning": map[string]interface{}{
			"type": "string", "description": "Brief explanation of the score",
		},
	},
	"required": []string{"relevance_score"},
}

// ScoreLLM asks the LLM client to rate how relevant a memory is to the
// original query. On any failure it returns the neutral score 0.5 rather
// than propagating the error, since a broken scoring call must not block
// retrieval.
func (s *Scorer) ScoreLLM(ctx context.Context, sc ScoringContext) float64 {
	if s.llmClient == nil {
		return 0.5
	}

	messages := []types.Message{
		{Role: llm.RoleSystem, Content: "You are a relevance scoring system. Score how relevant a memory is to a query on a scale of 0 to 1."},
		{Role: llm.RoleUser, Content: buildScoringPrompt(sc)},
	}

	resp, err := s.llmClient.ChatWithStructuredOutput(ctx, messages, llmScoreSchema)
	if err != nil {
		return 0.5
	}

	var parsed llmScoreResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return 0.5
	}
	if parsed.RelevanceScore < 0 {
		return 0
	}
	if parsed.RelevanceScore > 1 {
		return 1
	}
	return parsed.RelevanceScore
}

func buildScoringPrompt(sc ScoringContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original Query: %s\n\nMemory Content: %s", sc.OriginalQuery, sc.MemoryContent)
	if sc.DecomposedQuery != "" {
		fmt.Fprintf(&b, "\n\nDecomposed Query: %s", sc.DecomposedQuery)
	}
	if sc.AgentResponse != "" {
		fmt.Fprintf(&b, "\n\nAgent Response: %s", sc.AgentResponse)
	}
	b.WriteString("\n\nBased on the above information, rate how relevant this memory is to answering the original query.")
	b.WriteString("\nConsider:")
	b.WriteString("\n- Direct relevance to the query topic")
	b.WriteString("\n- Usefulness of the information provided")
	b.WriteString("\n- Whether the memory was likely used in the response")
	b.WriteString("\n\nReturn a relevance score between 0 (completely irrelevant) and 1 (highly relevant).")
	return b.String()
}

// ScoreHeuristic scores a memory using Jaccard similarity between the
// query's and memory's word sets, scaled to [0.3, 0.7], with a +0.2 bonus
// (capped at 1.0) when the memory's opening text appears verbatim in the
// agent's response.
func ScoreHeuristic(sc ScoringContext) float64 {
	score := 0.5

	queryWords := wordSet(sc.OriginalQuery)
	memoryWords := wordSet(sc.MemoryContent)

	union := len(queryWords)
	for w := range memoryWords {
		if _, ok := queryWords[w]; !ok {
			union++
		}
	}
	if union > 0 {
		intersection := 0
		for w := range queryWords {
			if _, ok := memoryWords[w]; ok {
				intersection++
			}
		}
		jaccard := float64(intersection) / float64(union)
		score = 0.3 + 0.4*jaccard
	}

	if sc.AgentResponse != "" {
		prefix := sc.MemoryContent
		if len(prefix) > 50 {
			prefix = prefix[:50]
		}
		if prefix != "" && strings.Contains(sc.AgentResponse, prefix) {
			score = math.Min(1.0, score+0.2)
		}
	}

	return score
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

// ScoreMemory scores sc using method ("llm", "heuristic", or "hybrid") and
// returns the resulting Score, already stamped with a timestamp.
func (s *Scorer) ScoreMemory(ctx context.Context, sc ScoringContext, method ScoringMethod) Score {
	value := 0.5

	switch method {
	case ScoringMethodLLM:
		if s.config.EnableLLMScoring {
			value = s.ScoreLLM(ctx, sc)
		}
	case ScoringMethodHeuristic:
		if s.config.EnableHeuristicScoring {
			value = ScoreHeuristic(sc)
		}
	default: // hybrid
		var values []float64
		if s.config.EnableLLMScoring && s.llmClient != nil {
			values = append(values, s.ScoreLLM(ctx, sc))
		}
		if s.config.EnableHeuristicScoring {
			values = append(values, ScoreHeuristic(sc))
		}
		if len(values) > 0 {
			var sum float64
			for _, v := range values {
				sum += v
			}
			value = sum / float64(len(values))
		}
		method = ScoringMethodHybrid
	}

	return Score{
		MemoryUUID: sc.MemoryUUID,
		Value:      value,
		QueryID:    sc.QueryID,
		Timestamp:  time.Now(),
		Method:     method,
		Metadata: map[string]interface{}{
			"original_query": sc.OriginalQuery,
			"has_response":   sc.AgentResponse != "",
		},
	}
}

// RankedResult pairs a memory id with its fused relevance score.
type RankedResult struct {
	MemoryUUID string
	Score      float64
}

// ReciprocalRankFusion combines several ranked id lists into one fused
// ranking: each list's rank-k entry contributes 1/(k_param+rank), and a
// memory's total across all lists is its fused score, sorted descending.
func ReciprocalRankFusion(rankings map[string][]string, kParam int) []RankedResult {
	scores := map[string]float64{}
	for _, rankedIDs := range rankings {
		for i, id := range rankedIDs {
			rank := i + 1
			scores[id] += 1.0 / float64(kParam+rank)
		}
	}

	results := make([]RankedResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, RankedResult{MemoryUUID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// CombineScores folds the present (non-nil) score sources into a single
// weighted average, renormalizing weights over only the sources supplied.
func (s *Scorer) CombineScores(semantic, keyword, graph, historical *float64) float64 {
	var scores, weights []float64

	add := func(score *float64, weight float64) {
		if score != nil {
			scores = append(scores, *score)
			weights = append(weights, weight)
		}
	}
	add(semantic, s.config.SemanticWeight)
	add(keyword, s.config.KeywordWeight)
	add(graph, s.config.GraphWeight)
	add(historical, s.config.HistoricalWeight)

	if len(scores) == 0 {
		return 0.5
	}

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight > 0 {
		for i := range weights {
			weights[i] /= totalWeight
		}
	} else {
		for i := range weights {
			weights[i] = 1.0 / float64(len(scores))
		}
	}

	var combined float64
	for i, sc := range scores {
		combined += sc * weights[i]
	}
	if combined > 1 {
		return 1
	}
	if combined < 0 {
		return 0
	}
	return combined
}

// UpdateFeedback loads the memory's existing feedback (if any), folds in a
// new score, marks it accessed now, applies decay if enabled, and persists
// the result back onto the node.
func (s *Scorer) UpdateFeedback(ctx context.Context, memoryUUID string, score Score) (*Feedback, error) {
	feedback, err := s.loadFeedback(ctx, memoryUUID)
	if err != nil {
		return nil, err
	}
	if feedback == nil {
		feedback = NewFeedback(memoryUUID)
	}

	feedback.AddScore(score)
	feedback.LastAccessed = time.Now()
	feedback.UsageCount++

	if s.config.EnableDecay {
		feedback.ApplyDecay(s.config.HalfLifeDays)
	}

	if err := s.saveFeedback(ctx, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

const maxStoredScores = 100
const maxStoredEmbeddings = 50

func (s *Scorer) loadFeedback(ctx context.Context, memoryUUID string) (*Feedback, error) {
	query := `
		MATCH (n {uuid: $memory_id})
		RETURN n.relevance_scores AS relevance_scores,
		       n.avg_relevance AS avg_relevance,
		       n.usage_count AS usage_count,
		       n.successful_uses AS successful_uses,
		       n.last_accessed AS last_accessed,
		       n.last_scored AS last_scored,
		       n.decay_factor AS decay_factor
	`
	records, _, _, err := s.driver.ExecuteQuery(ctx, query, map[string]interface{}{"memory_id": memoryUUID})
	if err != nil {
		return nil, fmt.Errorf("loading feedback for %s: %w", memoryUUID, err)
	}
	rows, ok := records.([]map[string]interface{})
	if !ok || len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]

	avgRelevance, _ := row["avg_relevance"].(float64)
	if avgRelevance == 0 {
		return nil, nil
	}

	feedback := &Feedback{
		MemoryUUID:   memoryUUID,
		AvgRelevance: avgRelevance,
	}
	if usageCount, ok := row["usage_count"].(int); ok {
		feedback.UsageCount = usageCount
	}
	if successfulUses, ok := row["successful_uses"].(int); ok {
		feedback.SuccessfulUses = successfulUses
	}
	if decayFactor, ok := row["decay_factor"].(float64); ok {
		feedback.DecayFactor = decayFactor
	} else {
		feedback.DecayFactor = 1.0
	}
	if lastAccessed, ok := row["last_accessed"].(time.Time); ok {
		feedback.LastAccessed = lastAccessed
	}
	if lastScored, ok := row["last_scored"].(time.Time); ok {
		feedback.LastScored = lastScored
	}
	if rawScores, ok := row["relevance_scores"].(string); ok && rawScores != "" {
		var scores []Score
		if err := json.Unmarshal([]byte(rawScores), &scores); err == nil {
			feedback.Scores = scores
		}
	}

	return feedback, nil
}

func (s *Scorer) saveFeedback(ctx context.Context, feedback *Feedback) error {
	keep := feedback.Scores
	if len(keep) > maxStoredScores {
		keep = keep[len(keep)-maxStoredScores:]
	}
	scoresJSON, err := json.Marshal(keep)
	if err != nil {
		return fmt.Errorf("serializing scores: %w", err)
	}

	embeddings := feedback.QueryEmbeddings
	if len(embeddings) > maxStoredEmbeddings {
		embeddings = embeddings[len(embeddings)-maxStoredEmbeddings:]
	}

	query := `
		MATCH (n {uuid: $memory_id})
		SET n.relevance_scores = $relevance_scores,
		    n.avg_relevance = $avg_relevance,
		    n.usage_count = $usage_count,
		    n.successful_uses = $successful_uses,
		    n.last_accessed = $last_accessed,
		    n.last_scored = $last_scored,
		    n.decay_factor = $decay_factor
	`
	_, _, _, err = s.driver.ExecuteQuery(ctx, query, map[string]interface{}{
		"memory_id":        feedback.MemoryUUID,
		"relevance_scores": string(scoresJSON),
		"avg_relevance":    feedback.AvgRelevance,
		"usage_count":      feedback.UsageCount,
		"successful_uses":  feedback.SuccessfulUses,
		"last_accessed":    feedback.LastAccessed,
		"last_scored":      feedback.LastScored,
		"decay_factor":     feedback.DecayFactor,
	})
	if err != nil {
		return fmt.Errorf("saving feedback for %s: %w", feedback.MemoryUUID, err)
	}
	return nil
}
