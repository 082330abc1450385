package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	"github.com/relicore/chrongraph/pkg/types"
)

// calculateProgressiveTimeout returns a timeout duration that increases with each attempt.
// Starts at 90s, increases by 45s per attempt, with ±20% jitter.
func calculateProgressiveTimeout(attempt int) time.Duration {
	baseTimeout := time.Duration(90+attempt*45) * time.Second

	jitterPercent := 0.2
	jitterRange := float64(baseTimeout) * jitterPercent
	jitter := time.Duration(rand.Float64()*jitterRange*2 - jitterRange)

	timeout := baseTimeout + jitter
	if timeout < 30*time.Second {
		timeout = 30 * time.Second
	}
	return timeout
}

// RemoveThinkTags removes <think> tags and everything in between them from a string.
func RemoveThinkTags(input string) string {
	re := regexp.MustCompile(`(?s)<think>.*?</think>`)
	return re.ReplaceAllString(input, "")
}

// StripHtmlTags removes any HTML tags from a string.
func StripHtmlTags(s string) string {
	const tagRegex = "<[^>]*>"
	r := regexp.MustCompile(tagRegex)
	return r.ReplaceAllString(s, "")
}

// GenerateJSONResponseWithContinuation makes repeated LLM calls with continuation prompts
// until valid JSON is received or max retries is reached.
func GenerateJSONResponseWithContinuation(
	ctx context.Context,
	llmClient Client,
	systemPrompt string,
	userPrompt string,
	targetStruct interface{},
	maxRetries int,
) (string, error) {
	messages := []types.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	return GenerateJSONResponseWithContinuationMessages(ctx, llmClient, messages, targetStruct, maxRetries)
}

func isValidJson(s string) (bool, error) {
	var js json.RawMessage
	err := json.Unmarshal([]byte(s), &js)
	ok := (err == nil)
	return ok, err
}

// AppendOverlap appends s2 to s1, removing any overlapping part.
// It finds the longest suffix of s1 that is also a prefix of s2 and
// combines them to avoid duplicating the overlapping section.
func AppendOverlap(s1, s2 string) string {
	len1 := len(s1)
	len2 := len(s2)

	maxOverlap := len1
	if len2 < len1 {
		maxOverlap = len2
	}

	for i := maxOverlap; i > 0; i-- {
		if s1[len1-i:] == s2[:i] {
			return s1 + s2[i:]
		}
	}

	return s1 + s2
}

func truncateToLastCloseBrace(s string) string {
	lastIndex := strings.LastIndex(s, "}")
	if lastIndex == -1 {
		return ""
	}
	return s[:lastIndex+1]
}

// GenerateJSONResponseWithContinuationMessages makes repeated LLM calls with continuation prompts
// until valid JSON is received or max retries is reached. This version accepts pre-built messages.
func GenerateJSONResponseWithContinuationMessages(
	ctx context.Context,
	llmClient Client,
	messages []types.Message,
	targetStruct interface{},
	maxRetries int,
) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 8
	}

	workingMessages := make([]types.Message, len(messages))
	copy(workingMessages, messages)
	var accumulatedResponse string
	var lastError error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			workingMessages[1].Content = messages[1].Content + "\nFinish your work:\n" + strings.TrimSpace(accumulatedResponse)
		}

		timeout := calculateProgressiveTimeout(attempt)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)

		response, err := llmClient.Chat(attemptCtx, workingMessages)
		cancel()

		if err != nil {
			lastError = fmt.Errorf("LLM call failed on attempt %d: %w", attempt+1, err)
			continue
		}

		if response == nil || response.Content == "" {
			lastError = fmt.Errorf("empty response from LLM on attempt %d", attempt+1)
			continue
		}
		startLen := len(accumulatedResponse)
		accumulatedResponse = AppendOverlap(strings.TrimSpace(accumulatedResponse), strings.TrimSpace(response.Content))
		afterLen := len(accumulatedResponse)
		gap := afterLen - startLen
		ok, err := isValidJson(RemoveThinkTags(accumulatedResponse))

		if ok {
			cleanJSON := RemoveThinkTags(accumulatedResponse)
			if targetStruct != nil {
				// Best-effort: if the struct doesn't match, the caller still gets the raw JSON.
				_ = json.Unmarshal([]byte(cleanJSON), targetStruct)
			}
			return cleanJSON, nil
		}

		if attempt > 1 && gap == 0 {
			accumulatedResponse = truncateToLastCloseBrace(accumulatedResponse)
			return accumulatedResponse, err
		}
	}

	if lastError != nil {
		accumulatedResponse = truncateToLastCloseBrace(accumulatedResponse)
		resp, _ := jsonrepair.JSONRepair(RemoveThinkTags(accumulatedResponse))
		return resp, fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastError)
	}

	return RemoveThinkTags(accumulatedResponse), fmt.Errorf("failed to generate valid JSON after %d attempts", maxRetries+1)
}

// GenerateJSONWithContinuation is a simpler version that doesn't validate against a struct
// and just ensures valid JSON is returned.
func GenerateJSONWithContinuation(
	ctx context.Context,
	llmClient Client,
	systemPrompt string,
	userPrompt string,
	maxRetries int,
) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 8
	}

	messages := []types.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	var accumulatedResponse string
	var lastError error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		timeout := calculateProgressiveTimeout(attempt)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)

		response, err := llmClient.Chat(attemptCtx, messages)
		cancel()
		if err != nil {
			lastError = fmt.Errorf("LLM call failed on attempt %d: %w", attempt+1, err)
			continue
		}

		if response == nil || response.Content == "" {
			lastError = fmt.Errorf("empty response from LLM on attempt %d", attempt+1)
			continue
		}

		if attempt == 0 {
			accumulatedResponse = strings.TrimSpace(response.Content)
		} else {
			accumulatedResponse += strings.TrimSpace(response.Content)
		}

		repairedJSON, _ := jsonrepair.JSONRepair(accumulatedResponse)

		var testJSON interface{}
		err = json.Unmarshal([]byte(repairedJSON), &testJSON)
		if err != nil {
			lastError = fmt.Errorf("invalid JSON on attempt %d: %w", attempt+1, err)

			if attempt < maxRetries {
				messages = append(messages, types.Message{
					Role:    "assistant",
					Content: accumulatedResponse,
				})
				messages = append(messages, types.Message{
					Role:    "user",
					Content: "The JSON response was incomplete or invalid. Please continue from where you left off and complete the JSON:",
				})
			}
			continue
		}

		return repairedJSON, nil
	}

	if lastError != nil {
		return accumulatedResponse, fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastError)
	}

	return accumulatedResponse, fmt.Errorf("failed to generate valid JSON after %d attempts", maxRetries+1)
}

// ExtractJSONFromResponse attempts to extract JSON from LLM responses that may contain
// markdown code blocks or other surrounding text.
func ExtractJSONFromResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```json") {
		start := strings.Index(response, "```json")
		end := strings.Index(response[start+7:], "```")
		if end != -1 {
			return strings.TrimSpace(response[start+7 : start+7+end])
		}
	}

	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart != -1 && jsonEnd != -1 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}

	jsonStart = strings.Index(response, "[")
	jsonEnd = strings.LastIndex(response, "]")
	if jsonStart != -1 && jsonEnd != -1 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}

	return response
}

// CSVParserFunc is a function type for parsing CSV/TSV strings into a slice of type T.
type CSVParserFunc[T any] func(csvContent string) ([]*T, error)

// GenerateCSVResponse generates a CSV response from an LLM and parses it into a slice of type T.
// It handles retries with continuation prompts when parsing fails.
func GenerateCSVResponse[T any](
	ctx context.Context,
	llmClient Client,
	logger *slog.Logger,
	messages []types.Message,
	csvParser CSVParserFunc[T],
	maxRetries int,
) ([]T, *types.BadLlmCsvResponse, error) {
	if maxRetries <= 0 {
		maxRetries = 8
	}

	workingMessages := make([]types.Message, len(messages))
	copy(workingMessages, messages)

	var lastResponse *types.Response
	var lastError error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		timeout := calculateProgressiveTimeout(attempt)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)

		response, err := llmClient.Chat(attemptCtx, workingMessages)
		cancel()
		if err != nil {
			lastError = fmt.Errorf("LLM call failed on attempt %d: %w", attempt+1, err)
			lastResponse = response

			if attempt < maxRetries {
				workingMessages = append(workingMessages, types.Message{
					Role:    RoleAssistant,
					Content: "",
				})
				workingMessages = append(workingMessages, types.Message{
					Role:    RoleUser,
					Content: "The previous response failed. Please try again with valid CSV/TSV format:",
				})
			}
			continue
		}

		if response == nil || response.Content == "" {
			lastError = fmt.Errorf("empty response from LLM on attempt %d", attempt+1)
			lastResponse = response

			if attempt < maxRetries {
				workingMessages = append(workingMessages, types.Message{
					Role:    RoleAssistant,
					Content: "",
				})
				workingMessages = append(workingMessages, types.Message{
					Role:    RoleUser,
					Content: "No response received. Please provide the CSV/TSV data:",
				})
			}
			continue
		}

		lastResponse = response

		if logger != nil {
			logger.Debug("LLM CSV response received", "attempt", attempt+1, "length", len(response.Content))
		}

		cleanedResponse := StripHtmlTags(response.Content)
		if strings.HasSuffix(cleanedResponse, "\n") {
			lines := strings.Split(cleanedResponse, "\n")
			if len(lines) > 1 {
				cleanedResponse = strings.Join(lines[:len(lines)-1], "\n")
			}
		}

		resultPtrs, err := csvParser(cleanedResponse)
		if err != nil {
			lastError = fmt.Errorf("failed to parse CSV on attempt %d: %w", attempt+1, err)

			if logger != nil {
				logger.Debug("CSV parsing failed", "attempt", attempt+1, "error", err, "response", cleanedResponse)
			}

			if attempt < maxRetries {
				workingMessages = append(workingMessages, types.Message{
					Role:    RoleAssistant,
					Content: response.Content,
				})
				workingMessages = append(workingMessages, types.Message{
					Role:    RoleUser,
					Content: fmt.Sprintf("The CSV/TSV format was invalid: %v. Please provide valid TSV data with tab-separated values:", err),
				})
			}
			continue
		}

		results := make([]T, 0, len(resultPtrs))
		for _, ptr := range resultPtrs {
			if ptr != nil {
				results = append(results, *ptr)
			}
		}

		if logger != nil {
			logger.Debug("CSV parsing successful", "attempt", attempt+1, "records", len(results))
		}

		return results, nil, nil
	}

	badResponse := &types.BadLlmCsvResponse{
		Messages: make([]*types.Message, 0, len(workingMessages)),
		Response: "",
		Error:    lastError,
	}

	for i := range workingMessages {
		msg := workingMessages[i]
		badResponse.Messages = append(badResponse.Messages, &msg)
	}

	if lastResponse != nil {
		badResponse.Response = lastResponse.Content
	}

	if logger != nil {
		logger.Error("CSV generation failed after all retries",
			"attempts", maxRetries+1,
			"error", lastError,
		)
	}

	if lastError != nil {
		return nil, badResponse, fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastError)
	}

	return nil, badResponse, fmt.Errorf("failed to generate valid CSV after %d attempts", maxRetries+1)
}
