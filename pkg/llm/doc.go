// Package llm provides the language model client stack: the provider
// interface, structured-output coercion, retry/circuit-breaker wrappers, and
// primary/fallback routing.
//
// This package defines the Client interface and provides implementations for
// OpenAI, Anthropic, and OpenAI-compatible APIs (Ollama, Cerebras, vLLM, etc.).
//
// # Supported Providers
//
// The following LLM providers are supported:
//   - OpenAI: GPT-4, GPT-3.5, and other OpenAI models
//   - Anthropic: Claude models
//   - OpenAI-compatible: Any API following OpenAI's format (Ollama, Cerebras, vLLM, etc.)
//
// # Client Wrappers
//
// The package provides several wrapper clients for enhanced functionality:
//   - RetryClient: Automatic retry with exponential backoff (no jitter)
//   - TokenTrackingClient: Track token usage across requests
//   - CircuitBreakerClient: Circuit breaker pattern for fault tolerance
//   - RouterClient: Route requests to different providers based on criteria
//   - FallbackClient: Primary/secondary routing that switches to the secondary
//     on rate limits (no cool-down timer)
//
// # Usage
//
//	// Create a base client
//	client, err := llm.NewOpenAIClient(apiKey, config)
//
//	// Wrap with retry logic
//	retryClient := llm.NewRetryClient(client, llm.DefaultRetryConfig())
//
//	// Use the client
//	response, err := retryClient.Chat(ctx, messages)
//
// # Error Handling
//
// The package defines specific error types for common failure modes:
//   - RateLimitError: API rate limit exceeded
//   - RefusalError: Model refused to generate content
//   - EmptyResponseError: Model returned empty response
//
// These errors support errors.Is() for type checking.
package llm
