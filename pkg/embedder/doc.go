// Package embedder provides the text-embedding clients chrongraph uses to
// turn entity and fact candidates into vectors before resolution.
//
// This package defines the Client interface and two implementations:
// OpenAIEmbedder, which calls the OpenAI-compatible embeddings endpoint
// (also used for Ollama/Cerebras-compatible servers), and
// EmbedEverythingClient, which embeds locally via go-embedeverything. The
// caller picks the implementation; this package reads no environment
// variables, including USE_DEDICATED_EMBEDDING_ENDPOINT.
//
// # Usage
//
//	// Create an OpenAI-compatible embedder
//	embedder := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{
//	    Model:     "text-embedding-3-small",
//	    BatchSize: 100,
//	})
//
//	// Embed text
//	embeddings, err := embedder.Embed(ctx, []string{"hello world"})
//
// # Batch Processing
//
// The Client interface supports batch embedding for efficiency:
//   - Embed(): Embed multiple texts in a single request
//   - EmbedSingle(): Convenience method for single text
//
// Implementations handle batching internally based on provider limits.
package embedder
