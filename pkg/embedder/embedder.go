package embedder

import "context"

// Client generates vector embeddings for text. Implementations wrap a
// specific embedding provider (OpenAI, a local model server, etc.).
type Client interface {
	// Embed generates an embedding vector for each input text, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle is a convenience wrapper around Embed for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the length of the vectors this client produces.
	Dimensions() int

	// Close releases any resources held by the client.
	Close() error
}

// Config configures an embedding client.
type Config struct {
	// Model names the embedding model to call, e.g. "text-embedding-3-small".
	Model string

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string

	// Dimensions overrides the model's default vector length. Zero uses the
	// model's own default.
	Dimensions int

	// BatchSize caps how many texts are sent to the provider per request.
	BatchSize int
}

// knownModelDimensions holds the default vector length for well-known
// OpenAI embedding models.
var knownModelDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

func defaultDimensions(model string, override int) int {
	if override > 0 {
		return override
	}
	if dims, ok := knownModelDimensions[model]; ok {
		return dims
	}
	return 1536
}
