package llm_test

import (
	"testing"

	"github.com/relicore/chrongraph/pkg/llm"
	"github.com/stretchr/testify/assert"
)

func TestGetProvider(t *testing.T) {
	tests := []struct {
		id      llm.ProviderID
		want    llm.Provider
		wantErr bool
	}{
		{
			id: llm.ProviderEmbedEverything,
			want: llm.Provider{
				ID:          llm.ProviderEmbedEverything,
				Name:        "EmbedEverything",
				Description: "Local generic embedding models via Rust bindings",
				IsLocal:     true,
			},
			wantErr: false,
		},
		{
			id:      "nonexistent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			got, found := llm.GetProvider(tt.id)
			if tt.wantErr {
				assert.False(t, found)
			} else {
				assert.True(t, found)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGetModel(t *testing.T) {
	// Pick a few representative models
	t.Run("EmbedEverything Model", func(t *testing.T) {
		id := "sentence-transformers/all-MiniLM-L6-v2"
		got, found := llm.GetModel(id)
		assert.True(t, found)
		assert.Equal(t, id, got.ID)
		assert.Contains(t, got.Capabilities, llm.TaskEmbedding)
	})

	t.Run("GLiNER Model", func(t *testing.T) {
		id := "urchade/gliner_multi-v2.1"
		got, found := llm.GetModel(id)
		assert.True(t, found)
		assert.Equal(t, id, got.ID)
		assert.Contains(t, got.Capabilities, llm.TaskNamedEntityRecognition)
		assert.Contains(t, got.Capabilities, llm.TaskRelationExtraction)
	})

	t.Run("RustBert Model", func(t *testing.T) {
		id := "bert-base-ner"
		got, found := llm.GetModel(id)
		assert.True(t, found)
		assert.Equal(t, id, got.ID)
		assert.Contains(t, got.Capabilities, llm.TaskNamedEntityRecognition)
	})

	t.Run("Nonexistent Model", func(t *testing.T) {
		_, found := llm.GetModel("fake-model")
		assert.False(t, found)
	})
}

func TestGetModelsByProvider(t *testing.T) {
	models := llm.GetModelsByProvider(llm.ProviderEmbedEverything)
	assert.NotEmpty(t, models)
	for _, m := range models {
		assert.Equal(t, llm.ProviderEmbedEverything, m.ProviderID)
	}
}

func TestGetModelsByCapability(t *testing.T) {
	t.Run("Embedding", func(t *testing.T) {
		models := llm.GetModelsByCapability(llm.TaskEmbedding)
		assert.NotEmpty(t, models)
		for _, m := range models {
			assert.Contains(t, m.Capabilities, llm.TaskEmbedding)
		}
	})

	t.Run("NER", func(t *testing.T) {
		models := llm.GetModelsByCapability(llm.TaskNamedEntityRecognition)
		assert.NotEmpty(t, models)
		// Both GLiNER and RustBert models should be here
		hasGliner := false
		hasRustBert := false
		for _, m := range models {
			if m.ProviderID == llm.ProviderGLiNER {
				hasGliner = true
			}
			if m.ProviderID == llm.ProviderRustBert {
				hasRustBert = true
			}
		}
		assert.True(t, hasGliner, "Should have GLiNER NER models")
		assert.True(t, hasRustBert, "Should have RustBert NER models")
	})
}
