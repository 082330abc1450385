package chrongraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/relicore/chrongraph/pkg/community"
	"github.com/relicore/chrongraph/pkg/driver"
	"github.com/relicore/chrongraph/pkg/embedder"
	"github.com/relicore/chrongraph/pkg/llm"
	"github.com/relicore/chrongraph/pkg/modeler"
	"github.com/relicore/chrongraph/pkg/search"
	"github.com/relicore/chrongraph/pkg/types"
	"github.com/relicore/chrongraph/pkg/utils/maintenance"
)

// ClientConfig holds the per-client defaults that scope every operation:
// which group episodes and searches fall back to when the caller doesn't
// specify one, the default search shape, and the edge-type vocabulary
// AddTriplet validates against.
type ClientConfig struct {
	GroupID      string
	SearchConfig *types.SearchConfig
	EdgeTypes    map[string]interface{}
}

// AddEpisodeOptions controls how a single episode is ingested: which entity
// and edge types to extract, which pipeline steps to skip, and how the
// episode relates to prior episodes in its group.
type AddEpisodeOptions struct {
	EntityTypes          map[string]interface{}
	ExcludedEntityTypes  []string
	PreviousEpisodeUUIDs []string
	EdgeTypes            map[string]interface{}
	EdgeTypeMap          map[string]map[string][]interface{}
	OverwriteExisting    bool
	GenerateEmbeddings   bool
	MaxCharacters        int
	DeferGraphIngestion  bool

	// SkipReflexion disables the iterative "did I miss any entities" pass.
	SkipReflexion bool
	// SkipResolution disables entity deduplication against the existing graph.
	SkipResolution bool
	// SkipAttributes disables attribute extraction for resolved entities.
	SkipAttributes bool
	// SkipEdgeResolution disables relationship deduplication against existing edges.
	SkipEdgeResolution bool
	// UseYAML switches prompt serialization from TSV to YAML.
	UseYAML bool
}

// Client is the top-level entry point for ingesting episodes into, and
// searching, a temporal knowledge graph. It implements Service.
type Client struct {
	driver         driver.GraphDriver
	embedder       embedder.Client
	llm            llm.Client
	languageModels *modeler.NlpModels
	community      *community.Builder
	searcher       *search.Searcher
	config         *ClientConfig
	logger         *slog.Logger
}

// NewClientOptions configures NewClient.
type NewClientOptions struct {
	Driver   driver.GraphDriver
	Embedder embedder.Client
	LLM      llm.Client

	// LanguageModels assigns a specialized client to each pipeline step. A
	// nil field, or a nil LanguageModels entirely, falls back to LLM.
	LanguageModels *modeler.NlpModels

	// Config sets the client's default group, search shape, and edge-type
	// vocabulary. A nil Config, or a nil Config.SearchConfig, gets defaults.
	Config *ClientConfig

	Logger *slog.Logger
}

// NewClient wires a Client from its constituent driver, embedder, and LLM
// clients, filling in the community builder and hybrid searcher.
func NewClient(opts *NewClientOptions) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("options are required")
	}
	if opts.Driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	if cfg.SearchConfig == nil {
		cfg.SearchConfig = NewDefaultSearchConfig()
	}

	languageModels := opts.LanguageModels
	if languageModels == nil {
		languageModels = &modeler.NlpModels{
			NodeExtraction: opts.LLM,
			NodeReflexion:  opts.LLM,
			NodeResolution: opts.LLM,
			NodeAttribute:  opts.LLM,
			EdgeExtraction: opts.LLM,
			EdgeResolution: opts.LLM,
			Summarization:  opts.LLM,
		}
	}

	summarizer := languageModels.Summarization
	if summarizer == nil {
		summarizer = opts.LLM
	}
	communityBuilder := community.NewBuilder(opts.Driver, opts.LLM, summarizer, opts.Embedder)
	searcher := search.NewSearcher(opts.Driver, opts.Embedder, opts.LLM)

	return &Client{
		driver:         opts.Driver,
		embedder:       opts.Embedder,
		llm:            opts.LLM,
		languageModels: languageModels,
		community:      communityBuilder,
		searcher:       searcher,
		config:         cfg,
		logger:         logger,
	}, nil
}

// ValidateModeler tests a GraphModeler implementation with sample data,
// delegating to the standalone validation harness in pkg/modeler.
func (c *Client) ValidateModeler(ctx context.Context, gm modeler.GraphModeler) (*modeler.ModelerValidationResult, error) {
	return modeler.ValidateModeler(ctx, gm, nil)
}

// nodeOpsWrapper adapts *maintenance.NodeOperations to utils.NodeOperations,
// whose ResolveExtractedNodes signature returns the duplicate-pair list as
// an untyped interface{} so pkg/utils doesn't need to import pkg/utils/maintenance.
type nodeOpsWrapper struct {
	ops *maintenance.NodeOperations
}

func (w *nodeOpsWrapper) ResolveExtractedNodes(
	ctx context.Context,
	extractedNodes []*types.Node,
	episode *types.Node,
	previousEpisodes []*types.Node,
	entityTypes map[string]interface{},
) ([]*types.Node, map[string]string, interface{}, error) {
	nodes, uuidMap, pairs, err := w.ops.ResolveExtractedNodes(ctx, extractedNodes, episode, previousEpisodes, entityTypes)
	return nodes, uuidMap, pairs, err
}
