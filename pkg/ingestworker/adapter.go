package ingestworker

import (
	"context"
	"fmt"

	"github.com/relicore/chrongraph"
	"github.com/relicore/chrongraph/pkg/types"
)

// EpisodeIngester is the subset of chrongraph.Client this package depends
// on, so tests can substitute a fake without constructing a full client.
type EpisodeIngester interface {
	AddEpisode(ctx context.Context, episode types.Episode, options *chrongraph.AddEpisodeOptions) (*types.AddEpisodeResults, error)
}

// NewPipelineProcessor adapts a chrongraph Client into a Processor: each
// message is converted to an Episode and run through the ingestion
// pipeline, with default options unless overridden.
func NewPipelineProcessor(client EpisodeIngester, options *chrongraph.AddEpisodeOptions) Processor {
	return func(ctx context.Context, msg Message) error {
		episode := types.Episode{
			ID:        msg.ID,
			Name:      msg.EpisodeName,
			Content:   msg.Content,
			Source:    msg.SourceKind,
			Reference: msg.ReferenceTime,
			GroupID:   msg.GroupID,
			Metadata:  msg.CallerFields,
		}
		if _, err := client.AddEpisode(ctx, episode, options); err != nil {
			return fmt.Errorf("ingesting episode %s (group %s): %w", msg.EpisodeName, msg.GroupID, err)
		}
		return nil
	}
}
