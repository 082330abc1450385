package ingestworker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicore/chrongraph"
	"github.com/relicore/chrongraph/pkg/types"
)

type fakeIngester struct {
	lastEpisode types.Episode
	err         error
}

func (f *fakeIngester) AddEpisode(ctx context.Context, episode types.Episode, options *chrongraph.AddEpisodeOptions) (*types.AddEpisodeResults, error) {
	f.lastEpisode = episode
	if f.err != nil {
		return nil, f.err
	}
	return &types.AddEpisodeResults{}, nil
}

func TestPipelineProcessorConvertsMessageToEpisode(t *testing.T) {
	fake := &fakeIngester{}
	processor := NewPipelineProcessor(fake, nil)

	err := processor(context.Background(), Message{
		ID: "m1", GroupID: "g1", EpisodeName: "ep1", Content: "hello", SourceKind: "text",
	})
	require.NoError(t, err)
	assert.Equal(t, "ep1", fake.lastEpisode.Name)
	assert.Equal(t, "g1", fake.lastEpisode.GroupID)
}

func TestPipelineProcessorWrapsIngestionError(t *testing.T) {
	fake := &fakeIngester{err: errors.New("boom")}
	processor := NewPipelineProcessor(fake, nil)

	err := processor(context.Background(), Message{GroupID: "g1", EpisodeName: "ep1"})
	assert.Error(t, err)
}
