package prompts

import (
	"fmt"
	"log/slog"

	"github.com/relicore/chrongraph/pkg/llm"
	"github.com/relicore/chrongraph/pkg/types"
)

// CommunityPrompt defines the interface for community-building prompts.
type CommunityPrompt interface {
	SummarizePair() types.PromptVersion
	Name() types.PromptVersion
}

// CommunityVersions holds all versions of community-building prompts.
type CommunityVersions struct {
	summarizePairPrompt types.PromptVersion
	namePrompt          types.PromptVersion
}

func (c *CommunityVersions) SummarizePair() types.PromptVersion { return c.summarizePairPrompt }
func (c *CommunityVersions) Name() types.PromptVersion          { return c.namePrompt }

// communitySummarizePairPrompt merges two member summaries during the
// hierarchical summarization pass over a cluster.
func communitySummarizePairPrompt(context map[string]interface{}) ([]types.Message, error) {
	sysPrompt := `You are an expert at synthesizing information. Given two entity summaries, create a single comprehensive summary that captures the key information from both.`

	left := context["left"]
	right := context["right"]

	userPrompt := fmt.Sprintf(`Please summarize these two entity summaries into one comprehensive summary. The summary should be concise (under 250 words) and maintain the most important details.

Summary 1: %v

Summary 2: %v

Provide a single summary that captures the essential information from both:`, left, right)
	logPrompts(context["logger"].(*slog.Logger), sysPrompt, userPrompt)
	return []types.Message{
		llm.NewSystemMessage(sysPrompt),
		llm.NewUserMessage(userPrompt),
	}, nil
}

// communityNamePrompt names a community from its final, synthesized summary.
func communityNamePrompt(context map[string]interface{}) ([]types.Message, error) {
	sysPrompt := `You are an expert at creating concise, descriptive names. Given a summary, create a brief descriptive name (1-5 words) that captures the essence of the content.`

	summary := context["summary"]

	userPrompt := fmt.Sprintf(`Based on this summary, provide a brief descriptive name (1-5 words):

%v

Name:`, summary)
	logPrompts(context["logger"].(*slog.Logger), sysPrompt, userPrompt)
	return []types.Message{
		llm.NewSystemMessage(sysPrompt),
		llm.NewUserMessage(userPrompt),
	}, nil
}

// NewCommunityVersions creates a new CommunityVersions instance.
func NewCommunityVersions() *CommunityVersions {
	return &CommunityVersions{
		summarizePairPrompt: NewPromptVersion(communitySummarizePairPrompt),
		namePrompt:          NewPromptVersion(communityNamePrompt),
	}
}
