package prompts

// Library bundles every prompt family used by the maintenance operations
// (node extraction, edge extraction, deduplication, temporal resolution)
// behind a single dependency-injectable handle.
type Library interface {
	ExtractNodes() ExtractNodesPrompt
	DedupeNodes() DedupeNodesPrompt
	ExtractEdges() ExtractEdgesPrompt
	DedupeEdges() DedupeEdgesPrompt
	ExtractEdgeDates() ExtractEdgeDatesPrompt
	InvalidateEdges() InvalidateEdgesPrompt
	SummarizeNodes() SummarizeNodesPrompt
	Community() CommunityPrompt
	Eval() EvalPrompt
}

type library struct {
	extractNodes     *ExtractNodesVersions
	dedupeNodes      *DedupeNodesVersions
	extractEdges     *ExtractEdgesVersions
	dedupeEdges      *DedupeEdgesVersions
	extractEdgeDates *ExtractEdgeDatesVersions
	invalidateEdges  *InvalidateEdgesVersions
	summarizeNodes   *SummarizeNodesVersions
	community        *CommunityVersions
	eval             *EvalVersions
}

// NewLibrary constructs a Library from the default (built-in) version of
// every prompt family.
func NewLibrary() Library {
	return &library{
		extractNodes:     NewExtractNodesVersions(),
		dedupeNodes:      NewDedupeNodesVersions(),
		extractEdges:     NewExtractEdgesVersions(),
		dedupeEdges:      NewDedupeEdgesVersions(),
		extractEdgeDates: NewExtractEdgeDatesVersions(),
		invalidateEdges:  NewInvalidateEdgesVersions(),
		summarizeNodes:   NewSummarizeNodesVersions(),
		community:        NewCommunityVersions(),
		eval:             NewEvalVersions(),
	}
}

func (l *library) ExtractNodes() ExtractNodesPrompt         { return l.extractNodes }
func (l *library) DedupeNodes() DedupeNodesPrompt           { return l.dedupeNodes }
func (l *library) ExtractEdges() ExtractEdgesPrompt         { return l.extractEdges }
func (l *library) DedupeEdges() DedupeEdgesPrompt           { return l.dedupeEdges }
func (l *library) ExtractEdgeDates() ExtractEdgeDatesPrompt { return l.extractEdgeDates }
func (l *library) InvalidateEdges() InvalidateEdgesPrompt   { return l.invalidateEdges }
func (l *library) SummarizeNodes() SummarizeNodesPrompt     { return l.summarizeNodes }
func (l *library) Community() CommunityPrompt               { return l.community }
func (l *library) Eval() EvalPrompt                         { return l.eval }
