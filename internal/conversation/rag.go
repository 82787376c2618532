package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// Messages too short or too social to be worth an embedding call.
var trivialMessageRE = regexp.MustCompile(`(?i)^(hi|hello|hey|thanks|thank you|ok|okay|bye|goodbye)[.!? ]*$`)

// Augmented is retrieval output attached to a model request.
type Augmented struct {
	Context string
	Sources []SearchResult
}

// Augmenter fetches knowledge context for a visitor message. Retrieval is
// strictly best-effort: any failure just means the model answers without
// grounding.
type Augmenter struct {
	searcher KnowledgeSearcher
	floor    float64
	limit    int
	logger   *logging.Logger
}

// NewAugmenter wires retrieval into the engine. A nil searcher disables
// augmentation entirely.
func NewAugmenter(searcher KnowledgeSearcher, floor float64, limit int, logger *logging.Logger) *Augmenter {
	if logger == nil {
		logger = logging.Default()
	}
	if floor <= 0 {
		floor = 0.3
	}
	if limit <= 0 {
		limit = 3
	}
	return &Augmenter{
		searcher: searcher,
		floor:    floor,
		limit:    limit,
		logger:   logger,
	}
}

// Augment retrieves context for the utterance. Greetings and very short
// messages are skipped without a search.
func (a *Augmenter) Augment(ctx context.Context, utterance string) Augmented {
	if a == nil || a.searcher == nil {
		return Augmented{}
	}

	trimmed := strings.TrimSpace(utterance)
	if len(trimmed) < 10 || trivialMessageRE.MatchString(trimmed) {
		return Augmented{}
	}

	results, err := a.searcher.Search(ctx, trimmed, a.floor, a.limit)
	if err != nil {
		a.logger.Warn("knowledge retrieval failed, continuing without context", "error", err)
		return Augmented{}
	}
	if len(results) == 0 {
		return Augmented{}
	}

	return Augmented{
		Context: formatKnowledgeContext(results),
		Sources: results,
	}
}

// formatKnowledgeContext renders retrieved chunks as an authoritative block
// the model is told to prefer over its own general knowledge.
func formatKnowledgeContext(results []SearchResult) string {
	var b strings.Builder
	b.WriteString("RELEVANT COMPANY INFORMATION FROM KNOWLEDGE BASE:\n\n")
	for _, r := range results {
		b.WriteString(fmt.Sprintf("[%s - %.0f%% relevant]:\n%s\n\n", r.Title, r.Similarity*100, r.Content))
	}
	b.WriteString("Use this information to answer accurately. If the answer is in the context above, prefer it over general knowledge.")
	return b.String()
}
