package search

import (
	"context"
	"sort"
	"strings"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/repositories"
)

// EntityLister is the slice of the graph backend the fallback matcher
// needs.
type EntityLister interface {
	ListEntities(ctx context.Context, filter *repositories.EntityFilter) ([]*entities.Entity, error)
}

// TextMatcher is the fallback Searcher used when no similarity provider is
// configured: plain substring and keyword matching against the textual
// fields of existing entities. A whole-query substring hit scores 1.0;
// otherwise the score is the fraction of query keywords found.
type TextMatcher struct {
	lister EntityLister
}

// NewTextMatcher creates a fallback text matcher over the given backend
func NewTextMatcher(lister EntityLister) *TextMatcher {
	return &TextMatcher{lister: lister}
}

// Search scores entities of the given type against the query text
func (m *TextMatcher) Search(ctx context.Context, entityType, query string, limit int) ([]Match, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	keywords := strings.Fields(query)

	candidates, err := m.lister.ListEntities(ctx, &repositories.EntityFilter{Type: entityType})
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, candidate := range candidates {
		score := scoreEntity(candidate, query, keywords)
		if score > 0 {
			matches = append(matches, Match{Entity: candidate, Score: score})
		}
	}

	// Stable sort keeps creation order between equal scores.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func scoreEntity(entity *entities.Entity, query string, keywords []string) float64 {
	values := entity.TextValues()
	if len(values) == 0 {
		return 0
	}

	matched := make([]bool, len(keywords))
	for _, value := range values {
		lower := strings.ToLower(value)
		if strings.Contains(lower, query) || strings.Contains(query, lower) {
			return 1.0
		}
		for i, kw := range keywords {
			if !matched[i] && strings.Contains(lower, kw) {
				matched[i] = true
			}
		}
	}

	hits := 0
	for _, ok := range matched {
		if ok {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}
