package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/catalog"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultSuggestionLimit is used when a suggestion request carries no limit
	DefaultSuggestionLimit = 5
	// MaxSuggestionLimit caps the number of suggestions
	MaxSuggestionLimit = 10
)

// Relevance weights of the matching fields
const (
	scoreExactTitle  = 1.0
	scoreTitlePrefix = 0.8
	scoreTitle       = 0.7
	scoreCategory    = 0.5
	scoreDescription = 0.3
	scoreExtraField  = 0.05
)

// SnapshotProvider serves catalog snapshots
type SnapshotProvider interface {
	// Snapshot returns the current catalog snapshot
	//
	// "ctx" is the context for the request.
	//
	// Returns the snapshot and an error if the catalog could not be loaded.
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type searchService struct {
	index  SnapshotProvider
	logger *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(index SnapshotProvider, logger *zap.Logger) *searchService {
	return &searchService{
		index:  index,
		logger: logger,
	}
}

// Search ranks the catalog against a free-text query.
// Filters apply before ranking; facets always describe the unfiltered catalog.
func (s *searchService) Search(ctx context.Context, query models.SearchQuery) (*models.SearchResponse, error) {
	q := strings.TrimSpace(query.Query)
	if q == "" {
		return nil, apperrors.Validation("search query is required").
			WithDetails(map[string]string{"field": "q"})
	}
	page, err := pageRequest(query.Page, query.Limit, models.MaxPageSize)
	if err != nil {
		return nil, err
	}
	order, err := resolveSort(query.SortBy, query.SortOrder, models.SortRelevance,
		models.SortRelevance, models.SortRating, models.SortPrice)
	if err != nil {
		return nil, err
	}
	filter, err := searchFilter(query)
	if err != nil {
		return nil, err
	}

	snap, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	needle := strings.ToLower(q)
	results := []models.SearchResult{}
	for _, course := range snap.Courses {
		if !matchesFilter(course, filter) {
			continue
		}
		score, ok := relevance(course, needle)
		if !ok {
			continue
		}
		results = append(results, models.SearchResult{Course: course, RelevanceScore: score})
	}

	sortResults(results, order)

	total := len(results)
	start := max(0, min(page.Offset(), total))
	end := min(start+page.Limit, total)

	return &models.SearchResponse{
		Query:      q,
		Courses:    results[start:end],
		Pagination: models.NewPagination(page, total),
		Filters:    snap.Facets,
	}, nil
}

// searchFilter validates the filter parameters of a search query
func searchFilter(query models.SearchQuery) (models.SearchFilter, error) {
	level, err := parseLevel(query.Level)
	if err != nil {
		return models.SearchFilter{}, err
	}
	if err := validatePriceRange(query.PriceMin, query.PriceMax); err != nil {
		return models.SearchFilter{}, err
	}
	if query.MinRating != nil && (*query.MinRating < 0 || *query.MinRating > 5) {
		return models.SearchFilter{}, apperrors.Validation("rating must be between 0 and 5").
			WithDetails(map[string]string{"field": "rating"})
	}

	return models.SearchFilter{
		Level:     level,
		Category:  strings.ToLower(strings.TrimSpace(query.Category)),
		PriceMin:  query.PriceMin,
		PriceMax:  query.PriceMax,
		MinRating: query.MinRating,
	}, nil
}

func matchesFilter(c models.Course, f models.SearchFilter) bool {
	if f.Level != "" && c.Level != f.Level {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(c.Category), f.Category) {
		return false
	}
	if f.PriceMin != nil && c.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && c.Price > *f.PriceMax {
		return false
	}
	if f.MinRating != nil && c.Rating < *f.MinRating {
		return false
	}
	return true
}

// relevance scores a course against a lowercase needle.
// The best matching field sets the base score and every other matching field adds a
// small bonus; the result is capped at 1 and rounded to four decimals.
func relevance(c models.Course, needle string) (float64, bool) {
	title := strings.ToLower(c.Title)

	var components []float64
	switch {
	case title == needle:
		components = append(components, scoreExactTitle)
	case strings.HasPrefix(title, needle):
		components = append(components, scoreTitlePrefix)
	case strings.Contains(title, needle):
		components = append(components, scoreTitle)
	}
	if strings.Contains(strings.ToLower(c.Category), needle) {
		components = append(components, scoreCategory)
	}
	if strings.Contains(strings.ToLower(c.Description), needle) {
		components = append(components, scoreDescription)
	}
	if len(components) == 0 {
		return 0, false
	}

	score := 0.0
	for _, component := range components {
		score = math.Max(score, component)
	}
	score += scoreExtraField * float64(len(components)-1)
	score = math.Min(score, 1)

	return math.Round(score*10000) / 10000, true
}

// sortResults orders results by the requested key with deterministic tie breaks:
// relevance ties fall back to rating then id, other keys to id
func sortResults(results []models.SearchResult, order models.CourseSort) {
	asc := order.Order == models.SortAsc
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch order.By {
		case models.SortRelevance:
			if a.RelevanceScore != b.RelevanceScore {
				return (a.RelevanceScore < b.RelevanceScore) == asc
			}
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		case models.SortRating:
			if a.Rating != b.Rating {
				return (a.Rating < b.Rating) == asc
			}
		case models.SortPrice:
			if a.Price != b.Price {
				return (a.Price < b.Price) == asc
			}
		}
		return a.ID < b.ID
	})
}

// Suggest returns completion candidates containing the prefix.
// Candidates starting with the prefix come first, then more frequent ones.
func (s *searchService) Suggest(ctx context.Context, prefix string, limit int) (*models.SuggestionsResponse, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return nil, apperrors.Validation("search query is required").
			WithDetails(map[string]string{"field": "q"})
	}
	if limit < 1 {
		return nil, apperrors.Validation("limit must be a positive integer").
			WithDetails(map[string]string{"field": "limit"})
	}
	limit = min(limit, MaxSuggestionLimit)

	snap, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	needle := strings.ToLower(p)
	candidates := suggestionCandidates(snap.Courses)

	matches := []models.Suggestion{}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Text), needle) {
			matches = append(matches, c)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		aPrefix := strings.HasPrefix(strings.ToLower(a.Text), needle)
		bPrefix := strings.HasPrefix(strings.ToLower(b.Text), needle)
		if aPrefix != bPrefix {
			return aPrefix
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Text != b.Text {
			return a.Text < b.Text
		}
		return a.Type < b.Type
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return &models.SuggestionsResponse{Suggestions: matches}, nil
}

// suggestionCandidates collects course titles, instructors, categories and skills,
// counting the courses each one appears in
func suggestionCandidates(courses []models.Course) []models.Suggestion {
	type key struct {
		kind models.SuggestionType
		text string
	}
	index := make(map[key]int)
	var candidates []models.Suggestion

	add := func(kind models.SuggestionType, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		k := key{kind: kind, text: strings.ToLower(text)}
		if pos, ok := index[k]; ok {
			candidates[pos].Count++
			return
		}
		index[k] = len(candidates)
		candidates = append(candidates, models.Suggestion{Text: text, Type: kind, Count: 1})
	}

	for _, c := range courses {
		add(models.SuggestionCourse, c.Title)
		add(models.SuggestionInstructor, c.Instructor.Name)
		add(models.SuggestionCategory, c.Category)
		seen := make(map[string]struct{}, len(c.Skills))
		for _, skill := range c.Skills {
			lower := strings.ToLower(strings.TrimSpace(skill))
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			add(models.SuggestionSkill, skill)
		}
	}

	return candidates
}
