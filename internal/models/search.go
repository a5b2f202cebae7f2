package models

// SearchFilter narrows search results before ranking. Nil bounds are open.
type SearchFilter struct {
	Level     Level
	Category  string
	PriceMin  *int64
	PriceMax  *int64
	MinRating *float64
}

// SearchQuery carries the raw parameters of a search request
type SearchQuery struct {
	Query     string
	Level     string
	Category  string
	PriceMin  *int64
	PriceMax  *int64
	MinRating *float64
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// SearchResult is a course ranked against a query
type SearchResult struct {
	Course
	RelevanceScore float64 `json:"relevanceScore"`
}

// PriceRange is the span of prices in the catalog
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// FilterFacets describes the whole catalog for building filter controls
type FilterFacets struct {
	Categories []string   `json:"categories"`
	Levels     []Level    `json:"levels"`
	PriceRange PriceRange `json:"priceRange"`
}

// SearchResponse is a page of ranked results
type SearchResponse struct {
	Query      string         `json:"query"`
	Courses    []SearchResult `json:"courses"`
	Pagination Pagination     `json:"pagination"`
	Filters    FilterFacets   `json:"filters"`
}

// SuggestionType names the source of a suggestion
type SuggestionType string

const (
	SuggestionCourse     SuggestionType = "course"
	SuggestionInstructor SuggestionType = "instructor"
	SuggestionCategory   SuggestionType = "category"
	SuggestionSkill      SuggestionType = "skill"
)

// Suggestion is a completion candidate for a search prefix
type Suggestion struct {
	Text  string         `json:"text"`
	Type  SuggestionType `json:"type"`
	Count int            `json:"count"`
}

// SuggestionsResponse wraps suggestions
type SuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}
