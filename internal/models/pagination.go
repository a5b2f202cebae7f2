package models

const (
	// DefaultPageSize is used when a listing request carries no limit
	DefaultPageSize = 10
	// MaxPageSize caps the limit of every listing
	MaxPageSize = 50
)

// PageRequest is a validated page/limit pair
type PageRequest struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes the position of a page inside a listing
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
}

// NewPagination builds a consistent Pagination for the page and total item count
func NewPagination(page PageRequest, totalItems int) Pagination {
	totalPages := 0
	if page.Limit > 0 {
		totalPages = (totalItems + page.Limit - 1) / page.Limit
	}
	return Pagination{
		CurrentPage:  page.Page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: page.Limit,
		HasNext:      page.Page < totalPages,
		HasPrev:      page.Page > 1,
	}
}

// CourseListQuery carries the raw parameters of a catalog listing
type CourseListQuery struct {
	Category  string
	Level     string
	MinPrice  *int64
	MaxPrice  *int64
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// CourseListResponse is a page of courses
type CourseListResponse struct {
	Courses    []Course   `json:"courses"`
	Pagination Pagination `json:"pagination"`
}
