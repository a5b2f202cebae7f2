package models

import (
	"strings"
	"time"
)

// Level represents the difficulty level of a course
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// Levels lists all levels in ascending difficulty
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel resolves a level name case-insensitively
func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, true
		}
	}
	return "", false
}

// Instructor is the author presented on a course
type Instructor struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Lesson is a single unit of a course section
type Lesson struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	IsPreview bool   `json:"isPreview"`
}

// Section groups lessons of a course in order
type Section struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Course represents a course in the catalog.
// Price is expressed in minor currency units.
type Course struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         int64      `json:"price"`
	Level         Level      `json:"level"`
	Category      string     `json:"category"`
	Instructor    Instructor `json:"instructor"`
	Rating        float64    `json:"rating"`
	StudentsCount int        `json:"studentsCount"`
	Thumbnail     *string    `json:"thumbnail"`
	LastUpdated   time.Time  `json:"lastUpdated"`
	Skills        []string   `json:"skills"`
	Requirements  []string   `json:"requirements"`
	TotalLessons  int        `json:"totalLessons"`
	MaxStudents   *int       `json:"-"`
	Curriculum    []Section  `json:"curriculum,omitempty"`
}

// LessonIDs returns the ids of every lesson in curriculum order
func (c *Course) LessonIDs() []string {
	var ids []string
	for _, s := range c.Curriculum {
		for _, l := range s.Lessons {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// HasLesson reports whether the lesson belongs to the course curriculum
func (c *Course) HasLesson(lessonID string) bool {
	for _, s := range c.Curriculum {
		for _, l := range s.Lessons {
			if l.ID == lessonID {
				return true
			}
		}
	}
	return false
}

// TotalDuration sums the duration of every lesson
func (c *Course) TotalDuration() int {
	total := 0
	for _, s := range c.Curriculum {
		for _, l := range s.Lessons {
			total += l.Duration
		}
	}
	return total
}

// CourseDetailResponse represents a course with curriculum and the caller's ownership
type CourseDetailResponse struct {
	Course
	TotalDuration int  `json:"totalDuration"`
	IsEnrolled    bool `json:"isEnrolled"`
}

// CourseFilter narrows catalog listings. Nil bounds are open.
type CourseFilter struct {
	Category string
	Level    Level
	MinPrice *int64
	MaxPrice *int64
}

// SortKey names a listing order
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortRating    SortKey = "rating"
	SortPrice     SortKey = "price"
	SortRelevance SortKey = "relevance"
)

// SortOrder is the direction of a listing order
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultOrder returns the conventional direction of a sort key
func (k SortKey) DefaultOrder() SortOrder {
	if k == SortPrice {
		return SortAsc
	}
	return SortDesc
}

// CourseSort is a resolved sort key and direction
type CourseSort struct {
	By    SortKey
	Order SortOrder
}
