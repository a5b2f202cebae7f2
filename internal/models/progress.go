package models

import "time"

// LessonProgress is a user's state for one lesson
type LessonProgress struct {
	LessonID        string     `json:"lessonId"`
	Completed       bool       `json:"completed"`
	TimeSpent       int        `json:"timeSpent"`
	WatchedDuration int        `json:"watchedDuration"`
	CompletedAt     *time.Time `json:"completedAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CourseProgress is the aggregated progress of an enrollment
type CourseProgress struct {
	CourseID         string           `json:"courseId"`
	OverallProgress  int              `json:"overallProgress"`
	CompletedLessons []string         `json:"completedLessons"`
	TotalLessons     int              `json:"totalLessons"`
	CompletedAt      *time.Time       `json:"completedAt"`
	Lessons          []LessonProgress `json:"lessons"`
}

// UpdateLessonProgressRequest is the body of PUT /courses/{id}/lessons/{lessonId}/progress
type UpdateLessonProgressRequest struct {
	Completed       bool `json:"completed"`
	TimeSpent       int  `json:"timeSpent" validate:"gte=0"`
	WatchedDuration int  `json:"watchedDuration" validate:"gte=0"`
}

// LessonProgressUpdate is a validated progress change for one lesson
type LessonProgressUpdate struct {
	UserID          string
	CourseID        string
	LessonID        string
	Completed       bool
	TimeSpent       int
	WatchedDuration int
}

// LessonProgressResult is returned after a lesson progress update
type LessonProgressResult struct {
	LessonProgress  LessonProgress `json:"lessonProgress"`
	OverallProgress int            `json:"overallProgress"`
	CompletedAt     *time.Time     `json:"completedAt"`
}
