package models

import "time"

// Enrollment records that a user owns a course
type Enrollment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	CourseID    string     `json:"courseId"`
	Progress    int        `json:"progress"`
	EnrolledAt  time.Time  `json:"enrolledAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// EnrollmentStatus filters enrolled course listings
type EnrollmentStatus string

const (
	EnrollmentStatusAny        EnrollmentStatus = ""
	EnrollmentStatusInProgress EnrollmentStatus = "in-progress"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
)

// ParseEnrollmentStatus validates a status filter
func ParseEnrollmentStatus(s string) (EnrollmentStatus, bool) {
	switch EnrollmentStatus(s) {
	case EnrollmentStatusAny, EnrollmentStatusInProgress, EnrollmentStatusCompleted:
		return EnrollmentStatus(s), true
	}
	return "", false
}

// EnrolledCourse is a course annotated with the caller's enrollment stats
type EnrolledCourse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	Level            Level      `json:"level"`
	Instructor       Instructor `json:"instructor"`
	Thumbnail        *string    `json:"thumbnail"`
	Progress         int        `json:"progress"`
	TotalLessons     int        `json:"totalLessons"`
	CompletedLessons int        `json:"completedLessons"`
	EnrolledDate     time.Time  `json:"enrolledDate"`
	CompletedAt      *time.Time `json:"completedAt"`
}

// EnrolledCourseListResponse is a page of enrolled courses
type EnrolledCourseListResponse struct {
	Courses    []EnrolledCourse `json:"courses"`
	Pagination Pagination       `json:"pagination"`
}

// EnrollResponse is returned by a successful enrollment
type EnrollResponse struct {
	Enrollment Enrollment `json:"enrollment"`
	Message    string     `json:"message"`
}
