package port

import (
	"context"

	"github.com/arturoeanton/coursesphere/internal/domain"
)

// ProfileStore serves read-only profile lookups.
type ProfileStore interface {
	// GetProfile returns the profile of userID. A missing row is ErrNotFound.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// CourseStore is the record store for courses and lessons.
// Lookups of missing rows return ErrNotFound.
type CourseStore interface {
	ListCourses(ctx context.Context, publishedOnly bool) ([]domain.Course, error)
	GetCourse(ctx context.Context, id string) (*domain.Course, error)
	CreateCourse(ctx context.Context, in domain.CourseInput) (*domain.Course, error)
	UpdateCourse(ctx context.Context, id string, in domain.CourseInput) (*domain.Course, error)
	DeleteCourse(ctx context.Context, id string) error

	// CourseInstructor returns the instructor_id of a course.
	CourseInstructor(ctx context.Context, courseID string) (string, error)
	// LessonInstructor returns the instructor_id of the lesson's parent course.
	LessonInstructor(ctx context.Context, lessonID string) (string, error)

	ListLessons(ctx context.Context, courseID string) ([]domain.Lesson, error)
	CreateLesson(ctx context.Context, courseID string, in domain.LessonInput) (*domain.Lesson, error)
	UpdateLesson(ctx context.Context, id string, in domain.LessonInput) (*domain.Lesson, error)
	DeleteLesson(ctx context.Context, id string) error

	// DashboardStats aggregates the catalog. An empty instructorID covers
	// every course.
	DashboardStats(ctx context.Context, instructorID string) (*domain.DashboardStats, error)
}

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(ctx context.Context, entry domain.AuditLog) error
}

// AuditReader lists persisted audit records.
type AuditReader interface {
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}
