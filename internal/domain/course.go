package domain

import "time"

// Course is a catalog entry owned by one instructor.
type Course struct {
	ID             string    `json:"id"              db:"id"`
	Title          string    `json:"title"           db:"title"`
	Description    string    `json:"description"     db:"description"`
	InstructorID   string    `json:"instructor_id"   db:"instructor_id"`
	OrganizationID *string   `json:"organization_id" db:"organization_id"`
	Published      bool      `json:"published"       db:"published"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"      db:"updated_at"`
}

// CourseInput is the writable subset of a Course.
type CourseInput struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	InstructorID   string  `json:"instructor_id"`
	OrganizationID *string `json:"organization_id"`
	Published      bool    `json:"published"`
}

// Lesson belongs to a course and inherits its ownership.
type Lesson struct {
	ID        string    `json:"id"         db:"id"`
	CourseID  string    `json:"course_id"  db:"course_id"`
	Title     string    `json:"title"      db:"title"`
	Content   string    `json:"content"    db:"content"`
	VideoURL  string    `json:"video_url"  db:"video_url"`
	Position  int       `json:"position"   db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LessonInput is the writable subset of a Lesson.
type LessonInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url"`
	Position int    `json:"position"`
}

// DashboardStats summarizes the catalog for the admin dashboard.
type DashboardStats struct {
	Courses          int `json:"courses"`
	PublishedCourses int `json:"published_courses"`
	Lessons          int `json:"lessons"`
	Enrollments      int `json:"enrollments"`
	Students         int `json:"students"`
}
