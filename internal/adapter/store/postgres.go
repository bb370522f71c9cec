package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/google/uuid"

	_ "github.com/lib/pq"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already opened database.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// --- Profiles ---

// GetProfile implements port.ProfileStore. Profile ids are UUIDs, so any
// other id has no row.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, port.ErrNotFound
	}

	query := `SELECT id, role, organization_id, email, first_name, last_name, avatar_url, created_at, updated_at
	          FROM profiles WHERE id = $1`

	var (
		p                      domain.Profile
		role, org, first, last sql.NullString
		email, avatar          sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &role, &org, &email, &first, &last, &avatar, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.Role = domain.Role(role.String)
	if org.Valid {
		p.OrganizationID = &org.String
	}
	p.Email, p.FirstName, p.LastName = email.String, first.String, last.String
	if avatar.String != "" {
		p.Attributes = map[string]any{"avatar_url": avatar.String}
	}
	return &p, nil
}

// --- Courses ---

const courseColumns = `id, title, description, instructor_id, organization_id, published, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*domain.Course, error) {
	var (
		c    domain.Course
		desc sql.NullString
		org  sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Title, &desc, &c.InstructorID, &org, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = desc.String
	if org.Valid {
		c.OrganizationID = &org.String
	}
	return &c, nil
}

// ListCourses returns courses, newest first.
func (s *PostgresStore) ListCourses(ctx context.Context, publishedOnly bool) ([]domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	if publishedOnly {
		query += ` WHERE published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// GetCourse returns a course by ID.
func (s *PostgresStore) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	c, err := scanCourse(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("get course", err)
	}
	return c, nil
}

// CreateCourse inserts a new course record.
func (s *PostgresStore) CreateCourse(ctx context.Context, in domain.CourseInput) (*domain.Course, error) {
	query := `INSERT INTO courses (title, description, instructor_id, organization_id, published)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING ` + courseColumns
	c, err := scanCourse(s.db.QueryRowContext(ctx, query,
		in.Title, in.Description, in.InstructorID, in.OrganizationID, in.Published,
	))
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

// UpdateCourse rewrites a course. An empty InstructorID or nil
// OrganizationID keeps the stored value.
func (s *PostgresStore) UpdateCourse(ctx context.Context, id string, in domain.CourseInput) (*domain.Course, error) {
	query := `UPDATE courses SET
	              title = $2,
	              description = $3,
	              published = $4,
	              organization_id = COALESCE($5, organization_id),
	              instructor_id = COALESCE(NULLIF($6, '')::uuid, instructor_id),
	              updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + courseColumns
	c, err := scanCourse(s.db.QueryRowContext(ctx, query,
		id, in.Title, in.Description, in.Published, in.OrganizationID, in.InstructorID,
	))
	if err != nil {
		return nil, notFound("update course", err)
	}
	return c, nil
}

// DeleteCourse removes a course and, through the foreign key, its lessons.
func (s *PostgresStore) DeleteCourse(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "courses", id)
}

// CourseInstructor implements port.CourseStore.
func (s *PostgresStore) CourseInstructor(ctx context.Context, courseID string) (string, error) {
	var instructorID string
	err := s.db.QueryRowContext(ctx, `SELECT instructor_id FROM courses WHERE id = $1`, courseID).Scan(&instructorID)
	if err != nil {
		return "", notFound("course instructor", err)
	}
	return instructorID, nil
}

// LessonInstructor implements port.CourseStore with a single joined lookup.
func (s *PostgresStore) LessonInstructor(ctx context.Context, lessonID string) (string, error) {
	query := `SELECT c.instructor_id
	          FROM lessons l JOIN courses c ON c.id = l.course_id
	          WHERE l.id = $1`
	var instructorID string
	if err := s.db.QueryRowContext(ctx, query, lessonID).Scan(&instructorID); err != nil {
		return "", notFound("lesson instructor", err)
	}
	return instructorID, nil
}

// --- Lessons ---

const lessonColumns = `id, course_id, title, content, video_url, position, created_at, updated_at`

func scanLesson(row rowScanner) (*domain.Lesson, error) {
	var (
		l              domain.Lesson
		content, video sql.NullString
	)
	if err := row.Scan(&l.ID, &l.CourseID, &l.Title, &content, &video, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Content, l.VideoURL = content.String, video.String
	return &l, nil
}

// ListLessons returns the lessons of a course ordered by position.
func (s *PostgresStore) ListLessons(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 ORDER BY position, created_at`
	rows, err := s.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []domain.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, *l)
	}
	return lessons, rows.Err()
}

// CreateLesson inserts a lesson under courseID.
func (s *PostgresStore) CreateLesson(ctx context.Context, courseID string, in domain.LessonInput) (*domain.Lesson, error) {
	query := `INSERT INTO lessons (course_id, title, content, video_url, position)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING ` + lessonColumns
	l, err := scanLesson(s.db.QueryRowContext(ctx, query, courseID, in.Title, in.Content, in.VideoURL, in.Position))
	if err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return l, nil
}

// UpdateLesson rewrites a lesson.
func (s *PostgresStore) UpdateLesson(ctx context.Context, id string, in domain.LessonInput) (*domain.Lesson, error) {
	query := `UPDATE lessons SET title = $2, content = $3, video_url = $4, position = $5, updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + lessonColumns
	l, err := scanLesson(s.db.QueryRowContext(ctx, query, id, in.Title, in.Content, in.VideoURL, in.Position))
	if err != nil {
		return nil, notFound("update lesson", err)
	}
	return l, nil
}

// DeleteLesson removes a lesson.
func (s *PostgresStore) DeleteLesson(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "lessons", id)
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return port.ErrNotFound
	}
	return nil
}

// --- Dashboard ---

// DashboardStats implements port.CourseStore.
func (s *PostgresStore) DashboardStats(ctx context.Context, instructorID string) (*domain.DashboardStats, error) {
	query := `
		WITH scoped AS (
			SELECT id, published FROM courses
			WHERE $1 = '' OR instructor_id::text = $1
		)
		SELECT
			(SELECT COUNT(*) FROM scoped),
			(SELECT COUNT(*) FROM scoped WHERE published),
			(SELECT COUNT(*) FROM lessons l JOIN scoped c ON c.id = l.course_id),
			(SELECT COUNT(*) FROM enrollments e JOIN scoped c ON c.id = e.course_id),
			(SELECT COUNT(DISTINCT e.student_id) FROM enrollments e JOIN scoped c ON c.id = e.course_id)`

	var st domain.DashboardStats
	err := s.db.QueryRowContext(ctx, query, instructorID).Scan(
		&st.Courses, &st.PublishedCourses, &st.Lessons, &st.Enrollments, &st.Students,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &st, nil
}

// --- Audit Logs ---

// WriteAudit implements port.AuditWriter.
func (s *PostgresStore) WriteAudit(ctx context.Context, e domain.AuditLog) error {
	if e.Details == "" {
		e.Details = "{}"
	}
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Details, e.IP, e.UserAgent,
	)
	return err
}

// ListAuditLogs returns recent audit logs with optional filters.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT id, user_id, action, resource, resource_id, details, ip, user_agent, created_at
	          FROM audit_logs`
	args := []interface{}{}
	argIdx := 1

	if action != "" {
		query += fmt.Sprintf(" WHERE action = $%d", argIdx)
		args = append(args, action)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
