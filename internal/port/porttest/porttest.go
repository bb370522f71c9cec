// Package porttest provides in-memory implementations of the port
// interfaces for tests.
package porttest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Secret signs every token minted by this package.
const Secret = "porttest-secret"

// AccessToken mints an HS256 access token for sub expiring at exp.
func AccessToken(sub string, exp time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Jar is a cookie jar that behaves like a browser across calls: cookies
// written with Cookie are visible to later Cookies reads.
type Jar struct {
	Values  map[string]string
	Written []*fiber.Cookie
}

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{Values: map[string]string{}}
}

func (j *Jar) Cookies(key string, defaultValue ...string) string {
	if v, ok := j.Values[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (j *Jar) Cookie(c *fiber.Cookie) {
	j.Written = append(j.Written, c)
	if c.MaxAge < 0 {
		delete(j.Values, c.Name)
		return
	}
	j.Values[c.Name] = c.Value
}

// Identity is a scripted identity provider.
type Identity struct {
	mu sync.Mutex

	TTL time.Duration
	Now func() time.Time

	accounts map[string]account // by email
	codes    map[string]string  // reset code -> user id
	refresh  map[string]string  // refresh token -> user id
	seq      int

	// Errors to inject.
	SignOutErr  error
	ResetErr    error
	UpdateErr   error
	RefreshErr  error
	ExchangeErr error

	Calls       []string
	ResetEmails []string
	Passwords   map[string]string // user id -> password set via UpdateUser
}

type account struct {
	id       string
	password string
}

// NewIdentity returns a provider with no accounts.
func NewIdentity() *Identity {
	return &Identity{
		TTL:       time.Hour,
		Now:       time.Now,
		accounts:  map[string]account{},
		codes:     map[string]string{},
		refresh:   map[string]string{},
		Passwords: map[string]string{},
	}
}

// AddUser registers an account and returns its id.
func (p *Identity) AddUser(id, email, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email] = account{id: id, password: password}
}

// IssueCode creates a one-time reset code for userID.
func (p *Identity) IssueCode(code, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = userID
}

// IssueRefresh registers a refresh token for userID.
func (p *Identity) IssueRefresh(refreshToken, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refresh[refreshToken] = userID
}

// CallCount returns how often op was invoked.
func (p *Identity) CallCount(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (p *Identity) record(op string) {
	p.Calls = append(p.Calls, op)
}

// issue must be called with p.mu held.
func (p *Identity) issue(userID, email string) *domain.AuthResult {
	p.seq++
	exp := p.Now().Add(p.TTL)
	rt := "refresh-" + userID + "-" + strconv.Itoa(p.seq)
	p.refresh[rt] = userID
	return &domain.AuthResult{
		TokenTriple: domain.TokenTriple{
			AccessToken:  AccessToken(userID, exp),
			RefreshToken: rt,
			ExpiresAt:    exp.Unix(),
		},
		User: domain.User{ID: userID, Email: email},
	}
}

func (p *Identity) SignIn(_ context.Context, email, password string) (*domain.AuthResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SignIn")
	a, ok := p.accounts[email]
	if !ok || a.password != password {
		return nil, fmt.Errorf("%w: Invalid login credentials", port.ErrInvalidCredentials)
	}
	return p.issue(a.id, email), nil
}

func (p *Identity) SignUp(_ context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SignUp")
	if _, ok := p.accounts[reg.Email]; ok {
		return nil, fmt.Errorf("%w: User already registered", port.ErrValidation)
	}
	id := "user-" + strconv.Itoa(len(p.accounts)+1)
	p.accounts[reg.Email] = account{id: id, password: reg.Password}
	return p.issue(id, reg.Email), nil
}

func (p *Identity) SignOut(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SignOut")
	return p.SignOutErr
}

func (p *Identity) ResetPasswordForEmail(_ context.Context, email, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("ResetPasswordForEmail")
	p.ResetEmails = append(p.ResetEmails, email)
	if p.ResetErr != nil {
		return p.ResetErr
	}
	if _, ok := p.accounts[email]; !ok {
		return fmt.Errorf("%w: user not found", port.ErrUpstream)
	}
	return nil
}

func (p *Identity) ExchangeCodeForSession(_ context.Context, code string) (*domain.AuthResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("ExchangeCodeForSession")
	if p.ExchangeErr != nil {
		return nil, p.ExchangeErr
	}
	uid, ok := p.codes[code]
	if !ok {
		return nil, fmt.Errorf("%w: Token has expired or is invalid", port.ErrInvalidOrExpiredCode)
	}
	delete(p.codes, code)
	return p.issue(uid, ""), nil
}

func (p *Identity) UpdateUser(_ context.Context, accessToken, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("UpdateUser")
	if p.UpdateErr != nil {
		return p.UpdateErr
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return fmt.Errorf("%w: %v", port.ErrUnauthenticated, err)
	}
	p.Passwords[claims.Subject] = password
	return nil
}

func (p *Identity) RefreshSession(_ context.Context, refreshToken string) (*domain.AuthResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("RefreshSession")
	if p.RefreshErr != nil {
		return nil, p.RefreshErr
	}
	uid, ok := p.refresh[refreshToken]
	if !ok {
		return nil, fmt.Errorf("%w: Invalid Refresh Token", port.ErrInvalidCredentials)
	}
	delete(p.refresh, refreshToken)
	return p.issue(uid, ""), nil
}

// Profiles is an in-memory ProfileStore.
type Profiles struct {
	mu      sync.Mutex
	rows    map[string]domain.Profile
	Lookups int
	Err     error
}

// NewProfiles returns a store holding profiles.
func NewProfiles(profiles ...domain.Profile) *Profiles {
	s := &Profiles{rows: map[string]domain.Profile{}}
	for _, p := range profiles {
		s.rows[p.ID] = p
	}
	return s
}

// Put inserts or replaces a profile.
func (s *Profiles) Put(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.ID] = p
}

func (s *Profiles) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lookups++
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.rows[userID]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &p, nil
}

// Courses is an in-memory CourseStore.
type Courses struct {
	mu      sync.Mutex
	courses map[string]domain.Course
	lessons map[string]domain.Lesson
	seq     int

	OwnerLookups int
	Writes       int
}

// NewCourses returns a store holding courses.
func NewCourses(courses ...domain.Course) *Courses {
	s := &Courses{courses: map[string]domain.Course{}, lessons: map[string]domain.Lesson{}}
	for _, c := range courses {
		s.courses[c.ID] = c
	}
	return s
}

// PutLesson inserts or replaces a lesson.
func (s *Courses) PutLesson(l domain.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[l.ID] = l
}

func (s *Courses) nextID(prefix string) string {
	s.seq++
	return prefix + "-" + strconv.Itoa(s.seq)
}

func (s *Courses) ListCourses(_ context.Context, publishedOnly bool) ([]domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		if publishedOnly && !c.Published {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Courses) GetCourse(_ context.Context, id string) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &c, nil
}

func (s *Courses) CreateCourse(_ context.Context, in domain.CourseInput) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes++
	c := domain.Course{
		ID:             s.nextID("course"),
		Title:          in.Title,
		Description:    in.Description,
		InstructorID:   in.InstructorID,
		OrganizationID: in.OrganizationID,
		Published:      in.Published,
	}
	s.courses[c.ID] = c
	return &c, nil
}

func (s *Courses) UpdateCourse(_ context.Context, id string, in domain.CourseInput) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	s.Writes++
	c.Title, c.Description, c.Published = in.Title, in.Description, in.Published
	s.courses[id] = c
	return &c, nil
}

func (s *Courses) DeleteCourse(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return port.ErrNotFound
	}
	s.Writes++
	delete(s.courses, id)
	return nil
}

func (s *Courses) CourseInstructor(_ context.Context, courseID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OwnerLookups++
	c, ok := s.courses[courseID]
	if !ok {
		return "", port.ErrNotFound
	}
	return c.InstructorID, nil
}

func (s *Courses) LessonInstructor(_ context.Context, lessonID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OwnerLookups++
	l, ok := s.lessons[lessonID]
	if !ok {
		return "", port.ErrNotFound
	}
	c, ok := s.courses[l.CourseID]
	if !ok {
		return "", port.ErrNotFound
	}
	return c.InstructorID, nil
}

func (s *Courses) ListLessons(_ context.Context, courseID string) ([]domain.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Lesson
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Courses) CreateLesson(_ context.Context, courseID string, in domain.LessonInput) (*domain.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[courseID]; !ok {
		return nil, port.ErrNotFound
	}
	s.Writes++
	l := domain.Lesson{
		ID:       s.nextID("lesson"),
		CourseID: courseID,
		Title:    in.Title,
		Content:  in.Content,
		VideoURL: in.VideoURL,
		Position: in.Position,
	}
	s.lessons[l.ID] = l
	return &l, nil
}

func (s *Courses) UpdateLesson(_ context.Context, id string, in domain.LessonInput) (*domain.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	s.Writes++
	l.Title, l.Content, l.VideoURL, l.Position = in.Title, in.Content, in.VideoURL, in.Position
	s.lessons[id] = l
	return &l, nil
}

func (s *Courses) DeleteLesson(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[id]; !ok {
		return port.ErrNotFound
	}
	s.Writes++
	delete(s.lessons, id)
	return nil
}

func (s *Courses) DashboardStats(_ context.Context, instructorID string) (*domain.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st domain.DashboardStats
	owned := map[string]bool{}
	for _, c := range s.courses {
		if instructorID != "" && c.InstructorID != instructorID {
			continue
		}
		owned[c.ID] = true
		st.Courses++
		if c.Published {
			st.PublishedCourses++
		}
	}
	for _, l := range s.lessons {
		if owned[l.CourseID] {
			st.Lessons++
		}
	}
	return &st, nil
}

// Audit collects audit entries.
type Audit struct {
	mu      sync.Mutex
	Entries []domain.AuditLog
}

func (a *Audit) WriteAudit(_ context.Context, e domain.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, e)
	return nil
}

func (a *Audit) ListAuditLogs(_ context.Context, limit int, action string) ([]domain.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.AuditLog
	for _, e := range a.Entries {
		if action != "" && e.Action != action {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Actions returns the recorded actions in order.
func (a *Audit) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.Entries))
	for i, e := range a.Entries {
		out[i] = e.Action
	}
	return out
}

// Guard is an in-memory CodeGuard.
type Guard struct {
	mu      sync.Mutex
	claimed map[string]bool
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{claimed: map[string]bool{}}
}

func (g *Guard) Claim(_ context.Context, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[code] {
		return false, nil
	}
	g.claimed[code] = true
	return true, nil
}

func (g *Guard) Release(_ context.Context, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, code)
	return nil
}
