package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillcart/backend/internal/catalog"
	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/keylock"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// fakeStore is an in-memory store with the same atomicity guarantees as the MySQL repositories
type fakeStore struct {
	mu          sync.Mutex
	courses     map[string]*models.Course
	cart        map[string]models.CartItem
	enrollments map[string]*models.Enrollment
	progress    map[string]map[string]models.LessonProgress
	failWith    map[string]error
}

func newFakeStore(courses ...models.Course) *fakeStore {
	s := &fakeStore{
		courses:     make(map[string]*models.Course),
		cart:        make(map[string]models.CartItem),
		enrollments: make(map[string]*models.Enrollment),
		progress:    make(map[string]map[string]models.LessonProgress),
		failWith:    make(map[string]error),
	}
	for i := range courses {
		c := courses[i]
		s.courses[c.ID] = &c
	}
	return s
}

func pairKey(userID, courseID string) string {
	return userID + "|" + courseID
}

func (s *fakeStore) fail(method string) error {
	return s.failWith[method]
}

func (s *fakeStore) inCart(userID, courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.cart {
		if item.UserID == userID && item.CourseID == courseID {
			return true
		}
	}
	return false
}

func (s *fakeStore) enrolled(userID, courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.enrollments[pairKey(userID, courseID)]
	return ok
}

func (s *fakeStore) enrollmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.enrollments)
}

type fakeCourseRepo struct{ s *fakeStore }

func (r fakeCourseRepo) List(ctx context.Context, filter models.CourseFilter, order models.CourseSort, page models.PageRequest) ([]models.Course, int, error) {
	if err := r.s.fail("course.List"); err != nil {
		return nil, 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := []models.Course{}
	for _, c := range r.s.courses {
		if filter.Category != "" && !strings.Contains(strings.ToLower(c.Category), strings.ToLower(filter.Category)) {
			continue
		}
		if filter.Level != "" && c.Level != filter.Level {
			continue
		}
		if filter.MinPrice != nil && c.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && c.Price > *filter.MaxPrice {
			continue
		}
		cp := *c
		cp.Curriculum = nil
		matched = append(matched, cp)
	}

	asc := order.Order == models.SortAsc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch order.By {
		case models.SortNewest:
			if !a.LastUpdated.Equal(b.LastUpdated) {
				return a.LastUpdated.Before(b.LastUpdated) == asc
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

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return matched[start:end], total, nil
}

func (r fakeCourseRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	if err := r.s.fail("course.GetByID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r fakeCourseRepo) Exists(ctx context.Context, id string) (bool, error) {
	if err := r.s.fail("course.Exists"); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.courses[id]
	return ok, nil
}

type fakeCartRepo struct{ s *fakeStore }

func (r fakeCartRepo) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	if err := r.s.fail("cart.ListByUser"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := []models.CartItem{}
	for _, item := range r.s.cart {
		if item.UserID == userID {
			items = append(items, r.s.withCourse(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *fakeStore) withCourse(item models.CartItem) models.CartItem {
	if c, ok := s.courses[item.CourseID]; ok {
		item.Course = models.CartCourse{
			ID:         c.ID,
			Title:      c.Title,
			Price:      c.Price,
			Instructor: c.Instructor,
			Thumbnail:  c.Thumbnail,
		}
	}
	return item
}

func (r fakeCartRepo) GetByID(ctx context.Context, userID, itemID string) (*models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.cart[itemID]
	if !ok || item.UserID != userID {
		return nil, database.ErrNotFound
	}
	item = r.s.withCourse(item)
	return &item, nil
}

func (r fakeCartRepo) Insert(ctx context.Context, item *models.CartItem) error {
	if err := r.s.fail("cart.Insert"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.enrollments[pairKey(item.UserID, item.CourseID)]; ok {
		return database.ErrConflict
	}
	for _, existing := range r.s.cart {
		if existing.UserID == item.UserID && existing.CourseID == item.CourseID {
			return database.ErrDuplicate
		}
	}
	r.s.cart[item.ID] = *item
	return nil
}

func (r fakeCartRepo) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.cart[itemID]
	if ok && item.UserID == userID {
		item.Quantity = quantity
		r.s.cart[itemID] = item
	}
	return nil
}

func (r fakeCartRepo) Delete(ctx context.Context, userID, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.cart[itemID]
	if !ok || item.UserID != userID {
		return database.ErrNotFound
	}
	delete(r.s.cart, itemID)
	return nil
}

func (r fakeCartRepo) Clear(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, item := range r.s.cart {
		if item.UserID == userID {
			delete(r.s.cart, id)
			removed++
		}
	}
	return removed, nil
}

type fakeEnrollmentRepo struct{ s *fakeStore }

func (r fakeEnrollmentRepo) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	if err := r.s.fail("enrollment.Exists"); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.enrollments[pairKey(userID, courseID)]
	return ok, nil
}

func (r fakeEnrollmentRepo) Get(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.enrollments[pairKey(userID, courseID)]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r fakeEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment, capacity *int) error {
	if err := r.s.fail("enrollment.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey(enrollment.UserID, enrollment.CourseID)
	if _, ok := r.s.enrollments[key]; ok {
		return database.ErrDuplicate
	}
	if capacity != nil {
		count := 0
		for _, e := range r.s.enrollments {
			if e.CourseID == enrollment.CourseID {
				count++
			}
		}
		if count >= *capacity {
			return database.ErrCapacityReached
		}
	}
	cp := *enrollment
	r.s.enrollments[key] = &cp
	for id, item := range r.s.cart {
		if item.UserID == enrollment.UserID && item.CourseID == enrollment.CourseID {
			delete(r.s.cart, id)
		}
	}
	return nil
}

func (r fakeEnrollmentRepo) AdvanceProgress(ctx context.Context, userID, courseID string, progress int, now time.Time) (*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.enrollments[pairKey(userID, courseID)]
	if !ok {
		return nil, database.ErrNotFound
	}
	e.Progress = max(e.Progress, progress)
	if e.Progress >= 100 && e.CompletedAt == nil {
		t := now
		e.CompletedAt = &t
	}
	cp := *e
	return &cp, nil
}

func (r fakeEnrollmentRepo) ListByUser(ctx context.Context, userID string, status models.EnrollmentStatus, page models.PageRequest) ([]models.EnrolledCourse, int, error) {
	if err := r.s.fail("enrollment.ListByUser"); err != nil {
		return nil, 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	courses := []models.EnrolledCourse{}
	for _, e := range r.s.enrollments {
		if e.UserID != userID {
			continue
		}
		if status == models.EnrollmentStatusInProgress && (e.Progress == 0 || e.Progress == 100) {
			continue
		}
		if status == models.EnrollmentStatusCompleted && e.Progress != 100 {
			continue
		}
		courses = append(courses, models.EnrolledCourse{ID: e.CourseID, Progress: e.Progress, EnrolledDate: e.EnrolledAt})
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	total := len(courses)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return courses[start:end], total, nil
}

type fakeProgressRepo struct{ s *fakeStore }

func (r fakeProgressRepo) ListByEnrollment(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := []models.LessonProgress{}
	for _, lp := range r.s.progress[pairKey(userID, courseID)] {
		rows = append(rows, lp)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].LessonID < rows[j].LessonID })
	return rows, nil
}

func (r fakeProgressRepo) Save(ctx context.Context, update models.LessonProgressUpdate, now time.Time) (*models.LessonProgress, int, error) {
	if err := r.s.fail("progress.Save"); err != nil {
		return nil, 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey(update.UserID, update.CourseID)
	if r.s.progress[key] == nil {
		r.s.progress[key] = make(map[string]models.LessonProgress)
	}
	lp := r.s.progress[key][update.LessonID]
	lp.LessonID = update.LessonID
	lp.Completed = lp.Completed || update.Completed
	lp.TimeSpent += update.TimeSpent
	lp.WatchedDuration = max(lp.WatchedDuration, update.WatchedDuration)
	if lp.Completed && lp.CompletedAt == nil {
		t := now
		lp.CompletedAt = &t
	}
	lp.UpdatedAt = now
	r.s.progress[key][update.LessonID] = lp

	course := r.s.courses[update.CourseID]
	completed := 0
	for lessonID, row := range r.s.progress[key] {
		if row.Completed && course != nil && course.HasLesson(lessonID) {
			completed++
		}
	}
	return &lp, completed, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu        sync.Mutex
	created   []models.Enrollment
	completed []models.Enrollment
	err       error
}

func (p *recordingPublisher) EnrollmentCreated(ctx context.Context, e models.Enrollment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *recordingPublisher) CourseCompleted(ctx context.Context, e models.Enrollment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, e)
	return p.err
}

// staticIndex serves a fixed catalog snapshot
type staticIndex struct {
	snap *catalog.Snapshot
	err  error
}

func (i staticIndex) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	return i.snap, i.err
}

// testEnv wires every service against one fake store
type testEnv struct {
	store      *fakeStore
	events     *recordingPublisher
	locks      *keylock.Locker
	catalog    *catalogService
	cart       *cartService
	enrollment *enrollmentService
	progress   *progressService
}

func newTestEnv(courses ...models.Course) *testEnv {
	store := newFakeStore(courses...)
	events := &recordingPublisher{}
	locks := keylock.New()
	logger := zap.NewNop()

	courseRepo := fakeCourseRepo{s: store}
	enrollmentRepo := fakeEnrollmentRepo{s: store}

	return &testEnv{
		store:      store,
		events:     events,
		locks:      locks,
		catalog:    NewCatalogService(courseRepo, enrollmentRepo, logger),
		cart:       NewCartService(fakeCartRepo{s: store}, courseRepo, enrollmentRepo, locks, NoDiscount{}, logger),
		enrollment: NewEnrollmentService(courseRepo, enrollmentRepo, CourseCapacityPolicy{}, events, locks, logger),
		progress:   NewProgressService(courseRepo, enrollmentRepo, fakeProgressRepo{s: store}, events, locks, logger),
	}
}

// testCourse builds a course with the given number of lessons in one section
func testCourse(title string, price int64, lessons int) models.Course {
	c := models.Course{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "About " + title,
		Price:       price,
		Level:       models.LevelBeginner,
		Category:    "Programming",
		Instructor:  models.Instructor{Name: "Jane Doe"},
		Rating:      4.5,
		LastUpdated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Skills:      []string{},
	}
	section := models.Section{ID: 1, Title: "Main", Lessons: []models.Lesson{}}
	for n := 0; n < lessons; n++ {
		section.Lessons = append(section.Lessons, models.Lesson{ID: uuid.NewString(), Title: "Lesson", Duration: 60})
	}
	c.Curriculum = []models.Section{section}
	c.TotalLessons = lessons
	return c
}
