package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) tbl() *courseTable {
	return repo.db.course
}

// query returns copies of all courses in insertion order. The caller must hold the lock.
func (repo *courseRepository) query() []course.Course {
	tbl := repo.tbl()
	courses := make([]course.Course, 0, len(tbl.ids))
	for _, id := range tbl.ids {
		courses = append(courses, copyCourse(*tbl.table[id]))
	}
	return courses
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	c.ID = newID()
	c = copyCourse(c)
	tbl.table[c.ID] = &c
	tbl.ids = append(tbl.ids, c.ID)
	return copyCourse(c), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.query() {
		if filter.Match(c) {
			courses = append(courses, c)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		return orderingLess(ordering, func(field string) int {
			switch field {
			case "name":
				return compareStrings(strings.ToLower(a.Name), strings.ToLower(b.Name))
			case "level":
				return compareStrings(a.Level, b.Level)
			case "price":
				return compareFloats(a.Price, b.Price)
			case "rating":
				return compareFloats(a.Rating, b.Rating)
			case "purchased":
				return compareFloats(float64(a.Purchased), float64(b.Purchased))
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt)
			case "updated_at":
				return compareTimes(a.UpdatedAt, b.UpdatedAt)
			}
			return 0
		})
	})
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	if c, ok := tbl.table[id]; ok {
		return copyCourse(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	orig, ok := tbl.table[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	c.Purchased = orig.Purchased // only changed by orderRepository.PurchaseCourse
	c = copyCourse(c)
	tbl.table[c.ID] = &c
	return copyCourse(c), nil
}

func (repo *courseRepository) DeleteCourses(ctx context.Context, ids ...string) (int, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := tbl.table[id]; ok {
			delete(tbl.table, id)
			removed[id] = struct{}{}
		}
	}
	tbl.ids = removeIDs(tbl.ids, removed)
	return len(removed), nil
}

func copyCourse(c course.Course) course.Course {
	if c.Categories != nil {
		c.Categories = append(course.Labels(nil), c.Categories...)
	}
	if c.Tags != nil {
		c.Tags = append(course.Labels(nil), c.Tags...)
	}
	return c
}
