// Package catalog builds the storefront view of the courses: the category chips and the visible courses.
package catalog

import (
	"strings"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/layout"
)

// AllCategories is the category label that matches every course.
const AllCategories = "All"

// AggregateCategories merges the curated categories and the categories carried by the courses
// into a list of unique labels prefixed by AllCategories.
// Curated labels come first, then course labels in course order. Labels are compared exactly.
func AggregateCategories(curated []layout.Category, courses []course.Course) []string {
	labels := make([]string, 0, len(curated)+len(courses)+1)
	labels = append(labels, AllCategories)
	for _, cat := range curated {
		labels = append(labels, strings.TrimSpace(cat.Title))
	}
	for _, c := range courses {
		for _, label := range c.Categories {
			labels = append(labels, strings.TrimSpace(label))
		}
	}
	return core.UniqueStrings(labels...)
}

// FilterCourses returns the courses that belong to `category` and match `search`, in their original order.
// AllCategories matches every course, an empty search matches every course.
func FilterCourses(courses []course.Course, category, search string) []course.Course {
	search = strings.ToLower(search)
	filtered := make([]course.Course, 0, len(courses))
	for _, c := range courses {
		if category != AllCategories && !c.HasCategory(category) {
			continue
		}
		if !c.MatchesSearch(search) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}
