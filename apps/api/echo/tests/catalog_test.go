package tests

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/trezcool/elimu/core/catalog"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/tests"
)

func TestCatalogAPI(t *testing.T) {
	db.Reset()
	now := time.Now()
	_ = testutil.CreateCategoriesLayout(t, layoutRepo, "Programming", " Data ", "Design")
	goLang := testutil.CreateCourse(t, courseRepo, "Go Basics", "Learn Go", "Programming, Backend", "go", course.LevelBeginner, 10, now.Add(-3*time.Hour))
	react := testutil.CreateCourse(t, courseRepo, "React", "", "Frontend,Programming", "js", course.LevelIntermediate, 30, now.Add(-2*time.Hour))
	sql := testutil.CreateCourse(t, courseRepo, "SQL", "Databases for everyone", "Data", "", course.LevelBeginner, 20, now.Add(-time.Hour))

	// courses are listed newest first
	categories := []string{catalog.AllCategories, "Programming", "Data", "Design", "Frontend", "Backend"}

	tests := []httpTest{
		{
			name:     "no filter",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{sql, react, goLang}}),
		},
		{
			name:     "category",
			path:     "?category=Programming",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{react, goLang}}),
		},
		{
			name:     "all category",
			path:     "?category=All",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{sql, react, goLang}}),
		},
		{
			name:     "category is case sensitive",
			path:     "?category=programming",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{}}),
		},
		{
			name:     "curated category without course",
			path:     "?category=Design",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{}}),
		},
		{
			name:     "title search",
			path:     "?title=GO",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{goLang}}),
		},
		{
			name:     "category and title search",
			path:     "?category=Programming&title=" + url.QueryEscape("end"),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{react, goLang}}),
		},
		{
			name:     "title search on description",
			path:     "?title=" + url.QueryEscape("for every"),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, catalog.Catalog{Categories: categories, Courses: []course.Course{sql}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/catalog"+tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndOrderedData(t, tt, rec)
		})
	}

	t.Run("categories", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, categories)}
		req, rec := newRequest(http.MethodGet, "/v1/catalog/categories")
		app.ServeHTTP(rec, req)
		checkCodeAndOrderedData(t, tt, rec)
	})
}

func TestCatalogAPI_noCuratedCategories(t *testing.T) {
	db.Reset()
	c := testutil.CreateCourse(t, courseRepo, "Go Basics", "", "Programming", "", course.LevelBeginner, 10)

	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, catalog.Catalog{
			Categories: []string{catalog.AllCategories, "Programming"},
			Courses:    []course.Course{c},
		}),
	}
	req, rec := newRequest(http.MethodGet, "/v1/catalog")
	app.ServeHTTP(rec, req)
	checkCodeAndOrderedData(t, tt, rec)
}
