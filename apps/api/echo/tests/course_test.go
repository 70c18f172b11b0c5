package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func TestCourseAPI_query(t *testing.T) {
	db.Reset()
	now := time.Now()
	goLang := testutil.CreateCourse(t, courseRepo, "Go Basics", "Learn Go", "Programming, Backend", "go,beginner", course.LevelBeginner, 10, now.Add(-3*time.Hour))
	react := testutil.CreateCourse(t, courseRepo, "React", "", "Programming,Frontend", "js", course.LevelIntermediate, 30, now.Add(-2*time.Hour))
	sql := testutil.CreateCourse(t, courseRepo, "SQL", "Databases for everyone", "Data", "", course.LevelBeginner, 20, now.Add(-time.Hour))

	tests := []httpTest{
		{name: "all", wantCode: http.StatusOK, wantData: marchallList(t, goLang, react, sql)},
		{name: "category", path: "?category=Programming", wantCode: http.StatusOK, wantData: marchallList(t, goLang, react)},
		{name: "category is exact", path: "?category=Program", wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "level", path: "?level=Beginner", wantCode: http.StatusOK, wantData: marchallList(t, goLang, sql)},
		{name: "search tags", path: "?search=JS", wantCode: http.StatusOK, wantData: marchallList(t, react)},
		{name: "search description", path: "?search=everyone", wantCode: http.StatusOK, wantData: marchallList(t, sql)},
		{name: "search categories", path: "?search=end", wantCode: http.StatusOK, wantData: marchallList(t, goLang, react)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/courses"+tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	orderings := []httpTest{
		{name: "default", wantCode: http.StatusOK, wantData: marchallList(t, sql, react, goLang)},
		{name: "price desc", path: "?ordering=-price", wantCode: http.StatusOK, wantData: marchallList(t, react, sql, goLang)},
		{name: "level then name", path: "?ordering=level,-name", wantCode: http.StatusOK, wantData: marchallList(t, sql, goLang, react)},
	}
	for _, tt := range orderings {
		t.Run("ordering "+tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/courses"+tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndOrderedData(t, tt, rec)
		})
	}
}

func TestCourseAPI_queryLevels(t *testing.T) {
	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, course.Levels)}
	req, rec := newRequest(http.MethodGet, "/v1/courses/levels")
	app.ServeHTTP(rec, req)
	checkCodeAndOrderedData(t, tt, rec)
}

func TestCourseAPI_retrieve(t *testing.T) {
	db.Reset()
	c := testutil.CreateCourse(t, courseRepo, "Go Basics", "Learn Go", "Programming", "go", course.LevelBeginner, 10)

	tests := []httpTest{
		{name: "found", path: c.ID, wantCode: http.StatusOK, wantData: marchallObj(t, c)},
		{name: "not found", path: "unknown", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: course.ErrNotFound.Error()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/courses/"+tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestCourseAPI_create(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	adminToken := getToken(t, conf, admin)

	tests := []httpTest{
		{name: "unauthed", body: []byte(`{}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student", body: []byte(`{}`), token: getToken(t, conf, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name:     "invalid",
			body:     []byte(`{"name": "  ", "level": "Guru", "price": -1}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field is required", "level": "level must be one of: Beginner, Intermediate, Advanced, Expert", "price": "price must be 0 or greater"}`),
		},
		{
			name:     "invalid labels",
			body:     []byte(`{"name": "Go", "categories": 42}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			extra:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/courses", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if tt.extra != nil {
				assert.Equal(t, tt.wantCode, rec.Code)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	for _, body := range []string{
		`{"name": " Go Basics ", "categories": "Programming, Backend ,", "tags": ["go", " beginner "], "level": "Beginner", "price": 10}`,
		`{"name": "Go Basics", "categories": ["Programming", "Backend"], "tags": "go,beginner", "level": "Beginner", "price": 10}`,
	} {
		t.Run("created", func(t *testing.T) {
			db.Reset()
			admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)

			req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, conf, admin), []byte(body))
			app.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusCreated, rec.Code)

			courses, err := courseRepo.QueryCourses(req.Context(), nil, nil)
			if assert.NoError(t, err) && assert.Len(t, courses, 1) {
				c := courses[0]
				assert.Equal(t, "Go Basics", c.Name)
				assert.Equal(t, course.Labels{"Programming", "Backend"}, c.Categories)
				assert.Equal(t, course.Labels{"go", "beginner"}, c.Tags)
				assert.Equal(t, course.LevelBeginner, c.Level)
				assert.Equal(t, 0, c.Purchased)
			}
		})
	}
}

func TestCourseAPI_update(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	c := testutil.CreateCourse(t, courseRepo, "Go Basics", "Learn Go", "Programming", "go", course.LevelBeginner, 10)
	adminToken := getToken(t, conf, admin)

	tests := []httpTest{
		{name: "unauthed", path: c.ID, body: []byte(`{}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name:     "not found",
			path:     "unknown",
			body:     []byte(`{"name": "Go"}`),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
		{
			name:     "blank name",
			path:     c.ID,
			body:     []byte(`{"name": " "}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field cannot be blank"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("updated", func(t *testing.T) {
		body := []byte(`{"price": 15, "categories": "Programming, Go"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+c.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		got, err := courseRepo.GetCourse(req.Context(), c.ID)
		if assert.NoError(t, err) {
			assert.Equal(t, "Go Basics", got.Name)
			assert.Equal(t, 15.0, got.Price)
			assert.Equal(t, course.Labels{"Programming", "Go"}, got.Categories)
			assert.Equal(t, course.Labels{"go"}, got.Tags)
		}
	})
}

func TestCourseAPI_destroy(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	c1 := testutil.CreateCourse(t, courseRepo, "Go", "", "Programming", "", course.LevelBeginner, 10)
	c2 := testutil.CreateCourse(t, courseRepo, "SQL", "", "Data", "", course.LevelBeginner, 10)
	c3 := testutil.CreateCourse(t, courseRepo, "React", "", "Programming", "", course.LevelBeginner, 10)
	adminToken := getToken(t, conf, admin)

	req, rec := newAuthRequest(http.MethodDelete, "/v1/courses/unknown", adminToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
	}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+c1.ID, adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses?id="+c2.ID+"&id=unknown", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	courses, err := courseRepo.QueryCourses(req.Context(), nil, nil)
	if assert.NoError(t, err) {
		assert.Equal(t, []course.Course{c3}, courses)
	}
}
