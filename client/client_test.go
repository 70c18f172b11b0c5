package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/catalog"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/layout"
	"github.com/trezcool/elimu/core/order"
)

// fakeAPI counts the requests received per "METHOD path".
type fakeAPI struct {
	mu    sync.Mutex
	hits  map[string]int
	auths []string
	holds map[string]func() // run once, before replying to the next "METHOD path" request
}

func (api *fakeAPI) holdNext(key string, hold func()) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.holds == nil {
		api.holds = make(map[string]func())
	}
	api.holds[key] = hold
}

func (api *fakeAPI) count(key string) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.hits[key]
}

func (api *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	api.mu.Lock()
	api.hits[key]++
	api.auths = append(api.auths, r.Header.Get("Authorization"))
	hold := api.holds[key]
	delete(api.holds, key)
	api.mu.Unlock()
	if hold != nil {
		hold()
	}

	reply := func(code int, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(data)
	}

	switch key {
	case "POST /v1/users/login":
		reply(http.StatusOK, map[string]string{"token": "jwt"})
	case "GET /v1/catalog":
		reply(http.StatusOK, catalog.Catalog{
			Categories: []string{catalog.AllCategories, "Programming"},
			Courses:    []course.Course{{ID: "1", Name: "Go", Categories: course.Labels{"Programming"}}},
		})
	case "GET /v1/catalog/categories":
		reply(http.StatusOK, []string{catalog.AllCategories, "Programming"})
	case "GET /v1/courses":
		reply(http.StatusOK, []course.Course{{ID: "1", Name: "Go"}})
	case "GET /v1/courses/1":
		reply(http.StatusOK, course.Course{ID: "1", Name: "Go"})
	case "POST /v1/courses":
		var nc course.NewCourse
		if err := json.NewDecoder(r.Body).Decode(&nc); err != nil || nc.Name == "" {
			reply(http.StatusBadRequest, map[string]string{"name": "this field is required"})
			return
		}
		reply(http.StatusCreated, course.Course{ID: "2", Name: nc.Name})
	case "GET /v1/layouts/Categories":
		reply(http.StatusOK, layout.Layout{ID: "l1", Type: layout.TypeCategories})
	case "PUT /v1/layouts/Categories":
		reply(http.StatusOK, layout.Layout{ID: "l1", Type: layout.TypeCategories, Categories: []layout.Category{{Title: "Data"}}})
	case "POST /v1/orders":
		reply(http.StatusCreated, order.Order{ID: "o1", CourseID: "1"})
	case "GET /v1/orders":
		reply(http.StatusOK, []order.Invoice{})
	default:
		reply(http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func setup(t *testing.T, conf core.CatalogConfig) (*Client, *fakeAPI) {
	api := &fakeAPI{hits: make(map[string]int)}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", conf, srv.Client())
	require.NoError(t, err)
	return c, api
}

func TestClient_cache(t *testing.T) {
	c, api := setup(t, core.CatalogConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cat, err := c.Catalog(ctx, catalog.FilterState{Category: "Programming"})
		require.NoError(t, err)
		assert.Equal(t, []string{catalog.AllCategories, "Programming"}, cat.Categories)
		if assert.Len(t, cat.Courses, 1) {
			assert.Equal(t, "Go", cat.Courses[0].Name)
		}
	}
	assert.Equal(t, 1, api.count("GET /v1/catalog"))

	// a different filter is a different URL
	_, err := c.Catalog(ctx, catalog.FilterState{Search: "go"})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET /v1/catalog"))

	_, err = c.Course(ctx, "1")
	require.NoError(t, err)
	_, err = c.Course(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("GET /v1/courses/1"))
}

func TestClient_cacheTTL(t *testing.T) {
	c, api := setup(t, core.CatalogConfig{CacheSize: 8, CacheTTL: time.Minute})
	ctx := context.Background()

	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Categories(ctx)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	_, err = c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("GET /v1/catalog/categories"))

	now = now.Add(time.Minute)
	categories, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.AllCategories, "Programming"}, categories)
	assert.Equal(t, 2, api.count("GET /v1/catalog/categories"))
}

func TestClient_invalidation(t *testing.T) {
	ctx := context.Background()

	warm := func(t *testing.T, c *Client) {
		_, err := c.Catalog(ctx, catalog.FilterState{})
		require.NoError(t, err)
		_, err = c.Courses(ctx, course.QueryFilter{})
		require.NoError(t, err)
		_, err = c.Layout(ctx, layout.TypeCategories)
		require.NoError(t, err)
		_, err = c.Invoices(ctx, order.QueryFilter{})
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		mutate func(c *Client) error
		// requests expected per endpoint after warming twice
		want map[string]int
	}{
		{
			name: "create course",
			mutate: func(c *Client) error {
				_, err := c.CreateCourse(ctx, course.NewCourse{Name: "React"})
				return err
			},
			want: map[string]int{"GET /v1/catalog": 2, "GET /v1/courses": 2, "GET /v1/layouts/Categories": 1, "GET /v1/orders": 1},
		},
		{
			name: "create course failed",
			mutate: func(c *Client) error {
				_, err := c.CreateCourse(ctx, course.NewCourse{})
				var httpErr *HTTPError
				if assert.True(t, errors.As(err, &httpErr)) {
					assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
				}
				return nil
			},
			want: map[string]int{"GET /v1/catalog": 2, "GET /v1/courses": 2, "GET /v1/layouts/Categories": 1, "GET /v1/orders": 1},
		},
		{
			name: "edit layout",
			mutate: func(c *Client) error {
				l, err := c.EditLayout(ctx, layout.TypeCategories, layout.Content{Categories: []layout.Category{{Title: "Data"}}})
				if err == nil {
					assert.Equal(t, []layout.Category{{Title: "Data"}}, l.Categories)
				}
				return err
			},
			want: map[string]int{"GET /v1/catalog": 2, "GET /v1/courses": 1, "GET /v1/layouts/Categories": 2, "GET /v1/orders": 1},
		},
		{
			name: "create order",
			mutate: func(c *Client) error {
				o, err := c.CreateOrder(ctx, "1")
				if err == nil {
					assert.Equal(t, "o1", o.ID)
				}
				return err
			},
			want: map[string]int{"GET /v1/catalog": 2, "GET /v1/courses": 2, "GET /v1/layouts/Categories": 1, "GET /v1/orders": 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api := setup(t, core.CatalogConfig{})
			warm(t, c)
			require.NoError(t, tt.mutate(c))
			warm(t, c)

			for key, want := range tt.want {
				assert.Equal(t, want, api.count(key), key)
			}
		})
	}
}

func TestClient_invalidationDuringFetch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		invalidate func(c *Client) error
	}{
		{
			name: "create course",
			invalidate: func(c *Client) error {
				_, err := c.CreateCourse(ctx, course.NewCourse{Name: "React"})
				return err
			},
		},
		{
			name: "new token",
			invalidate: func(c *Client) error {
				c.SetToken("other")
				return nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api := setup(t, core.CatalogConfig{})

			arrived, release := make(chan struct{}), make(chan struct{})
			api.holdNext("GET /v1/courses", func() {
				close(arrived)
				<-release
			})

			done := make(chan error, 1)
			go func() {
				_, err := c.Courses(ctx, course.QueryFilter{})
				done <- err
			}()
			<-arrived
			require.NoError(t, tt.invalidate(c))
			close(release)
			require.NoError(t, <-done)

			// the response fetched before the invalidation was not cached
			_, err := c.Courses(ctx, course.QueryFilter{})
			require.NoError(t, err)
			assert.Equal(t, 2, api.count("GET /v1/courses"))

			_, err = c.Courses(ctx, course.QueryFilter{})
			require.NoError(t, err)
			assert.Equal(t, 2, api.count("GET /v1/courses"))
		})
	}
}

func TestClient_HTTPError(t *testing.T) {
	c, api := setup(t, core.CatalogConfig{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Layout(ctx, "Footer")
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, `404 Not Found: {"error":"not found"}`, httpErr.Error())
	}
	assert.Equal(t, 2, api.count("GET /v1/layouts/Footer")) // errors are not cached
}

func TestClient_Login(t *testing.T) {
	c, api := setup(t, core.CatalogConfig{})
	ctx := context.Background()

	_, err := c.Courses(ctx, course.QueryFilter{})
	require.NoError(t, err)

	token, err := c.Login(ctx, "jdoe", "pwd")
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)

	// the cache is reset for the new user
	_, err = c.Courses(ctx, course.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET /v1/courses"))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"", "", "Bearer jwt"}, api.auths)
}
