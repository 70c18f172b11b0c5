// Package client fetches storefront & admin data from the API.
// GET responses are cached by URL and invalidated by tag after mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/catalog"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/layout"
	"github.com/trezcool/elimu/core/order"
	"github.com/trezcool/elimu/core/user"
)

// Tag groups cached responses invalidated together.
type Tag string

// Tags
const (
	TagCourses Tag = "Courses"
	TagLayout  Tag = "Layout"
	TagCatalog Tag = "Catalog"
	TagOrders  Tag = "Orders"
	TagUsers   Tag = "Users"
)

const defaultCacheSize = 256

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (err *HTTPError) Error() string {
	body := strings.TrimSpace(string(err.Body))
	if body == "" {
		return fmt.Sprintf("%d %s", err.StatusCode, http.StatusText(err.StatusCode))
	}
	return fmt.Sprintf("%d %s: %s", err.StatusCode, http.StatusText(err.StatusCode), body)
}

type entry struct {
	body    []byte
	tags    []Tag
	expires time.Time // never when zero
}

func (e entry) hasTag(tags ...Tag) bool {
	for _, t := range tags {
		for _, et := range e.tags {
			if et == t {
				return true
			}
		}
	}
	return false
}

type Client struct {
	baseURL string
	httpc   *http.Client
	cache   *lru.Cache
	ttl     time.Duration
	now     func() time.Time // mockable

	mu    sync.RWMutex
	token string

	// genMu guards gens & epoch, and makes storing a response atomic with invalidations.
	genMu sync.Mutex
	gens  map[Tag]uint64 // bumped by Invalidate
	epoch uint64         // bumped by SetToken
}

// New returns a Client of the API at baseURL (e.g. http://localhost:8000).
// httpc defaults to http.DefaultClient when nil.
func New(baseURL string, conf core.CatalogConfig, httpc *http.Client) (*Client, error) {
	size := conf.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "creating response cache")
	}
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		cache:   cache,
		ttl:     conf.CacheTTL,
		now:     time.Now,
		gens:    make(map[Tag]uint64),
	}, nil
}

// SetToken sets the JWT sent with every request. Cached responses are dropped
// since they were fetched on behalf of the previous user.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.genMu.Lock()
	c.epoch++
	c.cache.Purge()
	c.genMu.Unlock()
}

func (c *Client) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Invalidate drops every cached response carrying one of the tags.
// Responses to requests already in flight are not cached either.
func (c *Client) Invalidate(tags ...Tag) {
	c.genMu.Lock()
	defer c.genMu.Unlock()

	for _, t := range tags {
		c.gens[t]++
	}
	for _, key := range c.cache.Keys() {
		if val, ok := c.cache.Peek(key); ok && val.(entry).hasTag(tags...) {
			c.cache.Remove(key)
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, dest interface{}) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.getToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}
	if dest != nil {
		if err = json.Unmarshal(data, dest); err != nil {
			return nil, errors.Wrap(err, "decoding response body")
		}
	}
	return data, nil
}

// get serves from the cache when possible, otherwise fetches & caches the response under tags.
func (c *Client) get(ctx context.Context, path string, query url.Values, dest interface{}, tags ...Tag) error {
	key := path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}

	if val, ok := c.cache.Get(key); ok {
		e := val.(entry)
		if e.expires.IsZero() || c.now().Before(e.expires) {
			return errors.Wrap(json.Unmarshal(e.body, dest), "decoding cached response")
		}
		c.cache.Remove(key)
	}

	gen := c.generation(tags)
	data, err := c.do(ctx, http.MethodGet, path, query, nil, dest)
	if err != nil {
		return err
	}
	e := entry{body: data, tags: tags}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}

	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.generationLocked(tags) == gen { // else invalidated while fetching
		c.cache.Add(key, e)
	}
	return nil
}

// generation changes whenever one of the tags is invalidated or the token changes.
// Counters only grow, so summing them is enough.
func (c *Client) generation(tags []Tag) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generationLocked(tags)
}

func (c *Client) generationLocked(tags []Tag) uint64 {
	gen := c.epoch
	for _, t := range tags {
		gen += c.gens[t]
	}
	return gen
}

// mutate sends a write request then invalidates the affected tags, even on failure.
func (c *Client) mutate(ctx context.Context, method, path string, payload, dest interface{}, tags ...Tag) error {
	defer c.Invalidate(tags...)
	_, err := c.do(ctx, method, path, nil, payload, dest)
	return err
}

// Login authenticates the user and keeps the returned token for next requests.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	payload := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/v1/users/login", nil, payload, &resp); err != nil {
		return "", err
	}
	c.SetToken(resp.Token)
	return resp.Token, nil
}

func (c *Client) Me(ctx context.Context) (user.User, error) {
	var usr user.User
	err := c.get(ctx, "/v1/users/me", nil, &usr, TagUsers)
	return usr, err
}

// Catalog returns the category chips & the courses matching filter.
func (c *Client) Catalog(ctx context.Context, filter catalog.FilterState) (catalog.Catalog, error) {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Search != "" {
		query.Set("title", filter.Search)
	}

	var cat catalog.Catalog
	err := c.get(ctx, "/v1/catalog", query, &cat, TagCatalog, TagCourses, TagLayout)
	return cat, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := c.get(ctx, "/v1/catalog/categories", nil, &categories, TagCatalog, TagCourses, TagLayout)
	return categories, err
}

func (c *Client) Courses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	query := url.Values{}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Level != "" {
		query.Set("level", filter.Level)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}

	var courses []course.Course
	err := c.get(ctx, "/v1/courses", query, &courses, TagCourses)
	return courses, err
}

func (c *Client) Course(ctx context.Context, id string) (course.Course, error) {
	var crs course.Course
	err := c.get(ctx, "/v1/courses/"+url.PathEscape(id), nil, &crs, TagCourses)
	return crs, err
}

func (c *Client) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	var crs course.Course
	err := c.mutate(ctx, http.MethodPost, "/v1/courses", nc, &crs, TagCourses, TagCatalog)
	return crs, err
}

func (c *Client) Layout(ctx context.Context, typ string) (layout.Layout, error) {
	var l layout.Layout
	err := c.get(ctx, "/v1/layouts/"+url.PathEscape(typ), nil, &l, TagLayout)
	return l, err
}

// EditLayout replaces the content of the layout of type typ.
func (c *Client) EditLayout(ctx context.Context, typ string, content layout.Content) (layout.Layout, error) {
	var l layout.Layout
	err := c.mutate(ctx, http.MethodPut, "/v1/layouts/"+url.PathEscape(typ), content, &l, TagLayout, TagCatalog)
	return l, err
}

// CreateOrder purchases the course for the logged in user, whose courses change too.
func (c *Client) CreateOrder(ctx context.Context, courseID string) (order.Order, error) {
	var o order.Order
	err := c.mutate(ctx, http.MethodPost, "/v1/orders", order.NewOrder{CourseID: courseID}, &o, TagOrders, TagCourses, TagCatalog, TagUsers)
	return o, err
}

func (c *Client) Invoices(ctx context.Context, filter order.QueryFilter) ([]order.Invoice, error) {
	query := url.Values{}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.UserID != "" {
		query.Set("user_id", filter.UserID)
	}
	if filter.CourseID != "" {
		query.Set("course_id", filter.CourseID)
	}

	var invoices []order.Invoice
	err := c.get(ctx, "/v1/orders", query, &invoices, TagOrders)
	return invoices, err
}
