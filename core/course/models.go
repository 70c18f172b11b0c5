package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

// Levels
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelExpert       = "Expert"
)

var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}

type Course struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    null.String  `json:"description"`
	Categories     Labels       `json:"categories"`
	Tags           Labels       `json:"tags"`
	Level          string       `json:"level"`
	Price          float64      `json:"price"`
	EstimatedPrice null.Float64 `json:"estimated_price"`
	Thumbnail      null.String  `json:"thumbnail"`
	DemoURL        null.String  `json:"demo_url"`
	Rating         float64      `json:"rating"`
	Purchased      int          `json:"purchased"`
	CreatedAt      time.Time    `json:"created_at"` // UTC
	UpdatedAt      time.Time    `json:"updated_at"` // UTC
}

// HasCategory reports whether the course carries a category exactly equal to `label`.
func (c Course) HasCategory(label string) bool {
	return c.Categories.Contains(label)
}

// MatchesSearch does a case-insensitive substring match of `search` on
// Name, Description, Tags and Categories. Absent fields are skipped.
func (c Course) MatchesSearch(search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	if core.ContainsFold(c.Name, search) {
		return true
	}
	if c.Description.Valid && core.ContainsFold(c.Description.String, search) {
		return true
	}
	return c.Tags.ContainsFold(search) || c.Categories.ContainsFold(search)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name           string       `json:"name" validate:"required,notblank"`
	Description    null.String  `json:"description"`
	Categories     Labels       `json:"categories"`
	Tags           Labels       `json:"tags"`
	Level          string       `json:"level" validate:"omitempty,courselevel"`
	Price          float64      `json:"price" validate:"gte=0"`
	EstimatedPrice null.Float64 `json:"estimated_price"`
	Thumbnail      null.String  `json:"thumbnail"`
	DemoURL        null.String  `json:"demo_url"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Level = core.CleanString(nc.Level)
	nc.Description = cleanNullString(nc.Description)
	nc.Thumbnail = cleanNullString(nc.Thumbnail)
	nc.DemoURL = cleanNullString(nc.DemoURL)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Nil fields are left untouched.
type UpdateCourse struct {
	Name           *string      `json:"name" validate:"omitempty,min=1,notblank"`
	Description    null.String  `json:"description"`
	Categories     *Labels      `json:"categories"`
	Tags           *Labels      `json:"tags"`
	Level          *string      `json:"level" validate:"omitempty,courselevel"`
	Price          *float64     `json:"price" validate:"omitempty,gte=0"`
	EstimatedPrice null.Float64 `json:"estimated_price"`
	Thumbnail      null.String  `json:"thumbnail"`
	DemoURL        null.String  `json:"demo_url"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Level != nil {
		lvl := core.CleanString(*uc.Level)
		uc.Level = &lvl
	}
	uc.Description = cleanNullString(uc.Description)
	uc.Thumbnail = cleanNullString(uc.Thumbnail)
	uc.DemoURL = cleanNullString(uc.DemoURL)
	if err := validate.Struct(uc); err != nil {
		return err
	}

	// cleaned last: a set name must not be blank
	if uc.Name != nil {
		name := core.CleanString(*uc.Name)
		uc.Name = &name
	}
	return nil
}

// apply merges the set fields of uc into c.
func (uc UpdateCourse) apply(c Course) Course {
	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Description.Valid {
		c.Description = uc.Description
	}
	if uc.Categories != nil {
		c.Categories = *uc.Categories
	}
	if uc.Tags != nil {
		c.Tags = *uc.Tags
	}
	if uc.Level != nil {
		c.Level = *uc.Level
	}
	if uc.Price != nil {
		c.Price = *uc.Price
	}
	if uc.EstimatedPrice.Valid {
		c.EstimatedPrice = uc.EstimatedPrice
	}
	if uc.Thumbnail.Valid {
		c.Thumbnail = uc.Thumbnail
	}
	if uc.DemoURL.Valid {
		c.DemoURL = uc.DemoURL
	}
	return c
}

type QueryFilter struct {
	Search   string `query:"search"`
	Level    string `query:"level"`
	Category string `query:"category"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Level == "" && qf.Category == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = core.CleanString(qf.Level)
	qf.Category = core.CleanString(qf.Category)
}

// Match applies AND operation on available QueryFilter fields.
func (qf *QueryFilter) Match(c Course) bool {
	if qf == nil {
		return true
	}
	if qf.Level != "" && c.Level != qf.Level {
		return false
	}
	if qf.Category != "" && !c.HasCategory(qf.Category) {
		return false
	}
	return c.MatchesSearch(qf.Search)
}

func cleanNullString(s null.String) null.String {
	if !s.Valid {
		return s
	}
	v := core.CleanString(s.String)
	return null.NewString(v, v != "")
}
