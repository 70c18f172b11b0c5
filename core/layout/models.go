package layout

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

// Types
const (
	TypeBanner     = "Banner"
	TypeFAQ        = "FAQ"
	TypeCategories = "Categories"
)

var Types = []string{TypeBanner, TypeFAQ, TypeCategories}

type (
	// Layout is a singleton landing-page content record. Only the field matching Type is set.
	Layout struct {
		ID         string     `json:"id"`
		Type       string     `json:"type"`
		Banner     *Banner    `json:"banner,omitempty"`
		FAQ        []FAQItem  `json:"faq,omitempty"`
		Categories []Category `json:"categories,omitempty"`
		CreatedAt  time.Time  `json:"created_at"` // UTC
		UpdatedAt  time.Time  `json:"updated_at"` // UTC
	}

	Banner struct {
		Image    string `json:"image"`
		Title    string `json:"title" validate:"required"`
		SubTitle string `json:"subtitle"`
	}

	FAQItem struct {
		Question string `json:"question" validate:"required"`
		Answer   string `json:"answer" validate:"required"`
	}

	// Category is a curated catalog category.
	Category struct {
		Title string `json:"title"`
	}
)

// Content holds the type specific content of a Layout.
type Content struct {
	Banner     *Banner    `json:"banner"`
	FAQ        []FAQItem  `json:"faq" validate:"omitempty,dive"`
	Categories []Category `json:"categories"`
}

// NewLayout contains information needed to create a new Layout.
type NewLayout struct {
	Type string `json:"type" validate:"required,layouttype"`
	Content
}

func (nl *NewLayout) Validate(validate *validator.Validate) error {
	nl.Type = core.CleanString(nl.Type)
	nl.Content.clean()
	return validate.Struct(nl)
}

// UpdateLayout defines what information may be provided to replace the content of an existing Layout.
type UpdateLayout struct {
	Type string `json:"-"`
	Content
}

func (ul *UpdateLayout) Validate(validate *validator.Validate) error {
	ul.Content.clean()
	return validate.Struct(ul)
}

func (c *Content) clean() {
	if c.Banner != nil {
		c.Banner.Image = core.CleanString(c.Banner.Image)
		c.Banner.Title = core.CleanString(c.Banner.Title)
		c.Banner.SubTitle = core.CleanString(c.Banner.SubTitle)
	}
	for i := range c.FAQ {
		c.FAQ[i].Question = core.CleanString(c.FAQ[i].Question)
		c.FAQ[i].Answer = core.CleanString(c.FAQ[i].Answer)
	}
	cats := make([]Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Title = core.CleanString(cat.Title); cat.Title != "" {
			cats = append(cats, cat)
		}
	}
	c.Categories = cats
}

// apply sets the content matching `typ` on l, dropping the others.
func (c Content) apply(typ string, l Layout) Layout {
	l.Type = typ
	l.Banner, l.FAQ, l.Categories = nil, nil, nil
	switch typ {
	case TypeBanner:
		l.Banner = c.Banner
	case TypeFAQ:
		l.FAQ = c.FAQ
	case TypeCategories:
		l.Categories = c.Categories
	}
	return l
}
