package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/layout"
	"github.com/trezcool/elimu/core/order"
	"github.com/trezcool/elimu/core/user"
	appfs "github.com/trezcool/elimu/fs"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
)

// NewConfig returns the app config in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	return conf
}

func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(conf, "TEST")
	logger.Enable(false)
	return logger
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every custom validation registered.
// Email templates and common passwords are loaded as well.
func NewValidator(conf *core.Config, logger core.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	layout.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, conf, logger)
	user.LoadCommonPasswords(appfs.FS, logger)
	return validate, translator
}

// OpenPostgres opens the test database and runs the migrations. The test is skipped when it is unreachable.
func OpenPostgres(t *testing.T, conf *core.Config) *sqlx.DB {
	if os.Getenv("TEST_POSTGRES") == "" {
		t.Skip("TEST_POSTGRES not set")
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	if err = database.Ping(db, 5); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ResetPostgres(t, db)
	return db
}

// ResetPostgres empties every table.
func ResetPostgres(t *testing.T, db *sqlx.DB) {
	if _, err := db.Exec(`TRUNCATE "order", course, layout, "user" CASCADE`); err != nil {
		t.Fatalf("ResetPostgres() failed: %v", err)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse stores a course. categories & tags are comma separated.
func CreateCourse(
	t *testing.T,
	repo course.Repository,
	name, description, categories, tags, level string,
	price float64,
	createdAt ...time.Time,
) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Name:        name,
		Description: null.NewString(description, description != ""),
		Categories:  course.ParseLabels(categories),
		Tags:        course.ParseLabels(tags),
		Level:       level,
		Price:       price,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

// CreateCategoriesLayout stores the Categories layout with the given titles.
func CreateCategoriesLayout(t *testing.T, repo layout.Repository, titles ...string) layout.Layout {
	cats := make([]layout.Category, 0, len(titles))
	for _, title := range titles {
		cats = append(cats, layout.Category{Title: title})
	}
	now := time.Now().UTC()
	l, err := repo.CreateLayout(context.Background(), layout.Layout{
		Type:       layout.TypeCategories,
		Categories: cats,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateCategoriesLayout() failed: %v", err)
	}
	return l
}

func CreateOrder(t *testing.T, repo order.Repository, usr user.User, c course.Course, createdAt ...time.Time) order.Order {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	o, err := repo.PurchaseCourse(context.Background(), order.Order{
		CourseID:  c.ID,
		UserID:    usr.ID,
		Price:     c.Price,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("PurchaseCourse() failed: %v", err)
	}
	return o
}
