package pgrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

const userColumns = `id, name, username, email, is_active, roles, courses, password_hash, created_at, updated_at, last_login`

var userOrderColumns = map[string]string{
	"name":       "lower(name)",
	"username":   "username",
	"email":      "email",
	"is_active":  "is_active",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	Courses      pq.StringArray `db:"courses"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) toRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive == nil || *usr.IsActive,
		Roles:        pq.StringArray(usr.Roles),
		Courses:      pq.StringArray(usr.Courses),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	if row.Courses == nil {
		row.Courses = pq.StringArray{}
	}
	return row
}

func (repo *userRepository) fromRow(row userRow) user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Roles:        []string(row.Roles),
		Courses:      []string(row.Courses),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.Time.UTC(),
		UpdatedAt:    row.UpdatedAt.Time.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	usr.SetActive(row.IsActive)
	return usr
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		if isValidID(u.ID) {
			excluded = append(excluded, u.ID)
		}
	}

	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM "user" WHERE (username = $1 OR email = $2) AND NOT (id = ANY($3::uuid[])) LIMIT 2`,
		null.NewString(username, username != ""), null.NewString(email, email != ""), pq.Array(excluded))
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO "user" (`+userColumns+`)
		VALUES (:id, :name, :username, :email, :is_active, :roles, :courses, :password_hash, :created_at, :updated_at, :last_login)`,
		row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var where whereBuilder

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			where.add(`(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`, likePattern(filter.Search))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, likePattern(role)[1:]) // prefix match
			}
			where.add(`EXISTS (SELECT 1 FROM unnest(roles) user_role WHERE user_role ILIKE ANY(?))`, pq.Array(patterns))
		}
		if filter.IsActive != nil {
			where.add(`is_active = ?`, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			where.add(`created_at >= ?`, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where.add(`created_at <= ?`, filter.CreatedTo.UTC())
		}
	}

	query := `SELECT ` + userColumns + ` FROM "user"` + where.String() +
		` ORDER BY ` + core.OrderBy(ordering, userOrderColumns, "created_at DESC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if !isValidID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, filter.ID)
	case filter.UsernameOrEmail != "":
		err = repo.db.GetContext(ctx, &row,
			`SELECT `+userColumns+` FROM "user" WHERE username = $1 OR email = $1 LIMIT 1`, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return repo.fromRow(row), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !isValidID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	row := repo.toRow(usr)
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE "user" SET name = :name, username = :username, email = :email, is_active = :is_active,
		roles = :roles, courses = :courses, password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.fromRow(row), nil
}

// addUserCourse appends courseID to the user's courses unless already there.
func addUserCourse(ctx context.Context, exec sqlx.ExecerContext, userID, courseID string) error {
	if !isValidID(userID) {
		return user.ErrNotFound
	}
	res, err := exec.ExecContext(ctx,
		`UPDATE "user" SET courses = CASE WHEN $2 = ANY(courses) THEN courses ELSE array_append(courses, $2) END
		WHERE id = $1`,
		userID, courseID)
	if err != nil {
		return errors.Wrap(err, "adding course to user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) (int, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting users")
}
