package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) tbl() *userTable {
	return repo.db.user
}

// query returns copies of all users in insertion order. The caller must hold the lock.
func (repo *userRepository) query() []user.User {
	tbl := repo.tbl()
	users := make([]user.User, 0, len(tbl.ids))
	for _, id := range tbl.ids {
		users = append(users, copyUser(*tbl.table[id]))
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = struct{}{}
	}

	for _, usr := range repo.query() {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	usr.ID = newID()
	usr = copyUser(usr)
	tbl.table[usr.ID] = &usr
	tbl.ids = append(tbl.ids, usr.ID)
	return copyUser(usr), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter.Match(usr) {
			users = append(users, usr)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		return orderingLess(ordering, func(field string) int {
			switch field {
			case "name":
				return compareStrings(strings.ToLower(a.Name), strings.ToLower(b.Name))
			case "username":
				return compareStrings(a.Username, b.Username)
			case "email":
				return compareStrings(a.Email, b.Email)
			case "is_active":
				return compareBools(a.IsActive != nil && *a.IsActive, b.IsActive != nil && *b.IsActive)
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt)
			case "last_login":
				return compareTimes(a.LastLogin, b.LastLogin)
			}
			return 0
		})
	})
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	if filter.ID != "" {
		if usr, ok := tbl.table[filter.ID]; ok {
			return copyUser(*usr), nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.UsernameOrEmail != "" {
		for _, usr := range repo.query() {
			if usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	usr = copyUser(usr)
	tbl.table[usr.ID] = &usr
	return copyUser(usr), nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) (int, error) {
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

// copyUser detaches the slices of usr from the stored record.
func copyUser(usr user.User) user.User {
	if usr.Roles != nil {
		usr.Roles = append([]string(nil), usr.Roles...)
	}
	if usr.Courses != nil {
		usr.Courses = append([]string(nil), usr.Courses...)
	}
	if usr.IsActive != nil {
		active := *usr.IsActive
		usr.IsActive = &active
	}
	return usr
}
