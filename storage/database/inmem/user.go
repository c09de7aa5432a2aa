package inmemdb

import (
	"context"
	"strings"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

var userOrderings = map[string]comparator[user.User]{
	"name":       func(a, b user.User) int { return strings.Compare(a.Name, b.Name) },
	"username":   func(a, b user.User) int { return strings.Compare(a.Username, b.Username) },
	"email":      func(a, b user.User) int { return strings.Compare(a.Email, b.Email) },
	"created_at": func(a, b user.User) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"last_login": func(a, b user.User) int { return cmpTime(a.LastLogin, b.LastLogin) },
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}

	for _, usr := range repo.db.user.filter(func(u user.User) bool { return !excluded[u.ID] }) {
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	if err := repo.CheckUsernameUniqueness(ctx, usr.Username, usr.Email, nil); err != nil {
		return user.User{}, core.NewConflictError(err.Error())
	}
	usr.ID = newID()
	usr.Roles = copyStrings(usr.Roles)
	repo.db.user.put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	users := repo.db.user.filter(func(u user.User) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(u.Name, filter.Search) &&
			!containsFold(u.Username, filter.Search) && !containsFold(u.Email, filter.Search) {
			return false
		}
		if len(filter.Roles) > 0 && !hasAnyRole(u, filter.Roles) {
			return false
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			return false
		}
		if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom) {
			return false
		}
		if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo) {
			return false
		}
		return true
	})
	sortRows(users, ordering, userOrderings, func(a, b user.User) int { return -cmpTime(a.CreatedAt, b.CreatedAt) })
	return users, nil
}

func hasAnyRole(u user.User, roles []string) bool {
	for _, role := range roles {
		if u.RoleStartsWith(role) {
			return true
		}
	}
	return false
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	if filter.ID != "" {
		if usr, ok := repo.db.user.get(filter.ID); ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	var match func(u user.User) bool
	switch {
	case filter.Username != "":
		match = func(u user.User) bool { return u.Username == filter.Username }
	case filter.Email != "":
		email := strings.ToLower(filter.Email)
		match = func(u user.User) bool { return u.Email == email }
	case filter.UsernameOrEmail != "":
		val := strings.ToLower(filter.UsernameOrEmail)
		match = func(u user.User) bool {
			return u.Username == filter.UsernameOrEmail || (u.Email != "" && u.Email == val)
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	if users := repo.db.user.filter(match); len(users) > 0 {
		return users[0], nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	usr.Roles = copyStrings(usr.Roles)
	if !repo.db.user.replace(usr.ID, usr) {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	var n int
	for _, id := range ids {
		if repo.db.user.delete(id) {
			n++
		}
	}
	return n, nil
}
