package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

const userColumns = `id, name, username, email, phone, is_active, roles, password_hash, created_at, updated_at, last_login`

var userOrderings = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	Phone        string         `db:"phone"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{exec: db}
}

func (repo userRepository) toRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     nullString(usr.Username),
		Email:        nullString(usr.Email),
		Phone:        usr.Phone,
		IsActive:     usr.IsActive,
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    nullTime(usr.LastLogin),
	}
}

func (repo userRepository) fromRow(r userRow) user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		Phone:        r.Phone,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	w := new(where)
	w.add("(username = ? OR email = ?)", nullString(username), nullString(email))
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("NOT (id = ANY(CAST(? AS UUID[])))", pq.Array(ids))
	}

	var rows []userRow
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, selectQuery(userColumns, `"user"`, w, "")+" LIMIT 2", w.args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && r.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO "user" (` + userColumns + `) VALUES (:id, :name, :username, :email, :phone, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.toRow(usr)); err != nil {
		return user.User{}, trapErr(err, nil, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	w := new(where)
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, likePattern(role)[1:])
			}
			w.add("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role LIKE ANY(?))", pq.Array(patterns))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	q := selectQuery(userColumns, `"user"`, w, core.OrderBy(ordering, userOrderings, "created_at DESC"))
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.fromRow(r))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	w := new(where)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", strings.ToLower(filter.Email))
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, strings.ToLower(filter.UsernameOrEmail))
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, selectQuery(userColumns, `"user"`, w, "")+" LIMIT 1", w.args...); err != nil {
		return user.User{}, trapErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(r), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE "user" SET name = :name, username = :username, email = :email, phone = :phone, is_active = :is_active,
		roles = :roles, password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.toRow(usr))
	if err != nil {
		return user.User{}, trapErr(err, nil, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY(CAST($1 AS UUID[]))`, pq.Array(ids))
	if err != nil {
		return 0, trapErr(err, nil, "deleting users")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
