package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
)

var userColumns = []string{
	"id", "name", "username", "email", "role", "branch_id", "is_active",
	"password_hash", "created_at", "updated_at", "last_login",
}

type dbUser struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     string      `db:"username"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	BranchID     null.String `db:"branch_id"`
	IsActive     bool        `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    int64       `db:"created_at"`
	UpdatedAt    int64       `db:"updated_at"`
	LastLogin    null.Int64  `db:"last_login"`
}

func toDBUser(usr user.User) dbUser {
	du := dbUser{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         string(usr.Role),
		BranchID:     null.NewString(usr.BranchID, usr.BranchID != ""),
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC().UnixMilli(),
		UpdatedAt:    usr.UpdatedAt.UTC().UnixMilli(),
	}
	if !usr.LastLogin.IsZero() {
		du.LastLogin = null.Int64From(usr.LastLogin.UTC().UnixMilli())
	}
	return du
}

func (du dbUser) toUser() user.User {
	usr := user.User{
		ID:           du.ID,
		Name:         du.Name,
		Username:     du.Username,
		Email:        du.Email,
		Role:         tenancy.Role(du.Role),
		BranchID:     du.BranchID.String,
		IsActive:     du.IsActive,
		PasswordHash: du.PasswordHash,
		CreatedAt:    time.UnixMilli(du.CreatedAt).UTC(),
		UpdatedAt:    time.UnixMilli(du.UpdatedAt).UTC(),
	}
	if du.LastLogin.Valid {
		usr.LastLogin = time.UnixMilli(du.LastLogin.Int64).UTC()
	}
	return usr
}

type userRepository struct {
	db core.DB
	sb sq.StatementBuilderType
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db core.DB) user.Repository {
	format := sq.PlaceholderFormat(sq.Question)
	if db.DriverName() == "postgres" {
		format = sq.Dollar
	}
	return &userRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	or := sq.Or{sq.Eq{"username": username}}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	b := repo.sb.Select("username", "email").From("users").Where(or)
	if len(excludedIDs) > 0 {
		b = b.Where(sq.NotEq{"id": excludedIDs})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "selecting users")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && r.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	du := toDBUser(usr)
	query, args, err := repo.sb.Insert("users").
		Columns(userColumns...).
		Values(du.ID, du.Name, du.Username, du.Email, du.Role, du.BranchID, du.IsActive,
			du.PasswordHash, du.CreatedAt, du.UpdatedAt, du.LastLogin).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return du.toUser(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, f user.GetFilter) (user.User, error) {
	b := repo.sb.Select(userColumns...).From("users").Limit(1)
	switch {
	case f.ID != "":
		b = b.Where(sq.Eq{"id": f.ID})
	case f.UsernameOrEmail != "":
		b = b.Where(sq.Or{sq.Eq{"username": f.UsernameOrEmail}, sq.Eq{"email": f.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}
	query, args, err := b.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var du dbUser
	if err := repo.db.GetContext(ctx, &du, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return du.toUser(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, f user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	b := repo.sb.Select(userColumns...).From("users")
	switch {
	case f.Scope.IsEmpty():
		return []user.User{}, nil
	case !f.Scope.IsAll():
		b = b.Where(sq.Eq{"branch_id": f.Scope.BranchID()})
	}
	if f.Search != "" {
		pattern := core.LikeContains(strings.ToLower(f.Search))
		b = b.Where(sq.Or{
			sq.Expr("LOWER(name) LIKE ? "+core.LikeEscape, pattern),
			sq.Expr("LOWER(username) LIKE ? "+core.LikeEscape, pattern),
			sq.Expr("LOWER(email) LIKE ? "+core.LikeEscape, pattern),
		})
	}
	if len(f.Roles) > 0 {
		roles := make([]string, 0, len(f.Roles))
		for _, r := range f.Roles {
			roles = append(roles, string(r))
		}
		b = b.Where(sq.Eq{"role": roles})
	}
	if f.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *f.IsActive})
	}
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}
	b = b.OrderBy("id ASC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
		if f.Offset > 0 {
			b = b.Offset(uint64(f.Offset))
		}
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, du := range rows {
		users = append(users, du.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	du := toDBUser(usr)
	query, args, err := repo.sb.Update("users").
		SetMap(map[string]interface{}{
			"name":          du.Name,
			"username":      du.Username,
			"email":         du.Email,
			"role":          du.Role,
			"branch_id":     du.BranchID,
			"is_active":     du.IsActive,
			"password_hash": du.PasswordHash,
			"updated_at":    du.UpdatedAt,
			"last_login":    du.LastLogin,
		}).
		Where(sq.Eq{"id": du.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, err
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return du.toUser(), nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := repo.sb.Delete("users").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building delete")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (repo *userRepository) CountByBranch(ctx context.Context, branchID string) (int, error) {
	query, args, err := repo.sb.Select("COUNT(*)").From("users").Where(sq.Eq{"branch_id": branchID}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building count")
	}
	var n int
	if err := repo.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}
