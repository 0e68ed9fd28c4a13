package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/user"
	"github.com/trezcool/classwork/storage/database"
)

const userColumns = "id, username, email, password_hash, role, created_at"

type userRepository struct {
	db queryer
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db queryer) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.GetContext(ctx, &usr.ID,
		`INSERT INTO users (username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		usr.Username, usr.Email, usr.PasswordHash, string(usr.Role), usr.CreatedAt,
	)
	if err != nil {
		return user.User{}, database.WriteError(err)
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var w where
	switch {
	case filter.ID != 0:
		w.add("id = $%d", filter.ID)
	case filter.Username != "":
		w.add("username = $%d", filter.Username)
	case filter.Email != "":
		w.add("email = $%d", filter.Email)
	default:
		return user.User{}, core.ErrNotFound
	}

	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, "SELECT "+userColumns+" FROM users"+w.String(), w.args...); err != nil {
		return user.User{}, notFound(err)
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	var w where
	if filter.Role != "" {
		w.add("role = $%d", string(filter.Role))
	}
	if filter.Search != "" {
		w.add("(username ILIKE '%%' || $%[1]d || '%%' OR email ILIKE '%%' || $%[1]d || '%%')", filter.Search)
	}

	users := make([]user.User, 0)
	q := "SELECT " + userColumns + " FROM users" + w.String() + " ORDER BY id"
	if err := repo.db.SelectContext(ctx, &users, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var updated user.User
	err := repo.db.GetContext(ctx, &updated,
		`UPDATE users SET username = $1, email = $2, role = $3, password_hash = $4
		WHERE id = $5 RETURNING `+userColumns,
		usr.Username, usr.Email, string(usr.Role), usr.PasswordHash, usr.ID,
	)
	if err != nil {
		return user.User{}, notFound(database.WriteError(err))
	}
	return updated, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) (int64, error) {
	n, err := affected(repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id))
	if err != nil {
		return 0, database.DeleteError(err)
	}
	return n, nil
}
