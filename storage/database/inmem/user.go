package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// checkUniqueness must be called with the lock held.
func (repo *userRepository) checkUniqueness(usr user.User) error {
	for _, u := range repo.db.users {
		if u.ID == usr.ID {
			continue
		}
		if u.Username == usr.Username {
			return core.NewConflictError("username", "a user with this username already exists")
		}
		if u.Email == usr.Email {
			return core.NewConflictError("email", "a user with this email already exists")
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = 0
	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	usr.ID = repo.db.nextID("users")
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, u := range repo.db.users {
		switch {
		case filter.ID != 0:
			if u.ID == filter.ID {
				return *u, nil
			}
		case filter.Username != "":
			if u.Username == filter.Username {
				return *u, nil
			}
		case filter.Email != "":
			if u.Email == filter.Email {
				return *u, nil
			}
		}
	}
	return user.User{}, core.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" && !strings.Contains(u.Username, search) && !strings.Contains(u.Email, search) {
			continue
		}
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, core.ErrNotFound
	}
	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	orig.Username = usr.Username
	orig.Email = usr.Email
	orig.Role = usr.Role
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	return *orig, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id int) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return 0, nil
	}
	for _, a := range repo.db.assignments {
		if a.CreatedBy == id {
			return 0, core.NewConflictError("id", "the user still owns assignments")
		}
	}
	for _, s := range repo.db.submissions {
		if s.StudentID == id {
			return 0, core.NewConflictError("id", "the user still owns submissions")
		}
	}
	for _, a := range repo.db.announcements {
		if a.CreatedBy == id {
			return 0, core.NewConflictError("id", "the user still owns announcements")
		}
	}
	delete(repo.db.users, id)
	return 1, nil
}
