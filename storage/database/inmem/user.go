package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/elimuhq/elimu/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryAllUsers(_ context.Context) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.users {
		if u.ID != usr.ID && u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id string, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if usr, ok := repo.db.users[id]; ok {
		usr.LastLogin = t
		return nil
	}
	return user.ErrNotFound
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}
