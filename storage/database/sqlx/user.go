package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type dbUser struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    time.Time `db:"last_login"`
}

func (repo userRepository) pack(usr user.User) dbUser {
	return dbUser{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    usr.LastLogin.UTC(),
	}
}

func (repo userRepository) unpack(u dbUser) user.User {
	return user.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsActive:     u.IsActive,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

func (repo userRepository) unpackSlice(slice []dbUser) []user.User {
	users := make([]user.User, 0, len(slice))
	for _, u := range slice {
		users = append(users, repo.unpack(u))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	u := repo.pack(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, email, role, is_active, password_hash, created_at, updated_at)
		VALUES (:id, :name, :email, :role, :is_active, :password_hash, :created_at, :updated_at)`, u,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var u dbUser
	if err := repo.db.GetContext(ctx, &u, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by id")
	}
	return repo.unpack(u), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u dbUser
	if err := repo.db.GetContext(ctx, &u, `SELECT * FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by email")
	}
	return repo.unpack(u), nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var users []dbUser
	if err := repo.db.SelectContext(ctx, &users, `SELECT * FROM "user" ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unpackSlice(users), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	u := repo.pack(usr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET name = :name, email = :email, role = :role, is_active = :is_active,
		    password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id`, u,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE "user" SET last_login = $2 WHERE id = $1`, id, t.UTC())
	return errors.Wrap(err, "setting last login")
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building user delete")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting users")
}
