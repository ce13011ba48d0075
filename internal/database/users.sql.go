package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createUser = `
INSERT INTO users (
	email, hashed_password, first_name, last_name, display_name,
	address, phone, county, food_bank_id, family_size, role
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, email, hashed_password, first_name, last_name, display_name,
	address, phone, county, food_bank_id, family_size, role, created_at
`

type CreateUserParams struct {
	Email          string
	HashedPassword string
	FirstName      string
	LastName       string
	DisplayName    string
	Address        pgtype.Text
	Phone          pgtype.Text
	County         pgtype.Text
	FoodBankID     pgtype.Text
	FamilySize     pgtype.Int4
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.HashedPassword,
		arg.FirstName,
		arg.LastName,
		arg.DisplayName,
		arg.Address,
		arg.Phone,
		arg.County,
		arg.FoodBankID,
		arg.FamilySize,
		arg.Role,
	)
	return scanUser(row)
}

const getUserByEmail = `
SELECT id, email, hashed_password, first_name, last_name, display_name,
	address, phone, county, food_bank_id, family_size, role, created_at
FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	return scanUser(row)
}

const getUserByID = `
SELECT id, email, hashed_password, first_name, last_name, display_name,
	address, phone, county, food_bank_id, family_size, role, created_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	return scanUser(row)
}

const updateUserProfile = `
UPDATE users
SET first_name = $2,
    last_name = $3,
    display_name = $4,
    address = $5,
    phone = $6,
    county = $7,
    family_size = $8
WHERE id = $1
RETURNING id, email, hashed_password, first_name, last_name, display_name,
	address, phone, county, food_bank_id, family_size, role, created_at
`

type UpdateUserProfileParams struct {
	ID          uuid.UUID
	FirstName   string
	LastName    string
	DisplayName string
	Address     pgtype.Text
	Phone       pgtype.Text
	County      pgtype.Text
	FamilySize  pgtype.Int4
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUserProfile,
		arg.ID,
		arg.FirstName,
		arg.LastName,
		arg.DisplayName,
		arg.Address,
		arg.Phone,
		arg.County,
		arg.FamilySize,
	)
	return scanUser(row)
}

const countUsersByPhone = `
SELECT count(*) FROM users WHERE phone = $1
`

func (q *Queries) CountUsersByPhone(ctx context.Context, phone pgtype.Text) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersByPhone, phone)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUsersByAddress = `
SELECT count(*) FROM users WHERE address = $1
`

func (q *Queries) CountUsersByAddress(ctx context.Context, address pgtype.Text) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersByAddress, address)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUsersByFoodBankID = `
SELECT count(*) FROM users WHERE food_bank_id = $1
`

func (q *Queries) CountUsersByFoodBankID(ctx context.Context, foodBankID pgtype.Text) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersByFoodBankID, foodBankID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUsersByName = `
SELECT count(*) FROM users WHERE first_name = $1 AND last_name = $2
`

type CountUsersByNameParams struct {
	FirstName string
	LastName  string
}

func (q *Queries) CountUsersByName(ctx context.Context, arg CountUsersByNameParams) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersByName, arg.FirstName, arg.LastName)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUsers = `
SELECT count(*) FROM users
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUsersCreatedSince = `
SELECT count(*) FROM users WHERE created_at >= $1
`

func (q *Queries) CountUsersCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersCreatedSince, since)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.FirstName,
		&u.LastName,
		&u.DisplayName,
		&u.Address,
		&u.Phone,
		&u.County,
		&u.FoodBankID,
		&u.FamilySize,
		&u.Role,
		&u.CreatedAt,
	)
	return u, err
}
