package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
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
	CreatedAt      time.Time
}

// Setting is the process-wide singleton row (id is always 1). Schedule
// bounds are stored as RFC3339 text to mirror the document-store shape;
// the availability resolver owns parsing and fails closed on bad values.
type Setting struct {
	ID             int32
	ManualOverride string
	ScheduledOpen  pgtype.Text
	ScheduledClose pgtype.Text
	NextPickupDate pgtype.Text
	CurrentBatchID pgtype.Text
	UpdatedAt      time.Time
}

type Batch struct {
	ID        string
	Name      string
	StartDate time.Time
	Origin    string
	Status    string
	CreatedAt time.Time
}

type Order struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	BatchID           pgtype.Text
	Status            string
	PackingDryGoods   string
	PackingFreshGoods string
	SelectedItems     []string
	DryGoodsItems     []string
	FreshGoodsItems   []string
	OtherItems        pgtype.Text
	PickupDate        pgtype.Text
	ConfirmedPickup   bool
	Details           []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
