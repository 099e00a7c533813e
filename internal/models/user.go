package models

import (
	"errors"

	"clinic-booking-server/internal/store"
)

// ErrNoPartner is returned when a hygienist has no dentist to book against.
var ErrNoPartner = errors.New("hygienist has no partner dentist")

// Title is a user's role in the clinic.
type Title string

const (
	TitlePatient   Title = "PATIENT"
	TitleHygienist Title = "HYGIENIST"
	TitleDentist   Title = "DENTIST"
	TitleAdmin     Title = "ADMIN"
)

// Valid reports whether t is one of the four known titles.
func (t Title) Valid() bool {
	switch t {
	case TitlePatient, TitleHygienist, TitleDentist, TitleAdmin:
		return true
	}
	return false
}

// IsProvider reports whether the title owns or shares a calendar.
func (t Title) IsProvider() bool {
	return t == TitleDentist || t == TitleHygienist
}

// Status enum
type Status string

const (
	StatusEnabled  Status = "ENABLED"
	StatusDisabled Status = "DISABLED"
)

// Users table columns.
const (
	ColUserID    = "user_id"
	ColFirstName = "first_name"
	ColLastName  = "last_name"
	ColPartnerID = "partner_id"
	ColEmail     = "email"
	ColPhone     = "phone_number"
	ColTitle     = "title"
	ColPassHash  = "pass_hash"
	ColStatus    = "status"
)

// Users is the record store schema of the users table.
var Users = &store.Table{
	Name: "users",
	Fields: []store.Field{
		{Name: ColUserID, MaxLength: 10},
		{Name: ColFirstName, MaxLength: 20},
		{Name: ColLastName, MaxLength: 20},
		{Name: ColPartnerID, MaxLength: 10, Nullable: true},
		{Name: ColEmail, MaxLength: 50, Nullable: true},
		{Name: ColPhone, MaxLength: 14, Nullable: true},
		{Name: ColTitle, MaxLength: 10},
		{Name: ColPassHash, MaxLength: 32},
		{Name: ColStatus, MaxLength: 8},
	},
	Unique: [][]string{{ColUserID}},
}

// UserRecord mirrors the users table for migrations.
type UserRecord struct {
	UserID      string  `gorm:"column:user_id;type:varchar(10);not null;uniqueIndex:uq_users_user_id"`
	FirstName   string  `gorm:"column:first_name;type:varchar(20);not null"`
	LastName    string  `gorm:"column:last_name;type:varchar(20);not null"`
	PartnerID   *string `gorm:"column:partner_id;type:varchar(10)"`
	Email       *string `gorm:"column:email;type:varchar(50)"`
	PhoneNumber *string `gorm:"column:phone_number;type:varchar(14)"`
	Title       string  `gorm:"column:title;type:varchar(10);not null"`
	PassHash    string  `gorm:"column:pass_hash;type:varchar(32);not null"`
	Status      string  `gorm:"column:status;type:varchar(8);not null"`
}

// TableName keeps GORM from pluralising the record type name.
func (UserRecord) TableName() string { return Users.Name }

// User represents an account. Optional fields are empty when absent.
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PartnerID    string `json:"partnerId,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Title        Title  `json:"title"`
	PasswordHash string `json:"-"`
	Status       Status `json:"status"`
}

// UserFromRow decodes a users row.
func UserFromRow(r store.Row) User {
	return User{
		ID:           r.Get(ColUserID),
		FirstName:    r.Get(ColFirstName),
		LastName:     r.Get(ColLastName),
		PartnerID:    optional(r.Get(ColPartnerID)),
		Email:        optional(r.Get(ColEmail)),
		Phone:        optional(r.Get(ColPhone)),
		Title:        Title(r.Get(ColTitle)),
		PasswordHash: r.Get(ColPassHash),
		Status:       Status(r.Get(ColStatus)),
	}
}

// Values encodes the user in Users column order.
func (u User) Values() []string {
	return []string{
		u.ID,
		u.FirstName,
		u.LastName,
		orAbsent(u.PartnerID),
		orAbsent(u.Email),
		orAbsent(u.Phone),
		string(u.Title),
		u.PasswordHash,
		string(u.Status),
	}
}

// FullName is "first last", the form names are looked up by.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Enabled reports whether the account may sign in and book.
func (u User) Enabled() bool {
	return u.Status == StatusEnabled
}

// HasPartner reports whether the partner edge is set.
func (u User) HasPartner() bool {
	return u.PartnerID != ""
}

// CalendarID is the id of the dentist whose calendar u books against.
// A hygienist has no calendar of its own and resolves to its partner.
func (u User) CalendarID() (string, error) {
	if u.Title != TitleHygienist {
		return u.ID, nil
	}
	if !u.HasPartner() {
		return "", ErrNoPartner
	}
	return u.PartnerID, nil
}

// StoredPartnerID is PartnerID in its stored form.
func (u User) StoredPartnerID() string {
	return orAbsent(u.PartnerID)
}

func optional(v string) string {
	if v == store.Absent {
		return ""
	}
	return v
}

func orAbsent(v string) string {
	if v == "" {
		return store.Absent
	}
	return v
}
