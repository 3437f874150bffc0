package model

import (
	"time"

	"association-admin-api/internal/datefmt"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name" validate:"required"`
	Role         string    `json:"role" validate:"omitempty,oneof=admin user"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Associate is a registered member of the association.
type Associate struct {
	ID              string       `json:"id"`
	Name            string       `json:"name" validate:"required"`
	Document        string       `json:"document"`
	BirthDate       datefmt.Date `json:"birthDate"`
	Phone           string       `json:"phone"`
	Email           string       `json:"email" validate:"omitempty,email"`
	Address         string       `json:"address"`
	City            string       `json:"city"`
	State           string       `json:"state"`
	ZipCode         string       `json:"zipCode"`
	Profession      string       `json:"profession"`
	MaritalStatus   string       `json:"maritalStatus"`
	AffiliationDate datefmt.Date `json:"affiliationDate"`
	ExpiryDate      datefmt.Date `json:"expiryDate"`
	Notes           string       `json:"notes"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

const (
	AppointmentScheduled = "scheduled"
	AppointmentDone      = "done"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	ID          string    `json:"id"`
	Client      string    `json:"client" validate:"required"`
	AssociateID *string   `json:"associateId,omitempty" validate:"omitempty,uuid"`
	Date        time.Time `json:"date" validate:"required"`
	Subject     string    `json:"subject"`
	Status      string    `json:"status" validate:"omitempty,oneof=scheduled done cancelled"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Lawsuit is a legal case file tracked on behalf of a client.
type Lawsuit struct {
	ID          string       `json:"id"`
	Client      string       `json:"client" validate:"required"`
	AssociateID *string      `json:"associateId,omitempty" validate:"omitempty,uuid"`
	Number      string       `json:"number"`
	Court       string       `json:"court"`
	Subject     string       `json:"subject"`
	Status      string       `json:"status"`
	OpenedAt    datefmt.Date `json:"openedAt"`
	Archived    bool         `json:"archived"`
	Notes       string       `json:"notes"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskDone       = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title" validate:"required"`
	Client      string       `json:"client"`
	Description string       `json:"description"`
	Status      string       `json:"status" validate:"omitempty,oneof=pending in_progress done"`
	Priority    string       `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     datefmt.Date `json:"dueDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date" validate:"required"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Report holds aggregate counts for a date range.
type Report struct {
	From             *time.Time `json:"from,omitempty"`
	To               *time.Time `json:"to,omitempty"`
	Appointments     int        `json:"appointments"`
	Lawsuits         int        `json:"lawsuits"`
	ArchivedLawsuits int        `json:"archivedLawsuits"`
	NewAssociates    int        `json:"newAssociates"`
	TasksDone        int        `json:"tasksDone"`
	TasksPending     int        `json:"tasksPending"`
	Events           int        `json:"events"`
}

type AssociateSummary struct {
	Total        int `json:"total"`
	NewThisMonth int `json:"newThisMonth"`
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiringSoon"`
}

type LawsuitSummary struct {
	Total    int            `json:"total"`
	Open     int            `json:"open"`
	Archived int            `json:"archived"`
	ByStatus map[string]int `json:"byStatus"`
}

// File describes an uploaded document.
type File struct {
	Name         string    `json:"name"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
