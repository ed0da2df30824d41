package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Registration is one provisioning request. Description and InboxFee are
// optional; blanks fall back to the configured defaults.
type Registration struct {
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Description string          `json:"description,omitempty"`
	InboxFee    string          `json:"inbox_fee,omitempty"`
}

// LockerTask is the daemon-side handle returned by a create call.
type LockerTask struct {
	TaskID string
}

// LockerResult is the completed task payload.
type LockerResult struct {
	TransmitCode string
}

// ProvisionResult is what the provisioner hands back to its caller.
type ProvisionResult struct {
	Success        bool   `json:"success"`
	MailboxToken   string `json:"mailbox_token"`
	RegistrationID string `json:"registration_id"`
}

// RegistrationRow is the archived registration as stored in ClickHouse.
type RegistrationRow struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	Class        string    `db:"class" json:"class"`
	AmountPaid   string    `db:"amount_paid" json:"amount_paid"`
	LockerKey    string    `db:"locker_key" json:"locker_key"`
	Fallback     bool      `db:"fallback" json:"fallback"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
