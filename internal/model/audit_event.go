package model

import "time"

// AuditEvent is emitted once per issued token. The file sink writes only
// the timestamp, names, locker key and token; the Kafka sink carries all of it.
type AuditEvent struct {
	ID           string    `json:"id"` // registration ULID
	Timestamp    time.Time `json:"timestamp"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	LockerKey    string    `json:"locker_key"`
	Token        string    `json:"token"`
	SerialNumber string    `json:"serial_number"`
	Class        Tier      `json:"class"`
	AmountPaid   string    `json:"amount_paid"`
	Fallback     bool      `json:"fallback"`
}
