package models

import "time"

// User is an offline account registered on this device.
type User struct {
	ID        string
	Username  string
	PINHash   []byte
	Salt      []byte
	CreatedAt time.Time
}
