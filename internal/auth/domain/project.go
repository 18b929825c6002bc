package domain

import "time"

// Project is a tenant boundary. The API key is public, unique system-wide
// and immutable after creation; the API secret is stored only as a hash.
type Project struct {
	ID             string
	Name           string
	APIKey         string
	SecretHash     string // argon2id encoded
	OwnerID        string
	AllowedOrigins []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
