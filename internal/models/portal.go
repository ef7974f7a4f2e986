package models

import "time"

// PortalToken grants a client time-limited access to the upload portal.
// Only the argon2id hash of the token is stored.
type PortalToken struct {
	ID        string    `json:"id" db:"id"`
	OrgID     string    `json:"org_id" db:"org_id"`
	ClientID  string    `json:"client_id" db:"client_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PortalUpload is the metadata row for a file a client pushed through the
// upload portal. The bytes live on disk under the configured upload dir.
type PortalUpload struct {
	ID          string    `json:"id" db:"id"`
	OrgID       string    `json:"org_id" db:"org_id"`
	ClientID    string    `json:"client_id" db:"client_id"`
	Filename    string    `json:"filename" db:"filename"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	ContentType string    `json:"content_type" db:"content_type"`
	StoredPath  string    `json:"-" db:"stored_path"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// PortalTokenRequest is the owner-side payload for issuing an upload token.
type PortalTokenRequest struct {
	ClientID string `json:"client_id" validate:"required,uuid4"`
	TTLHours int    `json:"ttl_hours" validate:"omitempty,gt=0,lte=720"`
}
