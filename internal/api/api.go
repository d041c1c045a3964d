// Package api holds the JSON documents exchanged between the gallery client
// and the mirror server.
package api

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

const (
	PathPing     = "/api/ping"
	PathImages   = "/api/images"
	PathFolders  = "/api/folders"
	PathRegister = "/api/register"
	PathLogin    = "/api/login"
	PathRefresh  = "/api/refresh"
)

// Mirror account rules.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
	MaxPasswordLength = 128
)

var usernameChars = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Credentials registers or signs in a mirror account. UserID is only read on
// register, where the client proposes the id its records are owned by.
type Credentials struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the username and password rules.
func (c Credentials) Validate() error {
	if n := len(c.Username); n < MinUsernameLength || n > MaxUsernameLength || !usernameChars.MatchString(c.Username) {
		return fmt.Errorf("%w: username must be %d to %d letters, digits, '_' or '-'",
			common.ErrInvalidRecord, MinUsernameLength, MaxUsernameLength)
	}
	if n := len(c.Password); n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d to %d characters",
			common.ErrInvalidRecord, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthTokens is returned by register, login and refresh. The access token
// is a bearer JWT whose subject is UserID.
type AuthTokens struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type ImageMetadata struct {
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Model        string `json:"model,omitempty"`
	Compressed   bool   `json:"compressed"`
	OriginalSize int64  `json:"original_size"`
}

// Image is an image record without its payload; the payload travels through
// presigned object-store URLs.
type Image struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	FolderID  string        `json:"folder_id,omitempty"`
	Prompt    string        `json:"prompt"`
	Style     string        `json:"style,omitempty"`
	Tags      []string      `json:"tags"`
	RemoteURL string        `json:"remote_url,omitempty"`
	Metadata  ImageMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PutImageResponse tells the client where to upload the payload and where it
// will be readable afterwards.
type PutImageResponse struct {
	UploadURL string `json:"upload_url"`
	RemoteURL string `json:"remote_url"`
}

type ImagePage struct {
	Images  []Image `json:"images"`
	Total   int     `json:"total"`
	HasMore bool    `json:"has_more"`
}

type Folder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FolderList struct {
	Folders []Folder `json:"folders"`
}

type Error struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
