package model

import (
    "database/sql/driver"
    "encoding/json"
    "time"
)

// Role values stored in users.role and carried in the JWT role claim.
const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

// SocialLinks is stored as a JSON object column.
type SocialLinks struct {
    Twitter   string `json:"twitter"`
    LinkedIn  string `json:"linkedin"`
    GitHub    string `json:"github"`
    Instagram string `json:"instagram"`
}

// Value implements driver.Valuer.
func (s SocialLinks) Value() (driver.Value, error) {
    b, err := json.Marshal(s)
    if err != nil {
        return nil, err
    }
    return string(b), nil
}

// Scan implements sql.Scanner.
func (s *SocialLinks) Scan(src any) error {
    b, err := jsonBytes(src)
    if err != nil || len(b) == 0 {
        return err
    }
    return json.Unmarshal(b, s)
}

// User represents a row of the `users` table. PasswordHash is never
// serialized.
type User struct {
    ID             string      `json:"id" db:"id"`                                // users.id (uuid)
    Name           string      `json:"name" db:"name"`                            // users.name
    Email          string      `json:"email" db:"email"`                          // users.email (lower-cased, unique)
    PasswordHash   string      `json:"-" db:"password_hash"`                      // users.password_hash (bcrypt)
    Role           string      `json:"role" db:"role"`                            // users.role
    ProfilePicture *string     `json:"profilePicture,omitempty" db:"profile_picture"` // users.profile_picture
    Bio            string      `json:"bio" db:"bio"`                              // users.bio
    SocialLinks    SocialLinks `json:"socialLinks" db:"social_links"`             // users.social_links (JSON)
    CreatedAt      time.Time   `json:"createdAt" db:"created_at"`                 // users.created_at
    UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`                 // users.updated_at
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    string     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
