package domain

import (
	"time"
)

// ChallengePurpose tags an outstanding one-time code with the flow it belongs to.
type ChallengePurpose string

const (
	// PurposeVerification is the mailbox-ownership proof issued at signup.
	PurposeVerification ChallengePurpose = "verification"
	// PurposeMFA is the second-factor proof issued at every login.
	PurposeMFA ChallengePurpose = "mfa"
)

// Challenge is an unconsumed one-time code outstanding for a user. At most
// one challenge exists per user; issuing a new one replaces the old.
type Challenge struct {
	Purpose   ChallengePurpose `json:"purpose"`
	Code      string           `json:"code"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Expired reports whether the challenge can no longer be consumed.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// User represents a registered user in the system.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Bio              string     `json:"bio,omitempty"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	NativeLanguage   string     `json:"native_language,omitempty"`
	LearningLanguage string     `json:"learning_language,omitempty"`
	Location         string     `json:"location,omitempty"`
	IsVerified       bool       `json:"is_verified"`
	IsOnboarded      bool       `json:"is_onboarded"`
	Challenge        *Challenge `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PublicProfile is the projection of a user exposed to other users. It never
// carries the credential hash or an outstanding challenge.
type PublicProfile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	AvatarURL        string `json:"avatar_url,omitempty"`
	NativeLanguage   string `json:"native_language,omitempty"`
	LearningLanguage string `json:"learning_language,omitempty"`
	Location         string `json:"location,omitempty"`
}

// Public returns the public projection of the user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:               u.ID,
		Name:             u.Name,
		AvatarURL:        u.AvatarURL,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
		Location:         u.Location,
	}
}
