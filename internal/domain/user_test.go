package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChallengeExpired(t *testing.T) {
	now := time.Now()
	ch := &Challenge{Purpose: PurposeMFA, Code: "123456", ExpiresAt: now.Add(10 * time.Minute)}

	assert.False(t, ch.Expired(now))
	assert.False(t, ch.Expired(now.Add(10*time.Minute-time.Second)))
	assert.True(t, ch.Expired(now.Add(10*time.Minute)))
	assert.True(t, ch.Expired(now.Add(time.Hour)))
}

func TestUserJSONOmitsSecrets(t *testing.T) {
	u := User{
		ID:           "u-1",
		Name:         "Mina",
		Email:        "mina@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Challenge:    &Challenge{Purpose: PurposeVerification, Code: "654321"},
	}

	b, err := json.Marshal(u)
	assert.NoError(t, err)

	s := string(b)
	assert.NotContains(t, s, "$2a$10$")
	assert.NotContains(t, s, "654321")
	assert.Contains(t, s, "mina@example.com")
}

func TestUserPublicProjection(t *testing.T) {
	u := User{
		ID:               "u-1",
		Name:             "Mina",
		Email:            "mina@example.com",
		PasswordHash:     "hash",
		Bio:              "learning spanish",
		AvatarURL:        "https://avatar.iran.liara.run/public/7.png",
		NativeLanguage:   "korean",
		LearningLanguage: "spanish",
		Location:         "Seoul",
	}

	p := u.Public()
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "Mina", p.Name)
	assert.Equal(t, "korean", p.NativeLanguage)
	assert.Equal(t, "spanish", p.LearningLanguage)

	b, err := json.Marshal(p)
	assert.NoError(t, err)
	lower := strings.ToLower(string(b))
	assert.NotContains(t, lower, "email")
	assert.NotContains(t, lower, "hash")
}
