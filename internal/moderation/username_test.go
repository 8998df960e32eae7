package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsernameFromIdentityDeterministic(t *testing.T) {
	hash := "9f2c1a77b3e44d0c8a55f6012de9b8c4a1f0e2d3c4b5a6978861524334455667"
	a := UsernameFromIdentity(hash)
	b := UsernameFromIdentity(hash)
	assert.Equal(t, a, b)
	assert.True(t, IsGeneratedUsername(a), "got %q", a)
}

func TestUsernameFromIdentityVaries(t *testing.T) {
	a := UsernameFromIdentity("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := UsernameFromIdentity("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.NotEqual(t, a, b)
}

func TestRandomUsernameShape(t *testing.T) {
	name := RandomUsername()
	assert.True(t, IsGeneratedUsername(name), "got %q", name)
}

func TestIsGeneratedUsername(t *testing.T) {
	assert.True(t, IsGeneratedUsername("BraveWarrior12345678"))
	assert.False(t, IsGeneratedUsername("BraveWarrior1234"))
	assert.False(t, IsGeneratedUsername("bravewarrior12345678"))
	assert.False(t, IsGeneratedUsername("just a name"))
}

func TestScreenUsernameLength(t *testing.T) {
	assert.Error(t, ScreenUsername("ab"))
	assert.Error(t, ScreenUsername("  x  "))
	assert.Error(t, ScreenUsername("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.NoError(t, ScreenUsername("SunnyTraveler"))
}

func TestScreenUsernameRejectsSlurs(t *testing.T) {
	err := ScreenUsername("cunt")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prohibited")

	// Obfuscation folds back before screening
	err = ScreenUsername("F4GG0T99")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prohibited")
}

func TestScreenUsernameRejectsProfanity(t *testing.T) {
	err := ScreenUsername("fuck")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "inappropriate")
}

func TestScreenUsernameCatchesEmbeddedSlur(t *testing.T) {
	// Token boundaries are stripped before the substring scan
	err := ScreenUsername("xx_faggot_xx")
	assert.Error(t, err)
}
