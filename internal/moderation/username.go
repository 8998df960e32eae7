package moderation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Anonymous usernames follow AdjectiveNoun12345678. Derived from the
// identity hash, the same commenter keeps the same name across visits
// without any account.

var usernameAdjectives = []string{
	"Ancient", "Brave", "Clever", "Daring", "Epic", "Fierce", "Golden", "Happy",
	"Invisible", "Jolly", "Keen", "Lucky", "Mighty", "Noble", "Opulent", "Proud",
	"Quick", "Radiant", "Silent", "Turbo", "Ultimate", "Vivid", "Wild", "Xenial",
	"Young", "Zealous", "Agile", "Bold", "Cosmic", "Dynamic", "Electric", "Frosty",
	"Graceful", "Heroic", "Infinite", "Jazzy", "Kinetic", "Legendary", "Mystic",
	"Neon", "Omega", "Phoenix", "Quantum", "Rogue", "Shadow", "Stellar", "Thunder",
	"Uber", "Vortex", "Wicked", "Xtreme", "Yonder", "Zesty", "Arctic", "Blazing",
	"Crimson", "Diamond", "Emerald", "Fabled", "Glacial", "Hyper", "Iron", "Jade",
	"Lunar", "Marble", "Nebula", "Obsidian", "Plasma", "Royal", "Sapphire", "Titan",
	"Ultra", "Velvet", "Crystal", "Digital", "Ember", "Frozen", "Ghost", "Hidden",
	"Ivory", "Cyber", "Primal", "Raging", "Sacred", "Toxic", "Vapor", "Zen",
	"Alpha", "Beta", "Gamma", "Delta", "Sigma", "Prime", "Nova",
	"Astral", "Ethereal", "Spectral", "Temporal", "Eternal",
}

var usernameNouns = []string{
	"Warrior", "Wizard", "Dragon", "Phoenix", "Tiger", "Eagle", "Wolf", "Bear",
	"Lion", "Hawk", "Shark", "Falcon", "Panther", "Viper", "Cobra", "Raven",
	"Knight", "Samurai", "Ninja", "Pirate", "Viking", "Spartan", "Gladiator", "Hunter",
	"Ranger", "Scout", "Sniper", "Soldier", "Guardian", "Sentinel", "Champion", "Hero",
	"Legend", "Titan", "Giant", "Golem", "Demon", "Angel", "Spirit", "Ghost",
	"Shadow", "Phantom", "Specter", "Wraith", "Reaper", "Slayer", "Blade", "Sword",
	"Arrow", "Spear", "Axe", "Hammer", "Shield", "Storm", "Thunder", "Lightning",
	"Blaze", "Flame", "Frost", "Ice", "Fire", "Water", "Earth", "Wind",
	"Star", "Moon", "Sun", "Comet", "Meteor", "Galaxy", "Nebula", "Cosmos",
	"Void", "Abyss", "Chaos", "Order", "Dawn", "Dusk", "Night", "Day",
	"Rogue", "Thief", "Assassin", "Spy", "Agent", "Operative", "Mercenary", "Bounty",
	"King", "Queen", "Prince", "Duke", "Baron", "Lord", "Master", "Chief",
	"Fox", "Owl", "Cat", "Dog", "Horse", "Bull", "Ram", "Stag",
	"Sage", "Monk", "Priest", "Shaman", "Oracle", "Prophet", "Seer", "Mystic",
}

var usernamePattern = regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-z]+\d{8}$`)

func seedHash(s string) uint64 {
	var h uint64
	for _, c := range s {
		h = h*31 + uint64(c)
	}
	return h
}

// UsernameFromIdentity derives the anonymous display name for an
// identity hash. Deterministic: the same identity always gets the same
// name.
func UsernameFromIdentity(identityHash string) string {
	h := seedHash(identityHash)
	adjective := usernameAdjectives[h%uint64(len(usernameAdjectives))]
	noun := usernameNouns[(h>>8)%uint64(len(usernameNouns))]
	return fmt.Sprintf("%s%s%08d", adjective, noun, h%100000000)
}

// RandomUsername generates a throwaway name with no identity anchor,
// used when a request arrives with zero usable signals.
func RandomUsername() string {
	pick := func(list []string) string {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
		if err != nil {
			return list[0]
		}
		return list[n.Int64()]
	}
	digits, err := rand.Int(rand.Reader, big.NewInt(100000000))
	if err != nil {
		digits = big.NewInt(0)
	}
	return fmt.Sprintf("%s%s%08d", pick(usernameAdjectives), pick(usernameNouns), digits)
}

// IsGeneratedUsername reports whether a name matches the generated
// AdjectiveNoun12345678 shape.
func IsGeneratedUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ScreenUsername checks a user-chosen name (registration, username
// availability probes) against the same dictionaries as comments. A
// name that normalizes into profanity or hate speech is rejected.
func ScreenUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) < 3 || len(trimmed) > 30 {
		return fmt.Errorf("username must be between 3 and 30 characters")
	}

	normalized := Normalize(trimmed).Normalized
	analysis := Analyze(normalized)
	if len(analysis.Tier3) > 0 || analysis.HasThreats {
		return fmt.Errorf("username contains prohibited content")
	}
	if len(analysis.Tier2) > 0 || analysis.HasSexual {
		return fmt.Errorf("username contains inappropriate language")
	}

	// Catch profanity embedded without token boundaries ("xxfuckxx")
	compact := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, strings.ToLower(normalized))
	for word := range tier3Words {
		if len(word) >= 4 && strings.Contains(compact, word) {
			return fmt.Errorf("username contains prohibited content")
		}
	}

	return nil
}
