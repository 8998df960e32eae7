package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLowercases(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("HELLO World").Normalized)
}

func TestStripZeroWidth(t *testing.T) {
	// Zero-width spaces splitting a word apart
	split := "fu​ck"
	assert.Equal(t, "fuck", Normalize(split).Normalized)

	joined := "fu‌ck‍"
	assert.Equal(t, "fuck", Normalize(joined).Normalized)
}

func TestFoldHomoglyphs(t *testing.T) {
	// Cyrillic о and е standing in for Latin letters
	assert.Equal(t, "fuck", Normalize("fuсk").Normalized) // Cyrillic с
	assert.Equal(t, "shit", Normalize("ѕhit").Normalized) // Cyrillic ѕ

	// Fullwidth forms fold through NFKD
	assert.Equal(t, "abc", FoldHomoglyphs("ａｂｃ"))

	// Accents are stripped
	assert.Equal(t, "fuck", FoldHomoglyphs("fùck"))
}

func TestCollapseRepeats(t *testing.T) {
	assert.Equal(t, "aa", CollapseRepeats("aaaaa"))
	assert.Equal(t, "aabb", CollapseRepeats("aaabbb"))
	assert.Equal(t, "ab", CollapseRepeats("ab"))
	assert.Equal(t, "", CollapseRepeats(""))
}

func TestFoldLeetspeak(t *testing.T) {
	assert.Equal(t, "shit", FoldLeetspeak("5h17"))
	assert.Equal(t, "ass", FoldLeetspeak("@55"))
	// Multi-character sequences win over their parts
	assert.Equal(t, "doors", FoldLeetspeak("|)oor5"))
}

func TestNormalizeObfuscatedSlur(t *testing.T) {
	// Leetspeak plus casing must land on the plain form
	assert.Equal(t, Normalize("faggot").Normalized, Normalize("F4GG0T").Normalized)
}

func TestExpandEmoji(t *testing.T) {
	n := Normalize("🖕")
	assert.Equal(t, "middle finger", n.Normalized)
	assert.Equal(t, "middle finger", n.NormalizedWithEmoji)
}

func TestStripEmoji(t *testing.T) {
	assert.Equal(t, "hello", strings.TrimSpace(StripEmoji("hello 😀🎉")))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\t b \n c ").Normalized)
}

func TestIsValidContent(t *testing.T) {
	assert.False(t, IsValidContent(""))
	assert.False(t, IsValidContent("   "))
	assert.False(t, IsValidContent("\n\t"))
	assert.True(t, IsValidContent("a"))
	assert.True(t, IsValidContent(strings.Repeat("a", MaxContentLength)))
	assert.False(t, IsValidContent(strings.Repeat("a", MaxContentLength+1)))

	// The limit counts runes, not bytes
	assert.True(t, IsValidContent(strings.Repeat("é", MaxContentLength)))
}

func TestIsOnlyEmoji(t *testing.T) {
	assert.True(t, IsOnlyEmoji("😀😀"))
	assert.True(t, IsOnlyEmoji("🎉"))
	assert.False(t, IsOnlyEmoji("hello 😀"))
	assert.False(t, IsOnlyEmoji("hello"))
	assert.False(t, IsOnlyEmoji(""))
	assert.False(t, IsOnlyEmoji("   "))
}
