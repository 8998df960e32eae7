// Package moderation implements the anonymous-comment abuse pipeline:
// content normalization, dictionary scoring, cooldown escalation and
// ban decisions. Everything here is pure computation; persistence and
// transport live elsewhere.
package moderation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// homoglyphFold maps Cyrillic and Greek lookalikes to their closest
// Latin letter. Fullwidth, circled and mathematical-alphanumeric forms
// are handled separately by NFKD decomposition, which also strips
// accents once combining marks are removed.
var homoglyphFold = strings.NewReplacer(
	// Cyrillic
	"а", "a", "е", "e", "о", "o", "р", "p", "с", "c", "у", "y",
	"х", "x", "і", "i", "ј", "j", "ѕ", "s", "в", "b", "к", "k",
	"м", "m", "н", "h", "т", "t",
	// Greek
	"α", "a", "β", "b", "ε", "e", "ι", "i", "ο", "o", "ρ", "p",
	"τ", "t", "υ", "y", "χ", "x", "ν", "v", "κ", "k", "μ", "u",
	"η", "n", "ζ", "z",
	// Non-breaking space
	" ", " ",
)

// leetFold decodes digit/symbol-for-letter substitutions. Multi-rune
// sequences come first so "|)" wins over "|".
var leetFold = strings.NewReplacer(
	`/-\`, "a",
	`|\|`, "n",
	`|)`, "d",
	`\|/`, "w",
	`\/`, "v",
	"()", "o",
	"[]", "o",
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"8", "b",
	"@", "a",
	"$", "s",
	"!", "i",
	"|", "i",
	"+", "t",
)

// emojiRanges covers the emoji blocks the scorer cares about, including
// variation selectors.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x26FF, Stride: 1},
		{Lo: 0x2700, Hi: 0x27BF, Stride: 1},
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1F02F, Stride: 1},
		{Lo: 0x1F0A0, Hi: 0x1F0FF, Stride: 1},
		{Lo: 0x1F1E0, Hi: 0x1F1FF, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1},
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1},
		{Lo: 0x1FA00, Hi: 0x1FA6F, Stride: 1},
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1},
	},
}

// emojiTokens expands offensive emoji to a text token the dictionaries
// can match. Slice, not map, so expansion order is deterministic.
var emojiTokens = []struct {
	emoji string
	token string
}{
	{"🖕", "middle finger"},
	{"💩", "poop"},
	{"🍆", "eggplant"},
	{"🍑", "peach"},
	{"💦", "sweat drops"},
	{"👅", "tongue"},
	{"🔞", "no one under eighteen"},
	{"🚫", "prohibited"},
	{"💀", "skull"},
	{"☠️", "skull and crossbones"},
	{"🔥", "fire"},
	{"💯", "hundred points"},
	{"🤬", "cursing"},
	{"😈", "devil"},
	{"👿", "angry devil"},
}

// decompose strips combining marks after NFKD decomposition, folding
// accented, fullwidth, circled and mathematical-alphanumeric forms down
// to plain ASCII where one exists.
var decompose = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalization is the output of the content pipeline. Normalized is
// for scoring only and must never be displayed; Original is what gets
// stored and shown.
type Normalization struct {
	Original            string
	Normalized          string
	NormalizedWithEmoji string
}

// StripZeroWidth removes zero-width spaces, joiners and non-joiners
// used to split flagged tokens apart.
func StripZeroWidth(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, text)
}

// FoldHomoglyphs maps visually-similar code points to Latin letters
func FoldHomoglyphs(text string) string {
	if folded, _, err := transform.String(decompose, text); err == nil {
		text = folded
	}
	return homoglyphFold.Replace(text)
}

// CollapseRepeats shortens runs of 3+ identical runes to 2, so
// stretched words still match the dictionaries.
func CollapseRepeats(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FoldLeetspeak decodes leetspeak substitutions to letters
func FoldLeetspeak(text string) string {
	return leetFold.Replace(text)
}

// ExpandEmoji replaces known abusive emoji with text tokens
func ExpandEmoji(text string) string {
	for _, e := range emojiTokens {
		if strings.Contains(text, e.emoji) {
			text = strings.ReplaceAll(text, e.emoji, " "+e.token+" ")
		}
	}
	return text
}

// StripEmoji removes all emoji code points
func StripEmoji(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(emojiRanges, r) {
			return -1
		}
		return r
	}, text)
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Normalize runs the full ordered pipeline. Each stage assumes the
// prior stage's output; scoring anything but the result of this
// function is an invalid call.
func Normalize(content string) Normalization {
	if content == "" {
		return Normalization{}
	}

	text := strings.ToLower(content)
	text = FoldHomoglyphs(text)
	text = StripZeroWidth(text)
	text = CollapseRepeats(text)
	text = FoldLeetspeak(text)

	withEmoji := ExpandEmoji(text)
	stripped := StripEmoji(withEmoji)

	return Normalization{
		Original:            content,
		Normalized:          normalizeWhitespace(stripped),
		NormalizedWithEmoji: normalizeWhitespace(withEmoji),
	}
}

// MaxContentLength is the rune limit for a single comment
const MaxContentLength = 10000

// IsValidContent reports whether trimmed content is non-empty and
// within the length limit.
func IsValidContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	count := 0
	for range trimmed {
		count++
		if count > MaxContentLength {
			return false
		}
	}
	return true
}

// IsOnlyEmoji reports whether content has text-free emoji content:
// nothing survives normalization but the trimmed input was non-empty.
func IsOnlyEmoji(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	return Normalize(content).Normalized == ""
}

func countEmoji(text string) int {
	count := 0
	for _, r := range text {
		if unicode.Is(emojiRanges, r) {
			count++
		}
	}
	return count
}
