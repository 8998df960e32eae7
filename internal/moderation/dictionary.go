package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

// Profanity tiers. Tier 1 is tracked but never penalized; tier 2 is
// masked on display but scores zero; tier 3 is hate speech and
// escalates immediately. All detection runs on normalized content.

var tier1Words = newWordSet(
	"damn", "dammit", "hell", "crap", "crud", "dang", "heck",
)

var tier2Words = newWordSet(
	// Common profanity
	"fuck", "fucking", "fucked", "fucker", "fck", "fuk", "fking",
	"shit", "shitty", "bullshit", "shite",
	"bitch", "bitches", "bitchy", "bastard",
	"ass", "asshole", "assholes", "arse",
	"dick", "dickhead", "prick", "cock", "cunt", "pussy",
	"slut", "whore", "douche", "douchebag", "piss", "pissed",

	// Sexual/crude
	"balls", "ballsack", "screw", "screwing", "screwed",
	"sex", "sexy", "cum", "cumming", "jizz", "semen", "orgasm",
	"masturbate", "masturbation", "porn", "pornography",
	"tits", "boobs", "breast", "nipple", "penis", "vagina",
	"anal", "blowjob", "handjob",

	// Insults
	"idiot", "moron", "stupid", "dumb", "dumbass",
	"retard", "retarded", "loser", "pathetic", "worthless",
	"trash", "garbage",
)

var tier3Words = newWordSet(
	// Racial slurs
	"nigger", "nigga", "niga", "nigg", "n1gger", "n1gga",
	"coon", "spic", "spick", "beaner", "wetback",
	"chink", "gook", "zipperhead", "towelhead", "sandnigger", "raghead",
	"kike", "hymie", "yid", "paki", "wop", "dago", "polack",
	"cracker", "honkey", "whitey", "redskin", "injun",

	// Homophobic slurs
	"faggot", "fag", "f4ggot", "f4g", "fagg0t", "fagot",
	"dyke", "tranny", "trannie", "shemale",

	// Ableist slurs
	"cripple", "mongoloid", "spastic", "vegetable",

	// Misogynistic slurs
	"feminazi", "cunt",

	// Extreme dehumanization
	"subhuman", "untermensch", "vermin", "parasite", "scum",
)

var sexualPatterns = compilePatterns(
	`\bsex(?:ual)?\s+(?:with|act|acts)\b`,
	`\brape(?:d)?\b`,
	`\bmolest(?:ed|ing)?\b`,
	`\bpedophile\b`,
	`\bpedo\b`,
	`\bchild\s+(?:porn|abuse)\b`,
	`\bincest\b`,
	`\bbestiality\b`,
	`\bnaked\s+(?:pic|picture|photo|image)`,
	`\bnude(?:s)?\s+(?:pic|picture|photo|image)`,
	`\bdick\s+pic`,
)

var threatPatterns = compilePatterns(
	`\bkill\s+(?:you|yourself|myself|him|her|them)\b`,
	`\b(?:gonna|going to|will)\s+kill\b`,
	`\bmurder\s+(?:you|him|her|them)\b`,
	`\bhurt\s+(?:you|him|her|them)\b`,
	`\bharm\s+(?:you|yourself|him|her|them)\b`,
	`\bbeat\s+(?:you|the shit|your ass)\b`,
	`\bshoot\s+(?:you|up|him|her|them)\b`,
	`\bstab\s+(?:you|him|her|them)\b`,
	`\bsuicide\b`,
	`\bkill\s+myself\b`,
	`\bend\s+(?:my|your)\s+life\b`,
	`\bdeath\s+threat`,
	`\bbomb\s+(?:threat|you|this|the)\b`,
	`\bterror(?:ist|ism)?\s+attack\b`,
)

var spamPatterns = compilePatterns(
	`https?://`,
	`www\.`,
	`\b[a-z0-9-]+\.(?:com|net|org|io|co|info|biz)\b`,
	`\b(?:click here|buy now|limited time|act now|order now|free money|make money)\b`,
	`\b(?:check out|follow me|subscribe|like and subscribe)\b`,
)

func newWordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		patterns[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return patterns
}

// Match is a single dictionary hit, retained for audit logging
type Match struct {
	Word     string
	Tier     int
	Position int
}

// Analysis is the raw dictionary output before weighting
type Analysis struct {
	Tier1  []Match
	Tier2  []Match
	Tier3  []Match
	Sexual []string
	Threat []string
	Spam   []string

	HighestTier int
	HasThreats  bool
	HasSexual   bool
	HasSpam     bool
}

// eachToken walks word tokens of text, calling fn with each token and
// its byte offset. A single hash lookup per token keeps dictionary
// scans flat no matter how many words the tiers hold.
func eachToken(text string, fn func(token string, pos int)) {
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fn(text[start:i], start)
			start = -1
		}
	}
	if start >= 0 {
		fn(text[start:], start)
	}
}

// Analyze scans normalized content against all tiers and patterns.
// The input must come from Normalize; raw text here is a bug.
func Analyze(normalized string) Analysis {
	var a Analysis

	eachToken(normalized, func(token string, pos int) {
		if _, ok := tier1Words[token]; ok {
			a.Tier1 = append(a.Tier1, Match{Word: token, Tier: 1, Position: pos})
		}
		if _, ok := tier2Words[token]; ok {
			a.Tier2 = append(a.Tier2, Match{Word: token, Tier: 2, Position: pos})
		}
		if _, ok := tier3Words[token]; ok {
			a.Tier3 = append(a.Tier3, Match{Word: token, Tier: 3, Position: pos})
		}
	})

	for _, p := range sexualPatterns {
		if m := p.FindString(normalized); m != "" {
			a.Sexual = append(a.Sexual, m)
		}
	}
	for _, p := range threatPatterns {
		if m := p.FindString(normalized); m != "" {
			a.Threat = append(a.Threat, m)
		}
	}
	for _, p := range spamPatterns {
		if m := p.FindString(normalized); m != "" {
			a.Spam = append(a.Spam, m)
		}
	}
	if hasRepeatedPattern(normalized) {
		a.Spam = append(a.Spam, "repeated pattern")
	}

	switch {
	case len(a.Tier3) > 0:
		a.HighestTier = 3
	case len(a.Tier2) > 0:
		a.HighestTier = 2
	case len(a.Tier1) > 0:
		a.HighestTier = 1
	}
	a.HasThreats = len(a.Threat) > 0
	a.HasSexual = len(a.Sexual) > 0
	a.HasSpam = len(a.Spam) > 0

	return a
}

// hasRepeatedPattern reports whether some chunk of 3+ bytes repeats
// four or more times back to back. RE2 has no backreferences, so the
// scan is explicit; the chunk length cap bounds the cost on long input.
func hasRepeatedPattern(text string) bool {
	n := len(text)
	for size := 3; size <= 32 && size*4 <= n; size++ {
		for i := 0; i+size*4 <= n; i++ {
			chunk := text[i : i+size]
			if chunk == text[i+size:i+size*2] &&
				chunk == text[i+size*2:i+size*3] &&
				chunk == text[i+size*3:i+size*4] {
				return true
			}
		}
	}
	return false
}

// ContainsHateSpeech reports whether normalized content has any tier 3
// match.
func ContainsHateSpeech(normalized string) bool {
	found := false
	eachToken(normalized, func(token string, pos int) {
		if _, ok := tier3Words[token]; ok {
			found = true
		}
	})
	return found
}

// ContainsThreats reports whether normalized content matches a threat
// pattern.
func ContainsThreats(normalized string) bool {
	for _, p := range threatPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

// MatchedWords flattens every hit for the audit trail. Matches are
// logged for operators and never re-enter displayed content.
func (a Analysis) MatchedWords() []string {
	var words []string
	for _, m := range a.Tier1 {
		words = append(words, m.Word)
	}
	for _, m := range a.Tier2 {
		words = append(words, m.Word)
	}
	for _, m := range a.Tier3 {
		words = append(words, m.Word)
	}
	words = append(words, a.Sexual...)
	words = append(words, a.Threat...)
	words = append(words, a.Spam...)
	return words
}

// MaskProfanity replaces tier 2 and tier 3 words in display content
// with asterisks of equal length. Matching is case-insensitive on
// whole tokens only; the surrounding text is untouched.
func MaskProfanity(content string) string {
	if content == "" {
		return content
	}

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	eachToken(content, func(token string, pos int) {
		lower := strings.ToLower(token)
		_, t2 := tier2Words[lower]
		_, t3 := tier3Words[lower]
		if !t2 && !t3 {
			return
		}
		b.WriteString(content[last:pos])
		b.WriteString(strings.Repeat("*", len([]rune(token))))
		last = pos + len(token)
	})
	if last == 0 {
		return content
	}
	b.WriteString(content[last:])
	return b.String()
}
