package moderation

import (
	"fmt"

	"github.com/waveground/backend/internal/models"
)

// Score weights per category match
const (
	weightTier1     = 0
	weightTier2     = 0
	weightTier3     = 10
	weightSexual    = 3
	weightThreat    = 20
	weightSpam      = 5
	weightEmojiSpam = 2
	weightEmojiOnly = 3
)

// Score thresholds driving the recommended action
const (
	// ScoreCooldown is where cooldown escalation starts
	ScoreCooldown = 3
	// ScoreShadowBan is where a single comment earns a shadow ban
	ScoreShadowBan = 10
	// ScoreAutoBan is where a single comment earns an auto-ban
	ScoreAutoBan = 20
)

// ScoreAction is the recommended handling for a scored comment
type ScoreAction string

const (
	ActionAllow     ScoreAction = "allow"
	ActionCooldown  ScoreAction = "cooldown"
	ActionShadowBan ScoreAction = "shadow_ban"
	ActionAutoBan   ScoreAction = "auto_ban"
)

// AbuseScore is the weighted result of scoring one comment
type AbuseScore struct {
	Total     int                   `json:"total"`
	Breakdown models.ScoreBreakdown `json:"breakdown"`

	Action ScoreAction `json:"action"`
	Reason string      `json:"reason"`

	// MatchedWords is for the audit log only
	MatchedWords []string `json:"matched_words,omitempty"`

	ShouldBlock     bool `json:"should_block"`
	ShouldShadowBan bool `json:"should_shadow_ban"`
	ShouldAutoBan   bool `json:"should_auto_ban"`
}

// HasThreats reports whether any threat pattern contributed to the score
func (s AbuseScore) HasThreats() bool {
	return s.Breakdown.Threats > 0
}

// HasHateSpeech reports whether any tier 3 word contributed to the score
func (s AbuseScore) HasHateSpeech() bool {
	return s.Breakdown.Tier3 > 0
}

// emojiSpam flags content drowning in emoji: more than five, or emoji
// making up over 30% of the runes.
func emojiSpam(original string) bool {
	count := countEmoji(original)
	if count > 5 {
		return true
	}
	total := len([]rune(original))
	return total > 0 && float64(count)/float64(total) > 0.3
}

// ScoreComment normalizes and scores a raw comment. The result is the
// sum of fixed per-match category weights with no per-category cap.
func ScoreComment(content string) AbuseScore {
	n := Normalize(content)

	// Normalized still carries the expanded emoji tokens, so abusive
	// emoji are scored through the same dictionaries as text.
	analysis := Analyze(n.Normalized)

	breakdown := models.ScoreBreakdown{
		Tier1:   len(analysis.Tier1) * weightTier1,
		Tier2:   len(analysis.Tier2) * weightTier2,
		Tier3:   len(analysis.Tier3) * weightTier3,
		Sexual:  len(analysis.Sexual) * weightSexual,
		Threats: len(analysis.Threat) * weightThreat,
		Spam:    len(analysis.Spam) * weightSpam,
	}
	if emojiSpam(content) {
		breakdown.EmojiSpam = weightEmojiSpam
	}
	if IsOnlyEmoji(content) {
		breakdown.EmojiOnly = weightEmojiOnly
	}

	total := breakdown.Tier1 + breakdown.Tier2 + breakdown.Tier3 +
		breakdown.Sexual + breakdown.Threats + breakdown.Spam +
		breakdown.EmojiSpam + breakdown.EmojiOnly

	score := AbuseScore{
		Total:        total,
		Breakdown:    breakdown,
		MatchedWords: analysis.MatchedWords(),
	}

	switch {
	case total >= ScoreAutoBan:
		score.Action = ActionAutoBan
		score.Reason = fmt.Sprintf("extreme abuse detected (score: %d)", total)
		score.ShouldBlock = true
		score.ShouldShadowBan = true
		score.ShouldAutoBan = true
	case total >= ScoreShadowBan:
		score.Action = ActionShadowBan
		score.Reason = fmt.Sprintf("high abuse score (score: %d)", total)
		score.ShouldShadowBan = true
	case total >= ScoreCooldown:
		score.Action = ActionCooldown
		score.Reason = fmt.Sprintf("moderate abuse detected (score: %d)", total)
	default:
		score.Action = ActionAllow
		score.Reason = fmt.Sprintf("comment appears safe (score: %d)", total)
	}

	return score
}
