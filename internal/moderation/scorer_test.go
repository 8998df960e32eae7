package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreCleanComment(t *testing.T) {
	score := ScoreComment("what a lovely track")
	assert.Equal(t, 0, score.Total)
	assert.Equal(t, ActionAllow, score.Action)
	assert.False(t, score.ShouldBlock)
	assert.False(t, score.ShouldShadowBan)
	assert.False(t, score.ShouldAutoBan)
}

func TestScoreMildProfanityIsFree(t *testing.T) {
	// Tier 1 and 2 are tracked and masked but never penalized
	score := ScoreComment("damn this is some bullshit")
	assert.Equal(t, 0, score.Total)
	assert.Equal(t, ActionAllow, score.Action)
	assert.NotEmpty(t, score.MatchedWords)
}

func TestScoreHateSpeech(t *testing.T) {
	score := ScoreComment("faggot")
	assert.Equal(t, 10, score.Total)
	assert.Equal(t, ActionShadowBan, score.Action)
	assert.True(t, score.ShouldShadowBan)
	assert.False(t, score.ShouldBlock)
	assert.True(t, score.HasHateSpeech())
}

func TestObfuscationScoresLikePlainText(t *testing.T) {
	plain := ScoreComment("faggot")
	cases := []string{"F4GG0T", "fa​ggot", "fаggot"} // leet, zero-width, Cyrillic а
	for _, c := range cases {
		assert.Equal(t, plain.Total, ScoreComment(c).Total, "input %q", c)
	}
}

func TestScoreThreats(t *testing.T) {
	score := ScoreComment("i will kill you")
	assert.GreaterOrEqual(t, score.Total, ScoreAutoBan)
	assert.Equal(t, ActionAutoBan, score.Action)
	assert.True(t, score.ShouldBlock)
	assert.True(t, score.ShouldAutoBan)
	assert.True(t, score.HasThreats())
}

func TestScoreSexualContent(t *testing.T) {
	score := ScoreComment("rape")
	assert.Equal(t, 3, score.Total)
	assert.Equal(t, ActionCooldown, score.Action)
	assert.False(t, score.ShouldShadowBan)
}

func TestScoreSpam(t *testing.T) {
	score := ScoreComment("buy now before it runs out")
	assert.Equal(t, 5, score.Total)
	assert.Equal(t, ActionCooldown, score.Action)
}

func TestScoreRepeatedPatternSpam(t *testing.T) {
	score := ScoreComment("spamspamspamspamspam")
	assert.GreaterOrEqual(t, score.Breakdown.Spam, 5)
}

func TestScoreEmojiSpam(t *testing.T) {
	score := ScoreComment("nice track 😀😀😀😀😀😀")
	assert.Equal(t, 2, score.Breakdown.EmojiSpam)
	assert.Equal(t, 0, score.Breakdown.EmojiOnly)
}

func TestScoreEmojiOnly(t *testing.T) {
	score := ScoreComment("😀😀")
	assert.Equal(t, 3, score.Breakdown.EmojiOnly)
	assert.Equal(t, 2, score.Breakdown.EmojiSpam)
	assert.Equal(t, 5, score.Total)
	assert.Equal(t, ActionCooldown, score.Action)
}

func TestScoreThresholdBoundaries(t *testing.T) {
	// One tier 3 word sits exactly on the shadow ban threshold
	assert.True(t, ScoreComment("dyke").ShouldShadowBan)
	// Two tier 3 words reach the auto-ban threshold
	score := ScoreComment("dyke faggot")
	assert.Equal(t, 20, score.Total)
	assert.True(t, score.ShouldAutoBan)
	assert.True(t, score.ShouldBlock)
}

func TestMaskProfanity(t *testing.T) {
	assert.Equal(t, "**** this ****", MaskProfanity("fuck this shit"))
	assert.Equal(t, "clean text", MaskProfanity("clean text"))
	// Mixed case still masks, length is preserved in runes
	assert.Equal(t, "****", MaskProfanity("FuCk"))
	// Tier 1 is never masked
	assert.Equal(t, "damn", MaskProfanity("damn"))
}
