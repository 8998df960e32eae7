package moderation

import (
	"fmt"
	"time"

	"github.com/waveground/backend/internal/models"
)

// cooldownDurations maps each level to its lockout length. Levels grow
// non-linearly so repeat offenders hit real friction fast.
var cooldownDurations = map[models.CooldownLevel]time.Duration{
	models.CooldownNone:     0,
	models.CooldownShort:    5 * time.Second,
	models.CooldownMedium:   30 * time.Second,
	models.CooldownLong:     2 * time.Minute,
	models.CooldownVeryLong: 5 * time.Minute,
	models.CooldownExtreme:  15 * time.Minute,
}

var cooldownLabels = map[models.CooldownLevel]string{
	models.CooldownNone:     "no cooldown",
	models.CooldownShort:    "5 seconds",
	models.CooldownMedium:   "30 seconds",
	models.CooldownLong:     "2 minutes",
	models.CooldownVeryLong: "5 minutes",
	models.CooldownExtreme:  "15 minutes",
}

// CooldownDuration returns the lockout duration for a level
func CooldownDuration(level models.CooldownLevel) time.Duration {
	return cooldownDurations[level]
}

// CooldownLabel returns a human-readable duration for a level
func CooldownLabel(level models.CooldownLevel) string {
	if label, ok := cooldownLabels[level]; ok {
		return label
	}
	return "unknown"
}

// CooldownState is the derived posting eligibility for an identity
type CooldownState struct {
	Level       models.CooldownLevel `json:"level"`
	EndAt       *time.Time           `json:"end_at,omitempty"`
	IsActive    bool                 `json:"is_active"`
	RemainingMs int64                `json:"remaining_ms"`
}

// GetCooldownState derives eligibility from the persisted level and end
// time. A level with no end time is inactive.
func GetCooldownState(level models.CooldownLevel, endAt *time.Time, now time.Time) CooldownState {
	state := CooldownState{Level: level, EndAt: endAt}
	if endAt != nil && now.Before(*endAt) {
		state.IsActive = true
		state.RemainingMs = endAt.Sub(now).Milliseconds()
	}
	return state
}

// CooldownUpdate is the result of one escalation
type CooldownUpdate struct {
	NewLevel models.CooldownLevel
	EndAt    time.Time
	Duration time.Duration
	Reason   string
}

// nextCooldownLevel escalates one step normally and two when the abuse
// is repeated, with score-based floors so severe comments cannot land
// on a trivial lockout. The result never goes below the current level;
// levels only drop through an explicit admin reset.
func nextCooldownLevel(current models.CooldownLevel, score int, repeated bool) models.CooldownLevel {
	step := models.CooldownLevel(1)
	if repeated {
		step = 2
	}
	next := current + step

	if score >= ScoreAutoBan && next < models.CooldownVeryLong {
		next = models.CooldownVeryLong
	} else if score >= ScoreShadowBan && next < models.CooldownMedium {
		next = models.CooldownMedium
	}

	if next > models.CooldownExtreme {
		next = models.CooldownExtreme
	}
	return next
}

// ApplyCooldown escalates an identity's cooldown after a comment
// scoring at or above ScoreCooldown. Callers must not invoke it for
// lower scores.
func ApplyCooldown(current models.CooldownLevel, score int, repeated bool, now time.Time) CooldownUpdate {
	newLevel := nextCooldownLevel(current, score, repeated)
	duration := CooldownDuration(newLevel)

	reason := "cooldown applied"
	switch {
	case repeated:
		reason = "cooldown escalated due to repeated abuse"
	case score >= ScoreAutoBan:
		reason = "extended cooldown due to severe abuse"
	case score >= ScoreShadowBan:
		reason = "cooldown applied due to high abuse score"
	}

	return CooldownUpdate{
		NewLevel: newLevel,
		EndAt:    now.Add(duration),
		Duration: duration,
		Reason:   reason,
	}
}

// Repeated-abuse thresholds over the trailing window
const (
	repeatedAbuseMinComments = 3
	repeatedAbuseMinScore    = 9
	repeatedSpamMinComments  = 5
)

// RepeatedAbuseWindow is the trailing window the repeat and ban pattern
// checks evaluate.
const RepeatedAbuseWindow = time.Hour

// IsRepeatedAbuse reports whether an identity is abusing in bursts:
// several scored comments inside the window, or enough raw volume to
// count as spam regardless of score.
func IsRepeatedAbuse(recentComments, recentAbuseScore int) bool {
	if recentComments >= repeatedAbuseMinComments && recentAbuseScore >= repeatedAbuseMinScore {
		return true
	}
	return recentComments >= repeatedSpamMinComments
}

// FormatCooldownTime renders remaining wait for user display
func FormatCooldownTime(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds >= 60 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}
