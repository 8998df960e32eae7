package moderation

import (
	"fmt"
	"time"
)

// Ban thresholds
const (
	// Single comment
	shadowBanScore = ScoreShadowBan
	autoBanScore   = ScoreAutoBan

	// Patterns within the trailing window
	shadowBanComments   = 3
	shadowBanTotalScore = 15
	autoBanComments     = 5
	autoBanTotalScore   = 30

	// Zero tolerance
	hateSpeechLimit = 2

	// Community reports
	reportsShadowBan = 5
	reportsAutoBan   = 10
)

// Severity grades a ban decision for the audit trail
type Severity string

const (
	SeverityNone    Severity = "none"
	SeverityLow     Severity = "low"
	SeverityMedium  Severity = "medium"
	SeverityHigh    Severity = "high"
	SeverityExtreme Severity = "extreme"
)

var severityRank = map[Severity]int{
	SeverityNone:    0,
	SeverityLow:     1,
	SeverityMedium:  2,
	SeverityHigh:    3,
	SeverityExtreme: 4,
}

// BanDecision is the verdict of the ban engine. Both flags are
// independent; neither is ever reversed automatically.
type BanDecision struct {
	ShouldShadowBan bool     `json:"should_shadow_ban"`
	ShouldAutoBan   bool     `json:"should_auto_ban"`
	Reason          string   `json:"reason"`
	Severity        Severity `json:"severity"`
	Evidence        []string `json:"evidence,omitempty"`
}

// RecentComment is one scored comment inside the trailing window
type RecentComment struct {
	Timestamp  time.Time
	AbuseScore int
}

// AbuseHistory is the per-identity evidence the pattern checks run on.
// It is derived fresh for each decision, never stored as-is.
type AbuseHistory struct {
	TotalComments   int
	TotalAbuseScore int
	HateSpeechCount int
	ThreatCount     int
	RecentComments  []RecentComment
	ReportCount     int
	LastCommentAt   *time.Time
}

// EvaluateSingleComment decides whether one comment alone warrants a
// ban, independent of history.
func EvaluateSingleComment(score AbuseScore) BanDecision {
	decision := BanDecision{Severity: SeverityNone, Reason: "no ban required"}

	if score.Total >= autoBanScore {
		decision.ShouldAutoBan = true
		decision.ShouldShadowBan = true
		decision.Severity = SeverityExtreme
		decision.Reason = "extreme abuse detected in single comment"
		decision.Evidence = append(decision.Evidence, fmt.Sprintf("abuse score: %d", score.Total))
	} else if score.Total >= shadowBanScore {
		decision.ShouldShadowBan = true
		decision.Severity = SeverityHigh
		decision.Reason = "high abuse score detected"
		decision.Evidence = append(decision.Evidence, fmt.Sprintf("abuse score: %d", score.Total))
	}

	// Threats are zero tolerance
	if score.HasThreats() {
		decision.ShouldAutoBan = true
		decision.ShouldShadowBan = true
		decision.Severity = SeverityExtreme
		decision.Reason = "threats or violence detected"
		decision.Evidence = append(decision.Evidence, "threats detected")
	}

	// A single hate speech hit shadow bans; repeats auto-ban via history
	if score.HasHateSpeech() {
		decision.ShouldShadowBan = true
		if !decision.ShouldAutoBan {
			decision.Severity = SeverityHigh
			decision.Reason = "hate speech detected"
			decision.Evidence = append(decision.Evidence, "hate speech/slurs detected")
		}
	}

	return decision
}

// EvaluateAbuseHistory decides whether the identity's recent pattern
// warrants a ban even when no single comment does.
func EvaluateAbuseHistory(history AbuseHistory, now time.Time) BanDecision {
	decision := BanDecision{Severity: SeverityNone, Reason: "no ban required"}

	windowStart := now.Add(-RepeatedAbuseWindow)
	recentCount := 0
	recentScore := 0
	for _, c := range history.RecentComments {
		if c.Timestamp.After(windowStart) {
			recentCount++
			recentScore += c.AbuseScore
		}
	}

	if recentCount >= autoBanComments && recentScore >= autoBanTotalScore {
		decision.ShouldAutoBan = true
		decision.ShouldShadowBan = true
		decision.Severity = SeverityExtreme
		decision.Reason = "repeated severe abuse detected"
		decision.Evidence = append(decision.Evidence,
			fmt.Sprintf("%d abusive comments in last hour", recentCount),
			fmt.Sprintf("combined abuse score: %d", recentScore))
	} else if recentCount >= shadowBanComments && recentScore >= shadowBanTotalScore {
		decision.ShouldShadowBan = true
		decision.Severity = SeverityHigh
		decision.Reason = "repeated abuse detected"
		decision.Evidence = append(decision.Evidence,
			fmt.Sprintf("%d abusive comments recently", recentCount),
			fmt.Sprintf("combined abuse score: %d", recentScore))
	}

	if history.HateSpeechCount >= hateSpeechLimit {
		decision.ShouldAutoBan = true
		decision.ShouldShadowBan = true
		decision.Severity = SeverityExtreme
		decision.Reason = "repeated hate speech"
		decision.Evidence = append(decision.Evidence,
			fmt.Sprintf("%d hate speech incidents", history.HateSpeechCount))
	}

	if history.ThreatCount > 0 {
		decision.ShouldAutoBan = true
		decision.ShouldShadowBan = true
		decision.Severity = SeverityExtreme
		decision.Reason = "threats detected"
		decision.Evidence = append(decision.Evidence, "identity has made threats")
	}

	if history.ReportCount >= reportsAutoBan {
		decision.ShouldAutoBan = true
		decision.ShouldShadowBan = true
		decision.Severity = SeverityExtreme
		decision.Reason = "excessive community reports"
		decision.Evidence = append(decision.Evidence,
			fmt.Sprintf("%d reports from community", history.ReportCount))
	} else if history.ReportCount >= reportsShadowBan {
		decision.ShouldShadowBan = true
		if severityRank[decision.Severity] < severityRank[SeverityHigh] {
			decision.Severity = SeverityHigh
			decision.Reason = "multiple community reports"
		}
		decision.Evidence = append(decision.Evidence,
			fmt.Sprintf("%d reports from community", history.ReportCount))
	}

	return decision
}

// EvaluateBanDecision combines the single-comment and history verdicts,
// taking the most severe of each dimension.
func EvaluateBanDecision(score AbuseScore, history AbuseHistory, now time.Time) BanDecision {
	single := EvaluateSingleComment(score)
	pattern := EvaluateAbuseHistory(history, now)

	combined := BanDecision{
		ShouldShadowBan: single.ShouldShadowBan || pattern.ShouldShadowBan,
		ShouldAutoBan:   single.ShouldAutoBan || pattern.ShouldAutoBan,
		Severity:        single.Severity,
		Reason:          "no ban required",
	}
	if severityRank[pattern.Severity] > severityRank[single.Severity] {
		combined.Severity = pattern.Severity
	}
	combined.Evidence = append(combined.Evidence, single.Evidence...)
	combined.Evidence = append(combined.Evidence, pattern.Evidence...)

	if combined.ShouldAutoBan {
		if single.ShouldAutoBan {
			combined.Reason = single.Reason
		} else {
			combined.Reason = pattern.Reason
		}
	} else if combined.ShouldShadowBan {
		if single.ShouldShadowBan {
			combined.Reason = single.Reason
		} else {
			combined.Reason = pattern.Reason
		}
	}

	return combined
}

// BanStatus is an identity's effective ban state after admin overrides
type BanStatus struct {
	IsBanned       bool   `json:"is_banned"`
	IsShadowBanned bool   `json:"is_shadow_banned"`
	IsAutoBanned   bool   `json:"is_auto_banned"`
	IsAdminBanned  bool   `json:"is_admin_banned"`
	Reason         string `json:"reason"`
}

// GetBanStatus resolves the raw ban flags against admin overrides. An
// admin unban suppresses every automatic ban; an admin ban overrides
// everything including the unban flag.
func GetBanStatus(isShadowBanned, isAutoBanned, isAdminBanned, isAdminUnbanned bool) BanStatus {
	if isAdminUnbanned && !isAdminBanned {
		return BanStatus{Reason: "admin unbanned"}
	}
	if isAdminUnbanned && isAdminBanned {
		return BanStatus{
			IsBanned:      true,
			IsAdminBanned: true,
			Reason:        "banned by administrator",
		}
	}

	status := BanStatus{
		IsBanned:       isShadowBanned || isAutoBanned || isAdminBanned,
		IsShadowBanned: isShadowBanned,
		IsAutoBanned:   isAutoBanned,
		IsAdminBanned:  isAdminBanned,
		Reason:         "not banned",
	}
	switch {
	case isAutoBanned:
		status.Reason = "automatically banned due to severe abuse"
	case isShadowBanned:
		status.Reason = "shadow banned due to abuse patterns"
	case isAdminBanned:
		status.Reason = "banned by administrator"
	}
	return status
}
