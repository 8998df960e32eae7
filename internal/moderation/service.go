package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waveground/backend/internal/errors"
	"github.com/waveground/backend/internal/identity"
	"github.com/waveground/backend/internal/logger"
	"github.com/waveground/backend/internal/metrics"
	"github.com/waveground/backend/internal/models"
	"github.com/waveground/backend/internal/repository"
)

// maxSingleCharRun rejects low-effort mash like "aaaaaaaaaaaa" before
// scoring even runs. Measured on the collapsed form of the raw input.
const maxSingleCharRun = 12

// Service runs the full submission pipeline: identity resolution,
// validation, scoring, cooldown escalation, ban decisions and
// persistence, in that order.
type Service struct {
	resolver   *identity.Resolver
	identities repository.IdentityRepository
	comments   repository.CommentRepository

	// locks serializes read-modify-write per identity so concurrent
	// submissions cannot under-count abuse.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewService wires the pipeline together
func NewService(resolver *identity.Resolver, identities repository.IdentityRepository, comments repository.CommentRepository) *Service {
	return &Service{
		resolver:   resolver,
		identities: identities,
		comments:   comments,
		locks:      make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

func (s *Service) lockIdentity(hash string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[hash]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[hash] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// SubmitResult is the acceptance bundle for a stored comment
type SubmitResult struct {
	Comment      *models.Comment
	Score        AbuseScore
	ShadowBanned bool
	Cooldown     CooldownState
	Identity     *models.CommentIdentity
}

func containsLink(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "http://") ||
		strings.Contains(lower, "https://") ||
		strings.Contains(lower, "www.")
}

func longestSingleCharRun(content string) int {
	longest, run := 0, 0
	var prev rune
	for _, r := range strings.ToLower(content) {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// validate applies the pre-scoring content rules. Rejections here never
// touch identity state.
func validate(content string) *errors.APIError {
	if !IsValidContent(content) {
		return errors.InvalidContent("comment must be between 1 and 10000 characters")
	}
	if containsLink(content) {
		return errors.ContainsLink()
	}
	if longestSingleCharRun(content) >= maxSingleCharRun {
		return errors.InvalidContent("comment looks like keyboard mash")
	}
	return nil
}

// resolveIdentity upserts the identity record for a set of signals,
// assigning the deterministic anonymous username on first contact.
func (s *Service) resolveIdentity(ctx context.Context, signals identity.Signals) (identity.Identity, *models.CommentIdentity, error) {
	id := s.resolver.Resolve(signals)

	confidence := "high"
	if c := identity.Confidence(signals); c < 50 {
		confidence = "low"
	} else if c < 80 {
		confidence = "medium"
	}
	metrics.Get().IdentityResolvedTotal.WithLabelValues(confidence).Inc()

	record, err := s.identities.GetOrCreateIdentity(ctx, &models.CommentIdentity{
		IdentityHash:    id.IdentityHash,
		HashedIP:        id.IPHash,
		HashedUserAgent: id.UserAgentHash,
		Username:        UsernameFromIdentity(id.IdentityHash),
	})
	return id, record, err
}

// buildHistory derives the evidence window the ban engine runs on
func (s *Service) buildHistory(ctx context.Context, record *models.CommentIdentity, now time.Time) (AbuseHistory, error) {
	history := AbuseHistory{
		TotalComments:   record.TotalComments,
		TotalAbuseScore: record.TotalAbuseScore,
		ReportCount:     record.ReportCount,
		LastCommentAt:   record.LastCommentAt,
	}

	recent, err := s.comments.RecentByIdentity(ctx, record.IdentityHash, now.Add(-RepeatedAbuseWindow))
	if err != nil {
		return history, err
	}
	for _, c := range recent {
		history.RecentComments = append(history.RecentComments, RecentComment{
			Timestamp:  c.CreatedAt,
			AbuseScore: c.AbuseScore,
		})
	}

	hateSpeech, err := s.identities.CountHateSpeech(ctx, record.IdentityHash)
	if err != nil {
		return history, err
	}
	history.HateSpeechCount = int(hateSpeech)

	threats, err := s.identities.CountThreats(ctx, record.IdentityHash)
	if err != nil {
		return history, err
	}
	history.ThreatCount = int(threats)

	return history, nil
}

func (s *Service) logAbuse(ctx context.Context, identityHash string, commentID *string, score AbuseScore, action models.AbuseLogAction) {
	if score.Total == 0 && action == models.AbuseActionAllowed {
		return
	}
	entry := &models.CommentAbuseLog{
		CommentID:      commentID,
		IdentityHash:   identityHash,
		Score:          score.Total,
		MatchedWords:   score.MatchedWords,
		Breakdown:      score.Breakdown,
		Action:         action,
		ThreatDetected: score.HasThreats(),
		HateSpeech:     score.HasHateSpeech(),
	}
	if err := s.identities.LogAbuse(ctx, entry); err != nil {
		logger.ErrorWithFields("failed to write abuse log", err,
			logger.WithIdentityHash(identityHash))
	}
}

func applyBanDecision(record *models.CommentIdentity, decision BanDecision, now time.Time) {
	if decision.ShouldAutoBan && !record.IsAutoBanned {
		record.IsAutoBanned = true
		record.AutoBanReason = decision.Reason
		record.AutoBannedAt = &now
		record.IsAdminUnbanned = false
		metrics.Get().BansTotal.WithLabelValues("auto").Inc()
	}
	if decision.ShouldShadowBan && !record.IsShadowBanned {
		record.IsShadowBanned = true
		record.ShadowBanReason = decision.Reason
		record.ShadowBannedAt = &now
		record.IsAdminUnbanned = false
		metrics.Get().BansTotal.WithLabelValues("shadow").Inc()
	}
}

// Submit runs one comment through the whole pipeline. On success the
// comment is durably stored before any identity counter moves, so an
// aborted request can never count abuse for content that was not saved.
func (s *Service) Submit(ctx context.Context, signals identity.Signals, postID, rawContent string) (*SubmitResult, *errors.APIError) {
	if apiErr := validate(rawContent); apiErr != nil {
		return nil, apiErr
	}
	content := strings.TrimSpace(rawContent)

	id, record, err := s.resolveIdentity(ctx, signals)
	if err != nil {
		logger.ErrorWithFields("identity resolution failed", err)
		return nil, errors.InternalError("failed to process comment")
	}

	unlock := s.lockIdentity(id.IdentityHash)
	defer unlock()

	// Re-read under the lock; another request may have mutated state
	record, err = s.identities.GetIdentity(ctx, id.IdentityHash)
	if err != nil {
		return nil, errors.InternalError("failed to process comment")
	}

	now := s.now()

	banStatus := GetBanStatus(record.IsShadowBanned, record.IsAutoBanned, record.IsAdminBanned, record.IsAdminUnbanned)
	if banStatus.IsAutoBanned || banStatus.IsAdminBanned {
		logger.WarnWithFields("banned identity attempted to post",
			logger.WithIdentityHash(id.IdentityHash),
			zap.String("reason", banStatus.Reason))
		return nil, errors.Banned()
	}

	cooldown := GetCooldownState(record.CooldownLevel, record.CooldownEndAt, now)
	if cooldown.IsActive {
		return nil, errors.CooldownActive(cooldown.RemainingMs)
	}

	start := time.Now()
	score := ScoreComment(content)
	metrics.Get().ScoringDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	metrics.Get().AbuseScoreHistogram.WithLabelValues("submit").Observe(float64(score.Total))

	history, err := s.buildHistory(ctx, record, now)
	if err != nil {
		return nil, errors.InternalError("failed to process comment")
	}

	decision := EvaluateBanDecision(score, history, now)
	if record.IsAdminUnbanned {
		// An admin unban forgives accumulated history; only fresh
		// behavior can earn a new ban. A new ban clears the flag again.
		decision = EvaluateSingleComment(score)
	}

	if decision.ShouldAutoBan || score.ShouldBlock {
		// The comment is rejected but the verdict still lands on the
		// identity, otherwise a blocked extreme comment costs nothing.
		applyBanDecision(record, decision, now)
		record.FlaggedCommentCount++
		record.TotalAbuseScore += score.Total
		if err := s.identities.UpdateIdentity(ctx, record); err != nil {
			logger.ErrorWithFields("failed to persist auto-ban", err,
				logger.WithIdentityHash(id.IdentityHash))
		}
		s.logAbuse(ctx, id.IdentityHash, nil, score, models.AbuseActionAutoBan)
		metrics.Get().CommentsScoredTotal.WithLabelValues(string(ActionAutoBan)).Inc()

		logger.WarnWithFields("comment auto-banned",
			logger.WithIdentityHash(id.IdentityHash),
			zap.Int("score", score.Total),
			zap.String("reason", decision.Reason))
		return nil, errors.Banned()
	}

	// An already shadow-banned identity posting again stays contained:
	// the comment is stored so the author sees it, hidden from others.
	shadowBanned := banStatus.IsShadowBanned || decision.ShouldShadowBan

	var cooldownUpdate *CooldownUpdate
	if score.Total >= ScoreCooldown {
		repeated := IsRepeatedAbuse(len(history.RecentComments), recentScoreSum(history.RecentComments))
		update := ApplyCooldown(record.CooldownLevel, score.Total, repeated, now)
		cooldownUpdate = &update
	}

	comment := &models.Comment{
		PostID:       postID,
		IdentityHash: id.IdentityHash,
		Username:     record.Username,
		Content:      MaskProfanity(content),
		AbuseScore:   score.Total,
		IsHidden:     shadowBanned,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		logger.ErrorWithFields("failed to store comment", err,
			logger.WithIdentityHash(id.IdentityHash))
		return nil, errors.InternalError("failed to store comment")
	}

	// Identity mutation strictly after the comment is durable
	applyBanDecision(record, decision, now)
	record.TotalComments++
	record.TotalAbuseScore += score.Total
	record.LastCommentAt = &now
	if score.Total >= ScoreCooldown {
		record.FlaggedCommentCount++
	}
	if cooldownUpdate != nil {
		record.CooldownLevel = cooldownUpdate.NewLevel
		record.CooldownEndAt = &cooldownUpdate.EndAt
		metrics.Get().CooldownsTotal.WithLabelValues(fmt.Sprintf("%d", cooldownUpdate.NewLevel)).Inc()
	}
	if err := s.identities.UpdateIdentity(ctx, record); err != nil {
		logger.ErrorWithFields("failed to update identity record", err,
			logger.WithIdentityHash(id.IdentityHash))
		return nil, errors.InternalError("failed to store comment")
	}

	action := models.AbuseActionAllowed
	switch {
	case shadowBanned:
		action = models.AbuseActionShadowBan
	case score.Total >= ScoreCooldown:
		action = models.AbuseActionCooldown
	}
	s.logAbuse(ctx, id.IdentityHash, &comment.ID, score, action)
	metrics.Get().CommentsScoredTotal.WithLabelValues(string(score.Action)).Inc()

	result := &SubmitResult{
		Comment:      comment,
		Score:        score,
		ShadowBanned: shadowBanned,
		Cooldown:     GetCooldownState(record.CooldownLevel, record.CooldownEndAt, now),
		Identity:     record,
	}
	return result, nil
}

func recentScoreSum(comments []RecentComment) int {
	sum := 0
	for _, c := range comments {
		sum += c.AbuseScore
	}
	return sum
}

// Edit rescores an existing comment. An edit is not a new comment:
// total_comments stays put and only the score delta lands on the
// identity ledger.
func (s *Service) Edit(ctx context.Context, signals identity.Signals, commentID, rawContent string) (*SubmitResult, *errors.APIError) {
	if apiErr := validate(rawContent); apiErr != nil {
		return nil, apiErr
	}
	content := strings.TrimSpace(rawContent)

	id := s.resolver.Resolve(signals)

	unlock := s.lockIdentity(id.IdentityHash)
	defer unlock()

	comment, err := s.comments.GetComment(ctx, commentID)
	if err != nil {
		if err == repository.ErrCommentNotFound {
			return nil, errors.NotFound("comment")
		}
		return nil, errors.InternalError("failed to load comment")
	}
	if comment.IdentityHash != id.IdentityHash {
		// Only the author may edit, and there is no account to check
		// against, so possession of the same identity is the proof.
		return nil, errors.Forbidden("comment belongs to a different identity")
	}

	record, err := s.identities.GetIdentity(ctx, id.IdentityHash)
	if err != nil {
		return nil, errors.InternalError("failed to load identity")
	}

	now := s.now()

	banStatus := GetBanStatus(record.IsShadowBanned, record.IsAutoBanned, record.IsAdminBanned, record.IsAdminUnbanned)
	if banStatus.IsAutoBanned || banStatus.IsAdminBanned {
		return nil, errors.Banned()
	}

	cooldown := GetCooldownState(record.CooldownLevel, record.CooldownEndAt, now)
	if cooldown.IsActive {
		return nil, errors.CooldownActive(cooldown.RemainingMs)
	}

	start := time.Now()
	score := ScoreComment(content)
	metrics.Get().ScoringDuration.WithLabelValues("edit").Observe(time.Since(start).Seconds())
	metrics.Get().AbuseScoreHistogram.WithLabelValues("edit").Observe(float64(score.Total))

	history, err := s.buildHistory(ctx, record, now)
	if err != nil {
		return nil, errors.InternalError("failed to process edit")
	}
	decision := EvaluateBanDecision(score, history, now)
	if record.IsAdminUnbanned {
		decision = EvaluateSingleComment(score)
	}

	if decision.ShouldAutoBan || score.ShouldBlock {
		applyBanDecision(record, decision, now)
		record.FlaggedCommentCount++
		record.TotalAbuseScore += score.Total - comment.AbuseScore
		if err := s.identities.UpdateIdentity(ctx, record); err != nil {
			logger.ErrorWithFields("failed to persist auto-ban", err,
				logger.WithIdentityHash(id.IdentityHash))
		}
		s.logAbuse(ctx, id.IdentityHash, &comment.ID, score, models.AbuseActionAutoBan)
		return nil, errors.Banned()
	}

	shadowBanned := banStatus.IsShadowBanned || decision.ShouldShadowBan

	var cooldownUpdate *CooldownUpdate
	if score.Total >= ScoreCooldown {
		repeated := IsRepeatedAbuse(len(history.RecentComments), recentScoreSum(history.RecentComments))
		update := ApplyCooldown(record.CooldownLevel, score.Total, repeated, now)
		cooldownUpdate = &update
	}

	oldScore := comment.AbuseScore
	comment.Content = MaskProfanity(content)
	comment.AbuseScore = score.Total
	comment.IsEdited = true
	comment.EditedAt = &now
	if shadowBanned {
		comment.IsHidden = true
	}
	if err := s.comments.UpdateComment(ctx, comment); err != nil {
		logger.ErrorWithFields("failed to store edit", err,
			logger.WithIdentityHash(id.IdentityHash))
		return nil, errors.InternalError("failed to store edit")
	}

	applyBanDecision(record, decision, now)
	record.TotalAbuseScore += score.Total - oldScore
	if score.Total >= ScoreCooldown && oldScore < ScoreCooldown {
		record.FlaggedCommentCount++
	}
	if cooldownUpdate != nil {
		record.CooldownLevel = cooldownUpdate.NewLevel
		record.CooldownEndAt = &cooldownUpdate.EndAt
	}
	if err := s.identities.UpdateIdentity(ctx, record); err != nil {
		logger.ErrorWithFields("failed to update identity record", err,
			logger.WithIdentityHash(id.IdentityHash))
		return nil, errors.InternalError("failed to store edit")
	}

	if score.Total > 0 {
		action := models.AbuseActionAllowed
		if shadowBanned {
			action = models.AbuseActionShadowBan
		} else if score.Total >= ScoreCooldown {
			action = models.AbuseActionCooldown
		}
		s.logAbuse(ctx, id.IdentityHash, &comment.ID, score, action)
	}

	result := &SubmitResult{
		Comment:      comment,
		Score:        score,
		ShadowBanned: shadowBanned,
		Cooldown:     GetCooldownState(record.CooldownLevel, record.CooldownEndAt, now),
		Identity:     record,
	}
	return result, nil
}

// Report files a community report against a comment and re-evaluates
// the author's standing against the report thresholds.
func (s *Service) Report(ctx context.Context, signals identity.Signals, commentID, reason string) *errors.APIError {
	reporter := s.resolver.Resolve(signals)

	comment, err := s.comments.GetComment(ctx, commentID)
	if err != nil {
		if err == repository.ErrCommentNotFound {
			return errors.NotFound("comment")
		}
		return errors.InternalError("failed to load comment")
	}
	if comment.IdentityHash == reporter.IdentityHash {
		return errors.BadRequest("cannot report your own comment")
	}

	err = s.comments.CreateReport(ctx, &models.CommentReport{
		CommentID:    comment.ID,
		ReporterHash: reporter.IdentityHash,
		Reason:       reason,
	})
	if err == repository.ErrDuplicateReport {
		metrics.Get().ReportsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}
	if err != nil {
		return errors.InternalError("failed to store report")
	}
	metrics.Get().ReportsTotal.WithLabelValues("accepted").Inc()

	unlock := s.lockIdentity(comment.IdentityHash)
	defer unlock()

	if err := s.identities.IncrementReportCount(ctx, comment.IdentityHash); err != nil {
		return errors.InternalError("failed to update identity")
	}
	record, err := s.identities.GetIdentity(ctx, comment.IdentityHash)
	if err != nil {
		return errors.InternalError("failed to load identity")
	}

	now := s.now()
	history, err := s.buildHistory(ctx, record, now)
	if err != nil {
		return errors.InternalError("failed to evaluate reports")
	}

	decision := EvaluateAbuseHistory(history, now)
	if record.IsAdminUnbanned {
		// Forgiven identities are not re-banned off old history
		return nil
	}
	if decision.ShouldAutoBan || decision.ShouldShadowBan {
		applyBanDecision(record, decision, now)
		if err := s.identities.UpdateIdentity(ctx, record); err != nil {
			return errors.InternalError("failed to update identity")
		}
		logger.WarnWithFields("identity banned via community reports",
			logger.WithIdentityHash(comment.IdentityHash),
			zap.String("reason", decision.Reason),
			zap.Int("reports", record.ReportCount))
	}

	return nil
}

// ResolveViewer returns the viewer identity hash for read paths
func (s *Service) ResolveViewer(signals identity.Signals) string {
	return s.resolver.Resolve(signals).IdentityHash
}
