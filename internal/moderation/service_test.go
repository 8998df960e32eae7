package moderation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/waveground/backend/internal/errors"
	"github.com/waveground/backend/internal/identity"
	"github.com/waveground/backend/internal/logger"
	"github.com/waveground/backend/internal/models"
	"github.com/waveground/backend/internal/repository"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.CommentIdentity{},
		&models.Comment{},
		&models.CommentAbuseLog{},
		&models.CommentReport{},
	)
	require.NoError(t, err)

	return db
}

type testPipeline struct {
	service    *Service
	identities repository.IdentityRepository
	comments   repository.CommentRepository
	resolver   *identity.Resolver
	clock      time.Time
}

func setupPipeline(t *testing.T) *testPipeline {
	require.NoError(t, logger.Initialize("error", filepath.Join(t.TempDir(), "test.log")))
	db := setupTestDB(t)
	resolver, err := identity.NewResolver("test-secret")
	require.NoError(t, err)

	identities := repository.NewIdentityRepository(db)
	comments := repository.NewCommentRepository(db)

	p := &testPipeline{
		identities: identities,
		comments:   comments,
		resolver:   resolver,
		clock:      time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	p.service = NewService(resolver, identities, comments)
	p.service.now = func() time.Time { return p.clock }
	return p
}

func (p *testPipeline) advance(d time.Duration) {
	p.clock = p.clock.Add(d)
}

func signalsFor(name string) identity.Signals {
	return identity.Signals{
		IPAddress:      "203.0.113.7",
		UserAgent:      "test-agent",
		SessionID:      "session-" + name,
		LocalStorageID: "local-" + name,
	}
}

func TestSubmitCleanComment(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "really enjoying this track")
	require.Nil(t, apiErr)

	assert.NotEmpty(t, result.Comment.ID)
	assert.Equal(t, "post-1", result.Comment.PostID)
	assert.False(t, result.Comment.IsHidden)
	assert.False(t, result.ShadowBanned)
	assert.False(t, result.Cooldown.IsActive)
	assert.True(t, IsGeneratedUsername(result.Comment.Username), "got %q", result.Comment.Username)

	assert.Equal(t, 1, result.Identity.TotalComments)
	assert.Equal(t, 0, result.Identity.TotalAbuseScore)
}

func TestSubmitKeepsUsernameStable(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	first, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "first comment")
	require.Nil(t, apiErr)
	second, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-2", "second comment")
	require.Nil(t, apiErr)

	assert.Equal(t, first.Comment.Username, second.Comment.Username)
}

func TestSubmitValidation(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	_, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "   ")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrInvalidContent, apiErr.Code)

	_, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", "check out www.example.com")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrContainsLink, apiErr.Code)

	_, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", "aaaaaaaaaaaaaaaa")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrInvalidContent, apiErr.Code)
}

func TestSubmitMasksProfanityInStoredContent(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "fuck this mix")
	require.Nil(t, apiErr)
	assert.Equal(t, "**** this mix", result.Comment.Content)
}

func TestSubmitFirstOffenseCooldown(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	// Score 5 spam starts the cooldown ladder at the lowest level
	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "buy now before it runs out")
	require.Nil(t, apiErr)
	assert.Equal(t, models.CooldownShort, result.Identity.CooldownLevel)
	assert.True(t, result.Cooldown.IsActive)
	assert.Equal(t, int64(5000), result.Cooldown.RemainingMs)

	// Posting during the cooldown is rejected without mutating state
	_, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", "a perfectly fine comment")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrCooldownActive, apiErr.Code)
	assert.Greater(t, apiErr.RetryAfterMs, int64(0))

	// After the cooldown expires a clean comment goes through and the
	// level persists without escalating
	p.advance(6 * time.Second)
	result, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", "a perfectly fine comment")
	require.Nil(t, apiErr)
	assert.Equal(t, models.CooldownShort, result.Identity.CooldownLevel)
	assert.False(t, result.Cooldown.IsActive)
}

func TestSubmitRepeatedAbuseEscalates(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	// Score 8: one sexual pattern plus one spam phrase
	abusive := "rape buy now"

	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", abusive)
	require.Nil(t, apiErr)
	assert.Equal(t, models.CooldownShort, result.Identity.CooldownLevel)

	p.advance(6 * time.Second)
	result, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", abusive)
	require.Nil(t, apiErr)
	assert.Equal(t, models.CooldownMedium, result.Identity.CooldownLevel)

	p.advance(31 * time.Second)
	result, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", abusive)
	require.Nil(t, apiErr)
	assert.Equal(t, models.CooldownLong, result.Identity.CooldownLevel)

	// Fourth strike inside the window counts as repeated abuse and
	// jumps two levels; the pattern check also shadow bans by now
	p.advance(3 * time.Minute)
	result, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", abusive)
	require.Nil(t, apiErr)
	assert.Equal(t, models.CooldownExtreme, result.Identity.CooldownLevel)
	assert.True(t, result.ShadowBanned)
	assert.True(t, result.Comment.IsHidden)
}

func TestSubmitThreatAutoBans(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	_, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "i will kill you")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrBanned, apiErr.Code)

	// The comment was rejected, not stored
	comments, err := p.comments.ListAllComments(ctx, "post-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)

	// But the verdict landed on the identity
	id := p.resolver.Resolve(signalsFor("alice"))
	record, err := p.identities.GetIdentity(ctx, id.IdentityHash)
	require.NoError(t, err)
	assert.True(t, record.IsAutoBanned)

	// And the identity stays locked out for clean content too
	_, apiErr = p.service.Submit(ctx, signalsFor("alice"), "post-1", "sorry about that")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrBanned, apiErr.Code)
}

func TestSubmitShadowBanContainment(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	// Single hate speech comment shadow bans without blocking
	result, apiErr := p.service.Submit(ctx, signalsFor("troll"), "post-1", "faggot")
	require.Nil(t, apiErr)
	assert.True(t, result.ShadowBanned)
	assert.True(t, result.Comment.IsHidden)

	// A later clean comment from the same identity stays hidden
	p.advance(time.Hour)
	result, apiErr = p.service.Submit(ctx, signalsFor("troll"), "post-1", "hello everyone")
	require.Nil(t, apiErr)
	assert.True(t, result.ShadowBanned)
	assert.True(t, result.Comment.IsHidden)

	// The author sees their own comments; other viewers do not
	trollHash := p.resolver.Resolve(signalsFor("troll")).IdentityHash
	otherHash := p.resolver.Resolve(signalsFor("bystander")).IdentityHash

	own, err := p.comments.ListComments(ctx, "post-1", trollHash, 50, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	public, err := p.comments.ListComments(ctx, "post-1", otherHash, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, public)
}

func TestRepeatedHateSpeechAutoBans(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	// First two incidents are contained as shadow bans
	result, apiErr := p.service.Submit(ctx, signalsFor("troll"), "post-1", "faggot")
	require.Nil(t, apiErr)
	assert.True(t, result.ShadowBanned)

	p.advance(time.Minute)
	result, apiErr = p.service.Submit(ctx, signalsFor("troll"), "post-1", "dyke")
	require.Nil(t, apiErr)
	assert.True(t, result.ShadowBanned)

	// With two incidents on record the third crosses zero tolerance
	p.advance(5 * time.Minute)
	_, apiErr = p.service.Submit(ctx, signalsFor("troll"), "post-1", "tranny")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrBanned, apiErr.Code)
}

func TestEditRescoresWithoutCountingANewComment(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "pretty good stuff")
	require.Nil(t, apiErr)
	commentID := result.Comment.ID

	p.advance(time.Minute)
	edited, apiErr := p.service.Edit(ctx, signalsFor("alice"), commentID, "rape")
	require.Nil(t, apiErr)

	assert.True(t, edited.Comment.IsEdited)
	assert.NotNil(t, edited.Comment.EditedAt)
	assert.Equal(t, 3, edited.Comment.AbuseScore)

	// Edits count score deltas but never comment volume
	assert.Equal(t, 1, edited.Identity.TotalComments)
	assert.Equal(t, 3, edited.Identity.TotalAbuseScore)
	assert.Equal(t, models.CooldownShort, edited.Identity.CooldownLevel)
}

func TestEditRequiresSameIdentity(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "original content")
	require.Nil(t, apiErr)

	_, apiErr = p.service.Edit(ctx, signalsFor("mallory"), result.Comment.ID, "tampered content")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrForbidden, apiErr.Code)
}

func TestEditUnknownComment(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	_, apiErr := p.service.Edit(ctx, signalsFor("alice"), "no-such-id", "whatever")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrNotFound, apiErr.Code)
}

func TestReportFlow(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "borderline comment")
	require.Nil(t, apiErr)
	commentID := result.Comment.ID
	authorHash := result.Comment.IdentityHash

	// Someone else reports it
	apiErr = p.service.Report(ctx, signalsFor("bob"), commentID, "abusive")
	require.Nil(t, apiErr)

	record, err := p.identities.GetIdentity(ctx, authorHash)
	require.NoError(t, err)
	assert.Equal(t, 1, record.ReportCount)

	// The same reporter again is a silent no-op
	apiErr = p.service.Report(ctx, signalsFor("bob"), commentID, "still abusive")
	require.Nil(t, apiErr)

	record, err = p.identities.GetIdentity(ctx, authorHash)
	require.NoError(t, err)
	assert.Equal(t, 1, record.ReportCount)

	// Reporting your own comment is rejected
	apiErr = p.service.Report(ctx, signalsFor("alice"), commentID, "self report")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrBadRequest, apiErr.Code)
}

func TestReportThresholdShadowBans(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, apiErr := p.service.Submit(ctx, signalsFor("author"), "post-1", "unpopular opinion")
	require.Nil(t, apiErr)
	commentID := result.Comment.ID
	authorHash := result.Comment.IdentityHash

	reporters := []string{"r1", "r2", "r3", "r4", "r5"}
	for _, r := range reporters {
		apiErr = p.service.Report(ctx, signalsFor(r), commentID, "spam")
		require.Nil(t, apiErr)
	}

	record, err := p.identities.GetIdentity(ctx, authorHash)
	require.NoError(t, err)
	assert.Equal(t, 5, record.ReportCount)
	assert.True(t, record.IsShadowBanned)
	assert.False(t, record.IsAutoBanned)
}

func TestAdminUnbanSuppressesAutoBan(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	_, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "i will kill you")
	require.NotNil(t, apiErr)

	id := p.resolver.Resolve(signalsFor("alice"))
	record, err := p.identities.GetIdentity(ctx, id.IdentityHash)
	require.NoError(t, err)
	require.True(t, record.IsAutoBanned)

	// Admin lifts the ban
	record.IsAdminUnbanned = true
	require.NoError(t, p.identities.UpdateIdentity(ctx, record))

	result, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "thanks for the second chance")
	require.Nil(t, apiErr)
	assert.False(t, result.ShadowBanned)
	assert.False(t, result.Comment.IsHidden)
}

func TestSubmitWritesAbuseLog(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	_, apiErr := p.service.Submit(ctx, signalsFor("alice"), "post-1", "rape buy now")
	require.Nil(t, apiErr)

	id := p.resolver.Resolve(signalsFor("alice"))
	logs, err := p.identities.RecentAbuse(ctx, id.IdentityHash, p.clock.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 8, logs[0].Score)
	assert.Equal(t, models.AbuseActionCooldown, logs[0].Action)
	assert.NotEmpty(t, logs[0].MatchedWords)
}
