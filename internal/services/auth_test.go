package services

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/auth"
	"github.com/nextgendevs/ng-backend/internal/logging"
	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/models"
	fakes "github.com/nextgendevs/ng-backend/internal/testutil"
	"github.com/nextgendevs/ng-backend/pkg/utils"
)

const strongPassword = "Sup3r$ecret"

type authFixture struct {
	svc     *AuthService
	users   *fakes.Users
	devices *fakes.Devices
	mailer  *fakes.Mailer
	redis   *miniredis.Miniredis
	signer  *auth.Signer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr, client := newMiniredis(t)
	fx := &authFixture{
		users:   fakes.NewUsers(),
		devices: fakes.NewDevices(),
		mailer:  &fakes.Mailer{},
		redis:   mr,
		signer:  auth.NewSigner("test-secret"),
	}
	fx.svc = NewAuthService(fx.users, fx.devices, NewRedisCache(client), NewSessionStore(client, time.Hour), fx.mailer, fx.signer, metrics.New(), logging.Discard(), AuthConfig{
		BaseURL:    "https://api.example.com",
		SessionTTL: time.Hour,
		SignupTTL:  10 * time.Minute,
	})
	return fx
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/activate", u.Path)
	return u.Query().Get("token")
}

func TestSignupActivateLogin(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Signup(ctx, "Ann", "ann@example.com", strongPassword)
	require.NoError(t, err)
	pendingID, err := fx.svc.ParseSession(ctx, session)
	require.NoError(t, err)

	mail, ok := fx.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", mail.To)
	assert.True(t, fx.redis.Exists(TempUserKey(pendingID)))
	assert.True(t, fx.redis.Exists(VerifyEmailKey("ann@example.com")))

	// Not persisted until activation
	_, found := fx.users.Get(pendingID)
	assert.False(t, found)

	require.NoError(t, fx.svc.Activate(ctx, tokenFromLink(t, mail.Link)))

	created, found := fx.users.Get(pendingID)
	require.True(t, found)
	assert.True(t, created.Activated)
	assert.NotEqual(t, strongPassword, created.Password)
	assert.False(t, fx.redis.Exists(TempUserKey(pendingID)))
	assert.False(t, fx.redis.Exists(VerifyEmailKey("ann@example.com")))

	user, loginSession, err := fx.svc.Login(ctx, "ann@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, pendingID, user.UserID)
	assert.Equal(t, []string{}, user.Devices)
	sub, err := fx.svc.ParseSession(ctx, loginSession)
	require.NoError(t, err)
	assert.Equal(t, pendingID, sub)
}

func TestActivate_TokenWorksOnce(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Signup(ctx, "Ann", "ann@example.com", strongPassword)
	require.NoError(t, err)
	mail, _ := fx.mailer.Last()
	token := tokenFromLink(t, mail.Link)

	require.NoError(t, fx.svc.Activate(ctx, token))
	assertKind(t, fx.svc.Activate(ctx, token), apperr.KindUnauthorized)
	assert.True(t, fx.redis.Exists(UsedTokenKey(token)))
}

func TestActivate_ReleasesTokenWhenCreateFails(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Signup(ctx, "Ann", "ann@example.com", strongPassword)
	require.NoError(t, err)
	mail, _ := fx.mailer.Last()
	token := tokenFromLink(t, mail.Link)

	fx.users.Err = errors.New("db down")
	assertKind(t, fx.svc.Activate(ctx, token), apperr.KindUnexpected)
	assert.False(t, fx.redis.Exists(UsedTokenKey(token)))

	fx.users.Err = nil
	require.NoError(t, fx.svc.Activate(ctx, token))
}

func TestActivate_BadTokens(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	assertKind(t, fx.svc.Activate(ctx, ""), apperr.KindInvalidParameter)
	assertKind(t, fx.svc.Activate(ctx, "nope"), apperr.KindUnauthorized)

	session, err := fx.signer.Issue(auth.AudienceSession, "usr00001", time.Hour)
	require.NoError(t, err)
	assertKind(t, fx.svc.Activate(ctx, session), apperr.KindUnauthorized)

	// Valid token but the temporary user expired from the cache
	orphan, err := fx.signer.Issue(auth.AudienceVerifyEmail, "usr00001", time.Hour)
	require.NoError(t, err)
	assertKind(t, fx.svc.Activate(ctx, orphan), apperr.KindUnexpected)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Signup(ctx, "Ann", "ann@example.com", strongPassword)
	require.NoError(t, err)

	// Pending verification blocks a second signup
	_, err = fx.svc.Signup(ctx, "Ann", "ann@example.com", strongPassword)
	e := assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, "email", e.Field)

	_, err = fx.users.Create(ctx, &models.User{UserID: "usr00002", Email: "bob@example.com"})
	require.NoError(t, err)
	_, err = fx.svc.Signup(ctx, "Bob", "bob@example.com", strongPassword)
	assertKind(t, err, apperr.KindConflict)
}

func TestSignup_MailFailureReleasesEmail(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.mailer.Err = errors.New("smtp down")

	_, err := fx.svc.Signup(ctx, "Ann", "ann@example.com", strongPassword)
	assertKind(t, err, apperr.KindUnexpected)
	assert.False(t, fx.redis.Exists(VerifyEmailKey("ann@example.com")))

	fx.mailer.Err = nil
	_, err = fx.svc.Signup(ctx, "Ann", "ann@example.com", strongPassword)
	require.NoError(t, err)
}

func TestSignup_Validation(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Signup(ctx, "", "ann@example.com", strongPassword)
	assert.Equal(t, "name", assertKind(t, err, apperr.KindInvalidParameter).Field)

	_, err = fx.svc.Signup(ctx, "Ann", "not-an-email", strongPassword)
	assert.Equal(t, "email", assertKind(t, err, apperr.KindInvalidParameter).Field)

	_, err = fx.svc.Signup(ctx, "Ann", "ann@example.com", "weakpassword")
	e := assertKind(t, err, apperr.KindInvalidParameter)
	assert.Equal(t, apperr.MsgWeakPassword, e.Message)

	_, err = fx.svc.Signup(ctx, "Ann", "ann@example.com", "Sh0rt!")
	assert.Equal(t, "password", assertKind(t, err, apperr.KindInvalidParameter).Field)
}

func TestLogin_Failures(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	hash, err := utils.HashPassword(strongPassword)
	require.NoError(t, err)
	_, err = fx.users.Create(ctx, &models.User{UserID: "usr00001", Email: "ann@example.com", Password: hash, Activated: true})
	require.NoError(t, err)

	_, _, err = fx.svc.Login(ctx, "nobody@example.com", strongPassword)
	assertKind(t, err, apperr.KindNotFound)

	_, _, err = fx.svc.Login(ctx, "ann@example.com", "Wr0ng!pass")
	assertKind(t, err, apperr.KindUnauthorized)

	require.NoError(t, fx.users.Deactivate(ctx, "usr00001", time.Now()))
	_, _, err = fx.svc.Login(ctx, "ann@example.com", strongPassword)
	assertKind(t, err, apperr.KindForbidden)
}

func TestParseSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.svc.ParseSession(ctx, "")
	assert.Equal(t, apperr.MsgNotLoggedIn, assertKind(t, err, apperr.KindUnauthorized).Message)

	_, err = fx.svc.ParseSession(ctx, "junk")
	assert.Equal(t, apperr.MsgInvalidToken, assertKind(t, err, apperr.KindUnauthorized).Message)

	expired, err := auth.NewSigner("test-secret").Issue(auth.AudienceSession, "usr00001", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = fx.svc.ParseSession(ctx, expired)
	e := assertKind(t, err, apperr.KindUnauthorized)
	assert.Equal(t, apperr.MsgTokenExpired("login"), e.Message)
}

func TestLogout_RevokesSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	session, err := fx.signer.Issue(auth.AudienceSession, "usr00001", time.Hour)
	require.NoError(t, err)
	other, err := fx.signer.Issue(auth.AudienceSession, "usr00001", time.Hour)
	require.NoError(t, err)

	require.NoError(t, fx.svc.Logout(ctx, session))

	_, err = fx.svc.ParseSession(ctx, session)
	assert.Equal(t, apperr.MsgNotLoggedIn, assertKind(t, err, apperr.KindUnauthorized).Message)

	sub, err := fx.svc.ParseSession(ctx, other)
	require.NoError(t, err, "other sessions stay valid")
	assert.Equal(t, "usr00001", sub)

	assert.NoError(t, fx.svc.Logout(ctx, ""))
	assert.NoError(t, fx.svc.Logout(ctx, "junk"))
}
