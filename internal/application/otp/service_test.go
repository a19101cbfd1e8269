package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xlink-api/internal/domain"
)

// --- mocks ---

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

type mockCodeRepo struct{ mock.Mock }

func (m *mockCodeRepo) Insert(ctx context.Context, c *domain.OneTimeCode) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCodeRepo) FindLatestValid(ctx context.Context, userID, code string, now int64) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, userID, code, now)
	if c, _ := args.Get(0).(*domain.OneTimeCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeRepo) Delete(ctx context.Context, userID, codeID string) error {
	return m.Called(ctx, userID, codeID).Error(0)
}
func (m *mockCodeRepo) ExpireAllForUser(ctx context.Context, userID string, now int64) error {
	return m.Called(ctx, userID, now).Error(0)
}

type mockSessionRepo struct{ mock.Mock }

func (m *mockSessionRepo) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

type mockLimiter struct{ mock.Mock }

func (m *mockLimiter) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, sessionID string) (string, error) {
	args := m.Called(userID, sessionID)
	return args.String(0), args.Error(1)
}

// --- fixture ---

var frozenNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users    *mockUserRepo
	codes    *mockCodeRepo
	sessions *mockSessionRepo
	limiter  *mockLimiter
	sms      *mockSMS
	signer   *mockSigner
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		users:    &mockUserRepo{},
		codes:    &mockCodeRepo{},
		sessions: &mockSessionRepo{},
		limiter:  &mockLimiter{},
		sms:      &mockSMS{},
		signer:   &mockSigner{},
	}
	f.svc = NewService(ServiceDeps{
		UserRepo:        f.users,
		CodeRepo:        f.codes,
		SessionRepo:     f.sessions,
		RateLimiter:     f.limiter,
		SMSSender:       f.sms,
		JWTProvider:     f.signer,
		CodeTTL:         2 * time.Minute,
		RequestCooldown: time.Minute,
		RefreshTokenDur: 24 * time.Hour,
		Now:             func() time.Time { return frozenNow },
	})
	return f
}

func existingUser() *domain.User {
	return &domain.User{UserID: "u1", Phone: "09121234567", FullName: "Test User", Enable: true}
}

// --- RequestCode ---

func TestRequestCode_InvalidPhone(t *testing.T) {
	f := newFixture()

	_, err := f.svc.RequestCode(context.Background(), "12345", "")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.limiter.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_Cooldown(t *testing.T) {
	f := newFixture()
	f.limiter.On("Acquire", mock.Anything, "09121234567", time.Minute).Return(false, nil)

	_, err := f.svc.RequestCode(context.Background(), "+989121234567", "")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	f.users.AssertNotCalled(t, "GetByPhone", mock.Anything, mock.Anything)
	f.codes.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRequestCode_LoginUnknownPhoneFailsClosed(t *testing.T) {
	f := newFixture()
	f.limiter.On("Acquire", mock.Anything, "09121234567", time.Minute).Return(true, nil)
	f.users.On("GetByPhone", mock.Anything, "09121234567").Return(nil, domain.ErrNotFound)

	_, err := f.svc.RequestCode(context.Background(), "09121234567", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.users.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	f.codes.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRequestCode_SignupCreatesAccount(t *testing.T) {
	f := newFixture()
	f.limiter.On("Acquire", mock.Anything, "09121234567", time.Minute).Return(true, nil)
	f.users.On("GetByPhone", mock.Anything, "09121234567").Return(nil, domain.ErrNotFound)
	f.users.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Phone == "09121234567" && u.FullName == "New User" && u.Enable && u.UserID != ""
	})).Return(nil)
	f.codes.On("ExpireAllForUser", mock.Anything, mock.Anything, frozenNow.Unix()).Return(nil)
	f.codes.On("Insert", mock.Anything, mock.Anything).Return(nil)
	f.sms.On("SendSMS", mock.Anything, "09121234567", mock.Anything).Return(nil)

	res, err := f.svc.RequestCode(context.Background(), "0912 123 4567", "New User")
	require.NoError(t, err)
	assert.True(t, res.NewAccount)
	assert.Equal(t, "0912***4567", res.MaskedPhone)
	assert.NotEmpty(t, res.UserID)
	f.users.AssertExpectations(t)
}

func TestRequestCode_ReissueInvalidatesOutstandingCodes(t *testing.T) {
	f := newFixture()
	f.limiter.On("Acquire", mock.Anything, "09121234567", time.Minute).Return(true, nil)
	f.users.On("GetByPhone", mock.Anything, "09121234567").Return(existingUser(), nil)
	f.codes.On("ExpireAllForUser", mock.Anything, "u1", frozenNow.Unix()).Return(nil)
	f.codes.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.OneTimeCode) bool {
		return c.UserID == "u1" &&
			len(c.Code) == codeDigits &&
			c.IssuedAt == frozenNow.Unix() &&
			c.ExpiresAt == frozenNow.Add(2*time.Minute).Unix()
	})).Return(nil)
	f.sms.On("SendSMS", mock.Anything, "09121234567", mock.Anything).Return(nil)

	res, err := f.svc.RequestCode(context.Background(), "09121234567", "")
	require.NoError(t, err)
	assert.False(t, res.NewAccount)
	assert.Equal(t, "u1", res.UserID)
	f.codes.AssertExpectations(t)
}

func TestRequestCode_CodeInSMSBody(t *testing.T) {
	f := newFixture()
	var inserted string
	f.limiter.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.users.On("GetByPhone", mock.Anything, mock.Anything).Return(existingUser(), nil)
	f.codes.On("ExpireAllForUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.codes.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(*domain.OneTimeCode).Code
	}).Return(nil)
	f.sms.On("SendSMS", mock.Anything, "09121234567", mock.Anything).Return(nil)

	_, err := f.svc.RequestCode(context.Background(), "09121234567", "")
	require.NoError(t, err)

	sent := f.sms.Calls[0].Arguments.String(2)
	assert.Contains(t, sent, inserted)
}

func TestRequestCode_DeliveryFailureKeepsCode(t *testing.T) {
	f := newFixture()
	f.limiter.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.users.On("GetByPhone", mock.Anything, mock.Anything).Return(existingUser(), nil)
	f.codes.On("ExpireAllForUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.codes.On("Insert", mock.Anything, mock.Anything).Return(nil)
	f.sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("sns publish failed"))

	_, err := f.svc.RequestCode(context.Background(), "09121234567", "")
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
	// The persisted code is not rolled back; a resend supersedes it.
	f.codes.AssertCalled(t, "Insert", mock.Anything, mock.Anything)
	f.codes.AssertNumberOfCalls(t, "ExpireAllForUser", 1)
}

// --- VerifyCode ---

func TestVerifyCode_HappyPath(t *testing.T) {
	f := newFixture()
	f.users.On("GetByPhone", mock.Anything, "09121234567").Return(existingUser(), nil)
	f.codes.On("FindLatestValid", mock.Anything, "u1", "123456", frozenNow.Unix()).
		Return(&domain.OneTimeCode{UserID: "u1", CodeID: "c1", Code: "123456"}, nil)
	f.codes.On("Delete", mock.Anything, "u1", "c1").Return(nil)
	f.sessions.On("Put", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == "u1" && s.Enable && s.RefreshToken != "" &&
			s.RefreshExpiresAt == frozenNow.Add(24*time.Hour).Unix()
	})).Return(nil)
	f.signer.On("Sign", "u1", mock.Anything).Return("signed.jwt", nil)

	res, err := f.svc.VerifyCode(context.Background(), "+989121234567", "123456")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", res.Bearer)
	assert.NotEmpty(t, res.RefreshToken)
	require.NotNil(t, res.Session)
	assert.Equal(t, "u1", res.Session.UserID)
	require.NotNil(t, res.Session.User)
	assert.Equal(t, "09121234567", res.Session.User.Phone)
	f.codes.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}

func TestVerifyCode_UnknownPhone(t *testing.T) {
	f := newFixture()
	f.users.On("GetByPhone", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	_, err := f.svc.VerifyCode(context.Background(), "09121234567", "123456")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyCode_WrongOrExpiredIsUnauthorized(t *testing.T) {
	// Wrong code and expired code get the same answer.
	f := newFixture()
	f.users.On("GetByPhone", mock.Anything, mock.Anything).Return(existingUser(), nil)
	f.codes.On("FindLatestValid", mock.Anything, "u1", mock.Anything, mock.Anything).
		Return(nil, domain.ErrNotFound)

	_, err := f.svc.VerifyCode(context.Background(), "09121234567", "000000")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	f.signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

func TestVerifyCode_DeleteFailureDoesNotBlockLogin(t *testing.T) {
	f := newFixture()
	f.users.On("GetByPhone", mock.Anything, mock.Anything).Return(existingUser(), nil)
	f.codes.On("FindLatestValid", mock.Anything, "u1", "123456", mock.Anything).
		Return(&domain.OneTimeCode{UserID: "u1", CodeID: "c1", Code: "123456"}, nil)
	f.codes.On("Delete", mock.Anything, "u1", "c1").Return(errors.New("dynamo timeout"))
	f.sessions.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.signer.On("Sign", "u1", mock.Anything).Return("signed.jwt", nil)

	res, err := f.svc.VerifyCode(context.Background(), "09121234567", "123456")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", res.Bearer)
}

func TestVerifyCode_SessionPutFailure(t *testing.T) {
	f := newFixture()
	f.users.On("GetByPhone", mock.Anything, mock.Anything).Return(existingUser(), nil)
	f.codes.On("FindLatestValid", mock.Anything, "u1", "123456", mock.Anything).
		Return(&domain.OneTimeCode{UserID: "u1", CodeID: "c1", Code: "123456"}, nil)
	f.codes.On("Delete", mock.Anything, "u1", "c1").Return(nil)
	f.sessions.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo unavailable"))

	_, err := f.svc.VerifyCode(context.Background(), "09121234567", "123456")
	require.Error(t, err)
	f.signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

// --- randomCode ---

func TestRandomCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := randomCode(codeDigits)
		require.NoError(t, err)
		require.Len(t, code, codeDigits)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes should not repeat constantly")
}
