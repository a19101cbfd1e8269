// Package otp implements passwordless login: short-lived single-use SMS codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/xlink-api/internal/domain"
	"github.com/xlink-api/internal/pkg/id"
	"github.com/xlink-api/internal/pkg/phone"
	pkgtoken "github.com/xlink-api/internal/pkg/token"
)

const codeDigits = 6

type UserRepository interface {
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type CodeRepository interface {
	Insert(ctx context.Context, c *domain.OneTimeCode) error
	FindLatestValid(ctx context.Context, userID, code string, now int64) (*domain.OneTimeCode, error)
	Delete(ctx context.Context, userID, codeID string) error
	ExpireAllForUser(ctx context.Context, userID string, now int64) error
}

type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
}

// RateLimiter is the per-identity issuance cooldown. Acquire returns false
// while a marker from a previous issuance is still live.
type RateLimiter interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type JWTSigner interface {
	Sign(userID, sessionID string) (string, error)
}

// IssueResult reports a successful code issuance.
type IssueResult struct {
	UserID      string `json:"user_id"`
	MaskedPhone string `json:"masked_phone"`
	NewAccount  bool   `json:"new_account"`
}

// AuthResult reports a successful verification with an established session.
type AuthResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	// RequestCode issues a fresh code for the phone and delivers it via SMS.
	// fullName non-empty marks the signup flow, which may create the account;
	// the login flow fails closed with ErrNotFound for unknown phones.
	// Expected failures: ErrBadRequest, ErrRateLimited, ErrNotFound,
	// ErrDeliveryFailed (code persisted but SMS send failed).
	RequestCode(ctx context.Context, rawPhone, fullName string) (*IssueResult, error)

	// VerifyCode consumes the latest valid matching code and establishes a
	// session. Wrong and expired codes are indistinguishable to the caller
	// (both ErrUnauthorized); an unknown phone is ErrNotFound.
	VerifyCode(ctx context.Context, rawPhone, code string) (*AuthResult, error)
}

type ServiceDeps struct {
	UserRepo        UserRepository
	CodeRepo        CodeRepository
	SessionRepo     SessionRepository
	RateLimiter     RateLimiter
	SMSSender       SMSSender
	JWTProvider     JWTSigner
	CodeTTL         time.Duration
	RequestCooldown time.Duration
	RefreshTokenDur time.Duration
	Now             func() time.Time
}

type service struct {
	users    UserRepository
	codes    CodeRepository
	sessions SessionRepository
	limiter  RateLimiter
	sms      SMSSender
	jwt      JWTSigner

	codeTTL         time.Duration
	cooldown        time.Duration
	refreshTokenDur time.Duration
	now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:           deps.UserRepo,
		codes:           deps.CodeRepo,
		sessions:        deps.SessionRepo,
		limiter:         deps.RateLimiter,
		sms:             deps.SMSSender,
		jwt:             deps.JWTProvider,
		codeTTL:         deps.CodeTTL,
		cooldown:        deps.RequestCooldown,
		refreshTokenDur: deps.RefreshTokenDur,
		now:             now,
	}
}

func (s *service) RequestCode(ctx context.Context, rawPhone, fullName string) (*IssueResult, error) {
	if s.sms == nil {
		return nil, errors.New("sms sender not configured")
	}
	normalized := phone.Normalize(rawPhone)
	if !phone.IsValid(normalized) {
		return nil, fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}

	ok, err := s.limiter.Acquire(ctx, normalized, s.cooldown)
	if err != nil {
		return nil, fmt.Errorf("acquire rate-limit marker: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("code requested too recently: %w", domain.ErrRateLimited)
	}

	now := s.now().UTC()
	newAccount := false
	u, err := s.users.GetByPhone(ctx, normalized)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("look up user by phone: %w", err)
		}
		// Only the signup flow may create accounts; login fails closed.
		if fullName == "" {
			return nil, fmt.Errorf("no account for phone: %w", domain.ErrNotFound)
		}
		u = &domain.User{
			UserID:    id.New(),
			Phone:     normalized,
			FullName:  fullName,
			Enable:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.users.Put(ctx, u); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		newAccount = true
	}

	// Reissuing invalidates everything outstanding, so at most one code is
	// verifiable at any time.
	if err := s.codes.ExpireAllForUser(ctx, u.UserID, now.Unix()); err != nil {
		return nil, fmt.Errorf("expire outstanding codes: %w", err)
	}

	code, err := randomCode(codeDigits)
	if err != nil {
		return nil, err
	}
	otc := &domain.OneTimeCode{
		UserID:    u.UserID,
		CodeID:    id.New(),
		Code:      code,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.codeTTL).Unix(),
	}
	if err := s.codes.Insert(ctx, otc); err != nil {
		return nil, fmt.Errorf("persist one-time code: %w", err)
	}

	if err := s.sms.SendSMS(ctx, normalized, "X-Link login code: "+code); err != nil {
		// The code is already persisted and stays valid; the caller should
		// offer a resend, which supersedes it.
		return nil, fmt.Errorf("send login code: %w", domain.ErrDeliveryFailed)
	}

	return &IssueResult{
		UserID:      u.UserID,
		MaskedPhone: phone.Mask(normalized),
		NewAccount:  newAccount,
	}, nil
}

func (s *service) VerifyCode(ctx context.Context, rawPhone, code string) (*AuthResult, error) {
	if s.jwt == nil {
		return nil, errors.New("token signer not configured")
	}
	normalized := phone.Normalize(rawPhone)
	u, err := s.users.GetByPhone(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("look up user by phone: %w", err)
	}

	now := s.now().UTC()
	otc, err := s.codes.FindLatestValid(ctx, u.UserID, code, now.Unix())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deliberately the same answer for wrong and expired: no oracle
			// about code freshness.
			return nil, fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("look up code: %w", err)
	}

	if err := s.codes.Delete(ctx, u.UserID, otc.CodeID); err != nil {
		slog.Warn("failed to delete consumed code", "user_id", u.UserID, "code_id", otc.CodeID, "err", err)
	}

	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	bearer, err := s.jwt.Sign(u.UserID, sess.SessionID)
	if err != nil {
		return nil, fmt.Errorf("sign bearer: %w", err)
	}
	sess.User = u
	return &AuthResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

// randomCode returns a uniform random numeric string of n digits.
func randomCode(n int) (string, error) {
	bound := big.NewInt(1)
	for i := 0; i < n; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
