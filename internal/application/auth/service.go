package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-identity-api/internal/application/verification"
	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/pkg/id"
	"github.com/otp-identity-api/internal/pkg/mask"
	"github.com/otp-identity-api/internal/pkg/slug"
	pkgtoken "github.com/otp-identity-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

type MobileRequest struct {
	Mobile string `json:"mobile" validate:"required,mobile"`
}

type VerifyRegistrationRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Mobile    string `json:"mobile" validate:"required,mobile"`
	MobileOTP string `json:"mobile_otp" validate:"required"`
	EmailOTP  string `json:"email_otp" validate:"required"`
}

type VerifyLoginRequest struct {
	Mobile    string `json:"mobile" validate:"required,mobile"`
	MobileOTP string `json:"mobile_otp" validate:"required"`
}

type VerifyForgotPasswordRequest struct {
	Mobile    string `json:"mobile" validate:"required,mobile"`
	MobileOTP string `json:"mobile_otp" validate:"required"`
	EmailOTP  string `json:"email_otp" validate:"required"`
}

type EmailLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// IssuedCodes is what a send or resend call reports back.
type IssuedCodes struct {
	MobileOTP *string   `json:"mobile_otp,omitempty"`
	EmailOTP  *string   `json:"email_otp,omitempty"`
	ExpireAt  time.Time `json:"expire_at"`
	Message   string    `json:"-"`
}

// LoginResult is a minted access token together with the user it belongs to.
type LoginResult struct {
	domain.AccessToken
	User *domain.User `json:"user"`
}

// ExchangeToken is the single-use credential that authorises a password update.
type ExchangeToken struct {
	TempToken string    `json:"temp_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	ErrEmailTaken   = domain.ErrEmailTaken
	ErrMobileTaken  = domain.ErrMobileTaken
	ErrUnknownEmail = domain.NewError(domain.ErrNotFound, "The selected email is invalid.")
	ErrInvalidToken = domain.NewError(domain.ErrNotFound, "The selected temp token is invalid.")

	ErrPasswordTooLong = domain.NewError(domain.ErrValidation, "The password field must not be greater than 72 bytes.")
)

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*IssuedCodes, error)
	ResendRegistrationOTP(ctx context.Context, req MobileRequest) (*IssuedCodes, error)
	VerifyRegistrationOTP(ctx context.Context, req VerifyRegistrationRequest) (*LoginResult, error)
	LoginOTPSend(ctx context.Context, req MobileRequest) (*IssuedCodes, error)
	VerifyLoginOTP(ctx context.Context, req VerifyLoginRequest) (*LoginResult, error)
	ForgotPassword(ctx context.Context, req MobileRequest) (*IssuedCodes, error)
	VerifyForgotPasswordOTP(ctx context.Context, req VerifyForgotPasswordRequest) (*ExchangeToken, error)
	UpdatePassword(ctx context.Context, req domain.UpdatePasswordRequest) error
	LoginUsingEmail(ctx context.Context, req EmailLoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

type UserStore interface {
	Create(ctx context.Context, u *domain.User, rec *domain.VerificationRecord) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByMobile(ctx context.Context, mobile string) (*domain.User, error)
}

type PasswordResetStore interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordReset, error)
	Redeem(ctx context.Context, reset *domain.PasswordReset, passwordHash string) error
}

// Verifier is the code issuance and verification workflow.
type Verifier interface {
	NewRecord(userID string, purpose domain.Purpose, ch verification.Channels) (*domain.VerificationRecord, error)
	Deliver(u *domain.User, rec *domain.VerificationRecord)
	Issue(ctx context.Context, u *domain.User, purpose domain.Purpose, ch verification.Channels) (*domain.VerificationRecord, error)
	Verify(ctx context.Context, userID string, purpose domain.Purpose, sub verification.Submitted, effects domain.ConsumeEffects) error
}

// Sessions mints and revokes access tokens.
type Sessions interface {
	Issue(ctx context.Context, u *domain.User) (*domain.AccessToken, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, userID string) error
}

type ServiceDeps struct {
	UserRepo          UserStore
	PasswordResetRepo PasswordResetStore
	Verifier          Verifier
	Sessions          Sessions
	OTPTTL            time.Duration
	ResetTokenTTL     time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost when zero.
	BcryptCost int
}

type service struct {
	userRepo  UserStore
	resetRepo PasswordResetStore
	verifier  Verifier
	sessions  Sessions
	otpTTL    time.Duration
	resetTTL  time.Duration
	cost      int
	now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		userRepo:  deps.UserRepo,
		resetRepo: deps.PasswordResetRepo,
		verifier:  deps.Verifier,
		sessions:  deps.Sessions,
		otpTTL:    deps.OTPTTL,
		resetTTL:  deps.ResetTokenTTL,
		cost:      cost,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*IssuedCodes, error) {
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.userRepo.GetByMobile(ctx, req.Mobile); err == nil {
		return nil, ErrMobileTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup mobile: %w", err)
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &domain.User{
		UserID:       id.New(),
		Name:         req.Name,
		Username:     slug.Make(req.Name, "_"),
		Email:        req.Email,
		MobileNo:     req.Mobile,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	rec, err := s.verifier.NewRecord(u.UserID, domain.PurposeRegistration, verification.Both)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, u, rec); err != nil {
		return nil, err
	}
	s.verifier.Deliver(u, rec)

	return &IssuedCodes{
		MobileOTP: rec.MobileOTP,
		EmailOTP:  rec.EmailOTP,
		ExpireAt:  rec.ExpireAt,
		Message:   fmt.Sprintf("We have sent OTP your mobile number & email. OTPs expire within %s.", s.window()),
	}, nil
}

func (s *service) ResendRegistrationOTP(ctx context.Context, req MobileRequest) (*IssuedCodes, error) {
	u, err := s.userByMobile(ctx, req.Mobile)
	if err != nil {
		return nil, err
	}
	rec, err := s.verifier.Issue(ctx, u, domain.PurposeRegistration, verification.Both)
	if err != nil {
		return nil, err
	}
	return s.sentToBoth(u, rec), nil
}

func (s *service) VerifyRegistrationOTP(ctx context.Context, req VerifyRegistrationRequest) (*LoginResult, error) {
	u, err := s.userByMobile(ctx, req.Mobile)
	if err != nil {
		return nil, err
	}
	if u.Email != req.Email {
		return nil, ErrUnknownEmail
	}
	err = s.verifier.Verify(ctx, u.UserID, domain.PurposeRegistration,
		verification.Submitted{MobileOTP: &req.MobileOTP, EmailOTP: &req.EmailOTP},
		domain.ConsumeEffects{MarkEmailVerified: true, MarkMobileVerified: true})
	if err != nil {
		return nil, err
	}

	// Reload so the returned user carries the committed verification timestamps.
	if fresh, err := s.userRepo.Get(ctx, u.UserID); err == nil {
		u = fresh
	} else {
		slog.Warn("failed to reload user after verification", "user_id", u.UserID, "err", err)
	}
	return s.login(ctx, u)
}

func (s *service) LoginOTPSend(ctx context.Context, req MobileRequest) (*IssuedCodes, error) {
	u, err := s.userByMobile(ctx, req.Mobile)
	if err != nil {
		return nil, err
	}
	if !u.FullyVerified() {
		return nil, domain.ErrUnverifiedAccount
	}
	rec, err := s.verifier.Issue(ctx, u, domain.PurposeLogin, verification.MobileOnly)
	if err != nil {
		return nil, err
	}
	return &IssuedCodes{
		MobileOTP: rec.MobileOTP,
		ExpireAt:  rec.ExpireAt,
		Message: fmt.Sprintf("We have sent OTP your registered mobile number(%s). OTPs expire within %s.",
			mask.Contact(u.MobileNo), s.window()),
	}, nil
}

func (s *service) VerifyLoginOTP(ctx context.Context, req VerifyLoginRequest) (*LoginResult, error) {
	u, err := s.userByMobile(ctx, req.Mobile)
	if err != nil {
		return nil, err
	}
	err = s.verifier.Verify(ctx, u.UserID, domain.PurposeLogin,
		verification.Submitted{MobileOTP: &req.MobileOTP}, domain.ConsumeEffects{})
	if err != nil {
		return nil, err
	}
	return s.login(ctx, u)
}

func (s *service) ForgotPassword(ctx context.Context, req MobileRequest) (*IssuedCodes, error) {
	u, err := s.userByMobile(ctx, req.Mobile)
	if err != nil {
		return nil, err
	}
	rec, err := s.verifier.Issue(ctx, u, domain.PurposePasswordReset, verification.Both)
	if err != nil {
		return nil, err
	}
	return s.sentToBoth(u, rec), nil
}

func (s *service) VerifyForgotPasswordOTP(ctx context.Context, req VerifyForgotPasswordRequest) (*ExchangeToken, error) {
	u, err := s.userByMobile(ctx, req.Mobile)
	if err != nil {
		return nil, err
	}
	raw, err := pkgtoken.New()
	if err != nil {
		return nil, err
	}
	now := s.now()
	reset := &domain.PasswordReset{
		UserID:    u.UserID,
		TokenHash: pkgtoken.Hash(raw),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	reset.TTL = reset.ExpiresAt.Unix()

	err = s.verifier.Verify(ctx, u.UserID, domain.PurposePasswordReset,
		verification.Submitted{MobileOTP: &req.MobileOTP, EmailOTP: &req.EmailOTP},
		domain.ConsumeEffects{PasswordReset: reset})
	if err != nil {
		return nil, err
	}
	return &ExchangeToken{TempToken: raw, ExpiresAt: reset.ExpiresAt}, nil
}

func (s *service) UpdatePassword(ctx context.Context, req domain.UpdatePasswordRequest) error {
	reset, err := s.resetRepo.GetByTokenHash(ctx, pkgtoken.Hash(req.TempToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup password reset: %w", err)
	}
	if s.now().After(reset.ExpiresAt) {
		return ErrInvalidToken
	}
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.resetRepo.Redeem(ctx, reset, string(hash)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := s.sessions.RevokeAll(ctx, reset.UserID); err != nil {
		slog.Warn("failed to revoke sessions after password update", "user_id", reset.UserID, "err", err)
	}
	return nil
}

func (s *service) LoginUsingEmail(ctx context.Context, req EmailLoginRequest) (*LoginResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrBadCredentials
	}
	if !u.FullyVerified() {
		return nil, domain.ErrUnverifiedAccount
	}
	return s.login(ctx, u)
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}

func (s *service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user no longer exists: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) login(ctx context.Context, u *domain.User) (*LoginResult, error) {
	tok, err := s.sessions.Issue(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: *tok, User: u}, nil
}

func (s *service) userByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	u, err := s.userRepo.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownMobile
		}
		return nil, fmt.Errorf("lookup mobile: %w", err)
	}
	return u, nil
}

func (s *service) sentToBoth(u *domain.User, rec *domain.VerificationRecord) *IssuedCodes {
	return &IssuedCodes{
		MobileOTP: rec.MobileOTP,
		EmailOTP:  rec.EmailOTP,
		ExpireAt:  rec.ExpireAt,
		Message: fmt.Sprintf("We have sent OTP your registered mobile number(%s) & email(%s). OTPs expire within %s.",
			mask.Contact(u.MobileNo), mask.Contact(u.Email), s.window()),
	}
}

func (s *service) hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *service) window() string {
	return fmt.Sprintf("%d min", int(s.otpTTL/time.Minute))
}
