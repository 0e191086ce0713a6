package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/crypto"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
	jwt_internal "github.com/itchan-dev/modpolicy/shared/jwt"
	"github.com/itchan-dev/modpolicy/shared/logger"
	"github.com/itchan-dev/modpolicy/shared/utils"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, email domain.Email, password domain.Password, nickname string) error
	ConfirmEmail(ctx context.Context, email domain.Email, code string) error
	Login(ctx context.Context, email domain.Email, password domain.Password) (domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type Email interface {
	Send(recipientEmail, subject, body string) error
	IsCorrect(email domain.Email) error
}

type Jwt interface {
	NewToken(subject jwt_internal.Subject) (string, time.Time, error)
}

type PII interface {
	SealEmail(email string) ([]byte, error)
}

type Auth struct {
	store Store
	email Email
	jwt   Jwt
	pii   PII
	cfg   *config.Public
	now   Clock
	log   *slog.Logger
}

func NewAuth(store Store, email Email, jwt Jwt, pii PII, cfg *config.Public) *Auth {
	return &Auth{store: store, email: email, jwt: jwt, pii: pii, cfg: cfg, now: systemClock, log: logger.Component("auth")}
}

var errInvalidCredentials = errors.New(errors.KindUnauthorized, "Invalid credentials")

// Register creates an unverified account with a pending member and mails a
// confirmation code. Registering again before verification replaces the code once
// the previous one has expired.
func (a *Auth) Register(ctx context.Context, email domain.Email, password domain.Password, nickname string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := a.email.IsCorrect(email); err != nil {
		return err
	}

	code := utils.GenerateConfirmationCode(a.cfg.ConfirmationCodeLen)
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		a.log.Error("failed to hash confirmation code", "error", err)
		return err
	}
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.log.Error("failed to hash password", "error", err)
		return err
	}
	sealed, err := a.pii.SealEmail(email)
	if err != nil {
		return err
	}
	hash := crypto.EmailHash(email)

	err = a.store.InTx(ctx, func(tx Tx) error {
		now := a.now()
		account, err := tx.GetAccountByEmailHash(hash)
		switch {
		case err == nil:
			if account.EmailVerified {
				return errors.New(errors.KindConflict, "email is already registered")
			}
			data, err := tx.GetConfirmationData(account.Id)
			if err != nil && !errors.IsNotFound(err) {
				return err
			}
			if err == nil && data.Expires.After(now) {
				wait := data.Expires.Sub(now)
				return &errors.ErrorWithStatusCode{Message: fmt.Sprintf("Previous confirmation code is still valid. Retry after %.0fs", wait.Seconds()), StatusCode: http.StatusTooEarly}
			}
			account.PassHash = string(passHash)
			account.UpdatedAt = now
			if err := tx.UpdateAccount(account); err != nil {
				return err
			}
		case errors.IsNotFound(err):
			account = domain.Account{
				Id:          uuid.New(),
				EmailHash:   hash,
				EmailCipher: sealed,
				PassHash:    string(passHash),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.CreateAccount(account); err != nil {
				return err
			}
			if err := tx.CreateMember(domain.Member{
				Id:        uuid.New(),
				AccountId: account.Id,
				Nickname:  nickname,
				Status:    domain.MemberPending,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
		default:
			return err
		}

		return tx.SaveConfirmationData(domain.ConfirmationData{
			Email:                email,
			AccountId:            account.Id,
			ConfirmationCodeHash: string(codeHash),
			Expires:              now.Add(a.cfg.ConfirmationCodeTTL),
		})
	})
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`
		Hello,

		Your confirmation code below

		%s

		If you did not request this, please ignore this email.
	`, code)
	return a.email.Send(email, "Please confirm your email address", body)
}

// ConfirmEmail verifies the account and activates its member.
func (a *Auth) ConfirmEmail(ctx context.Context, email domain.Email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	hash := crypto.EmailHash(email)

	return a.store.InTx(ctx, func(tx Tx) error {
		account, err := tx.GetAccountByEmailHash(hash)
		if err != nil {
			return err
		}
		data, err := tx.GetConfirmationData(account.Id)
		if err != nil {
			return err
		}
		now := a.now()
		if data.Expires.Before(now) {
			return errors.New(errors.KindValidation, "Confirmation time expired")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(data.ConfirmationCodeHash), []byte(code)); err != nil {
			return errors.New(errors.KindValidation, "Wrong confirmation code")
		}

		account.EmailVerified = true
		account.UpdatedAt = now
		if err := tx.UpdateAccount(account); err != nil {
			return err
		}
		member, err := tx.GetMemberByAccount(account.Id)
		if err != nil && !errors.IsNotFound(err) {
			return err
		}
		if err == nil && member.Status == domain.MemberPending {
			member.Status = domain.MemberActive
			member.UpdatedAt = now
			if err := tx.UpdateMember(member); err != nil {
				return err
			}
		}
		return tx.DeleteConfirmationData(account.Id)
	})
}

// Login checks credentials and opens a session.
func (a *Auth) Login(ctx context.Context, email domain.Email, password domain.Password) (result domain.TokenPair, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash := crypto.EmailHash(email)

	err = a.store.InTx(ctx, func(tx Tx) error {
		account, err := tx.GetAccountByEmailHash(hash)
		if err != nil {
			if errors.IsNotFound(err) {
				return errInvalidCredentials
			}
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(account.PassHash), []byte(password)); err != nil {
			return errInvalidCredentials
		}

		subject, err := a.subject(tx, account)
		if err != nil {
			return err
		}
		result, _, err = a.issue(tx, subject, a.now())
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	return result, nil
}

// subject checks the account may sign in and picks its highest active role.
func (a *Auth) subject(tx Tx, account domain.Account) (jwt_internal.Subject, error) {
	if !account.Visible() {
		return jwt_internal.Subject{}, errInvalidCredentials
	}
	if !account.EmailVerified {
		return jwt_internal.Subject{}, errors.Forbidden("Email is not confirmed")
	}
	if account.Suspended {
		return jwt_internal.Subject{}, errors.Forbidden("Account suspended")
	}
	member, err := tx.GetMemberByAccount(account.Id)
	if err != nil {
		if errors.IsNotFound(err) {
			return jwt_internal.Subject{}, errors.Forbidden("Account has no member profile")
		}
		return jwt_internal.Subject{}, err
	}
	if member.Status != domain.MemberActive {
		return jwt_internal.Subject{}, errors.Forbidden("Member is %s", member.Status)
	}

	role := domain.RoleMember
	for _, r := range []domain.Role{domain.RoleAdministrator, domain.RoleModerator} {
		ok, err := tx.HasActiveRole(member.Id, r)
		if err != nil {
			return jwt_internal.Subject{}, err
		}
		if ok {
			role = r
			break
		}
	}
	return jwt_internal.Subject{AccountId: account.Id, MemberId: member.Id, Role: role}, nil
}

func (a *Auth) issue(tx Tx, subject jwt_internal.Subject, now time.Time) (domain.TokenPair, domain.SessionId, error) {
	access, expires, err := a.jwt.NewToken(subject)
	if err != nil {
		return domain.TokenPair{}, uuid.Nil, err
	}
	refresh, err := utils.GenerateRefreshToken()
	if err != nil {
		return domain.TokenPair{}, uuid.Nil, err
	}
	session := domain.Session{
		Id:        uuid.New(),
		AccountId: subject.AccountId,
		TokenHash: crypto.TokenHash(refresh),
		ExpiresAt: now.Add(a.cfg.RefreshTTL),
		CreatedAt: now,
	}
	if err := tx.CreateSession(session); err != nil {
		return domain.TokenPair{}, uuid.Nil, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires}, session.Id, nil
}

// Refresh swaps a refresh token for a new pair. The old session row is locked,
// revoked and linked to its replacement in one transaction, so a token can be
// used once. Presenting an already rotated token revokes every session of the
// account.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (result domain.TokenPair, err error) {
	defer func() { observe("auth.refresh", err) }()

	hash := crypto.TokenHash(refreshToken)
	reused := false
	err = a.store.InTx(ctx, func(tx Tx) error {
		now := a.now()
		session, err := tx.LockSessionByHash(hash)
		if err != nil {
			if errors.IsNotFound(err) {
				return errors.New(errors.KindUnauthorized, "Invalid refresh token")
			}
			return err
		}
		if session.RevokedAt != nil && session.ReplacedBy != nil {
			reused = true
			return tx.RevokeSessions(session.AccountId, now)
		}
		if !session.Usable(now) {
			return errors.New(errors.KindUnauthorized, "Refresh token expired")
		}

		account, err := tx.GetAccount(session.AccountId)
		if err != nil {
			if errors.IsNotFound(err) {
				return errInvalidCredentials
			}
			return err
		}
		subject, err := a.subject(tx, account)
		if err != nil {
			return err
		}
		var next domain.SessionId
		if result, next, err = a.issue(tx, subject, now); err != nil {
			return err
		}
		session.RevokedAt = &now
		session.ReplacedBy = &next
		return tx.UpdateSession(session)
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	if reused {
		a.log.Warn("refresh token reuse, all sessions revoked")
		return domain.TokenPair{}, errors.New(errors.KindUnauthorized, "Refresh token already used")
	}
	return result, nil
}

// Logout revokes the session. Unknown or already revoked tokens succeed.
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	hash := crypto.TokenHash(refreshToken)
	return a.store.InTx(ctx, func(tx Tx) error {
		session, err := tx.LockSessionByHash(hash)
		if errors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if session.RevokedAt != nil {
			return nil
		}
		now := a.now()
		session.RevokedAt = &now
		return tx.UpdateSession(session)
	})
}
