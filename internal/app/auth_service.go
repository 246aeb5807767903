package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"quizweb/internal/config"
	"quizweb/internal/domain"
)

const minPasswordLength = 6

type AuthOptions struct {
	// SignupAutoLogin establishes a session right after a successful signup.
	SignupAutoLogin bool
	BcryptCost      int
}

// AuthService owns every transition of a Session: login, signup and logout.
type AuthService struct {
	users     UserRepository
	opts      AuthOptions
	dummyHash []byte
}

func NewAuthService(users UserRepository, opts AuthOptions) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		config.Logger().WithField("bcrypt_cost", opts.BcryptCost).
			Warnf("bcrypt cost out of range %d..%d, using %d", bcrypt.MinCost, bcrypt.MaxCost, bcrypt.DefaultCost)
		opts.BcryptCost = bcrypt.DefaultCost
	}
	// compared against on unknown emails so both failure paths cost one bcrypt round
	dummy, err := bcrypt.GenerateFromPassword([]byte("quizweb-dummy-password"), opts.BcryptCost)
	if err != nil {
		config.Logger().WithError(err).Error("could not prepare dummy password hash")
	}
	return &AuthService{users: users, opts: opts, dummyHash: dummy}
}

// Login verifies credentials and establishes the session. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, sess *Session, email, password string) (domain.Identity, error) {
	log := config.WithContext(ctx)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Identity{}, domain.Invalid("form", "Please fill in all fields")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		log.WithError(err).Error("login: user lookup failed")
		return domain.Identity{}, domain.ErrUnexpected
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	identity := user.Identity()
	if err := sess.set(ctx, identity); err != nil {
		log.WithError(err).Error("login: could not persist session")
		return domain.Identity{}, domain.ErrUnexpected
	}
	log.WithField("user_id", identity.ID).Info("user logged in")
	return identity, nil
}

// Signup registers a new user. With SignupAutoLogin the session is
// established as well; otherwise the caller has to log in.
func (s *AuthService) Signup(ctx context.Context, sess *Session, displayName, email, password string) (domain.Identity, error) {
	log := config.WithContext(ctx)

	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)
	if displayName == "" || email == "" || password == "" {
		return domain.Identity{}, domain.Invalid("form", "Please fill in all fields")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return domain.Identity{}, domain.Invalid("password", "Password must be at least 6 characters long")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.Identity{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		log.WithError(err).Error("signup: email lookup failed")
		return domain.Identity{}, domain.ErrUnexpected
	}
	if _, err := s.users.FindByDisplayName(ctx, displayName); err == nil {
		return domain.Identity{}, domain.ErrDisplayNameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		log.WithError(err).Error("signup: display name lookup failed")
		return domain.Identity{}, domain.ErrUnexpected
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes
		return domain.Identity{}, domain.Invalid("password", "Password is too long")
	}

	user, err := s.users.Create(ctx, domain.User{
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		return domain.Identity{}, domain.ErrEmailTaken
	}
	if err != nil {
		log.WithError(err).Error("signup: insert failed")
		return domain.Identity{}, domain.ErrUnexpected
	}

	identity := user.Identity()
	log.WithField("user_id", identity.ID).Info("user signed up")
	if !s.opts.SignupAutoLogin {
		return identity, nil
	}
	if err := sess.set(ctx, identity); err != nil {
		log.WithError(err).Error("signup: could not persist session")
		return domain.Identity{}, domain.ErrUnexpected
	}
	return identity, nil
}

// AutoLogin reports whether Signup establishes a session.
func (s *AuthService) AutoLogin() bool {
	return s.opts.SignupAutoLogin
}

// Logout clears the session in durable storage and memory.
func (s *AuthService) Logout(ctx context.Context, sess *Session) error {
	if err := sess.clear(ctx); err != nil {
		config.WithContext(ctx).WithError(err).Error("logout: could not clear session")
		return domain.ErrUnexpected
	}
	return nil
}
