package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
)

// Usernames may contain letters, digits and @ . + - _ only.
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const maxUsernameLen = 150

type Service struct {
	repo   Repository
	hasher *auth.PasswordHasher
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, hasher *auth.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, logger: logger, now: time.Now}
}

// ValidateUsername returns a user-facing message for an unusable username,
// or "" when it is acceptable.
func ValidateUsername(username string) string {
	if len(username) > maxUsernameLen {
		return fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", maxUsernameLen, len(username))
	}
	if !usernamePattern.MatchString(username) {
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return ""
}

// Register creates an active credential. It joins the caller's transaction
// when ctx carries one.
func (s *Service) Register(ctx context.Context, in NewCredential) (*Credential, error) {
	errs := validation.Errors{}
	errs.Required("username", in.Username)
	if in.Username != "" {
		if msg := ValidateUsername(in.Username); msg != "" {
			errs.Add("username", msg)
		}
	}
	errs.Required("password", in.Password)
	if len(in.Password) > auth.MaxPasswordBytes {
		errs.Add("password", fmt.Sprintf("Ensure this value has at most %d bytes.", auth.MaxPasswordBytes))
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	c := &Credential{
		Username:     in.Username,
		PasswordHash: hash,
		IsStaff:      in.Staff,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("credential_id", c.ID.String()).Str("username", c.Username).Bool("staff", c.IsStaff).Msg("credential created")
	return c, nil
}

func (s *Service) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.repo.UsernameExists(ctx, username)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*Credential, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) SetStaff(ctx context.Context, id uuid.UUID, staff bool) error {
	return s.repo.SetStaff(ctx, id, staff)
}

// Authenticate verifies a username and password. Unknown users, wrong
// passwords and inactive credentials all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Credential, error) {
	c, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		s.hasher.Burn(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	ok, err := s.hasher.Verify(c.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok || !c.IsActive {
		return nil, ErrInvalidCredentials
	}
	return c, nil
}

// RecordLogin stamps last_login.
func (s *Service) RecordLogin(ctx context.Context, id uuid.UUID) error {
	return s.repo.TouchLastLogin(ctx, id, s.now().UTC())
}

// CheckSession implements auth.CredentialChecker.
func (s *Service) CheckSession(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, auth.ErrSessionRevoked
	}
	if err != nil {
		return false, err
	}
	if !c.IsActive {
		return false, auth.ErrSessionRevoked
	}
	return c.IsStaff, nil
}
