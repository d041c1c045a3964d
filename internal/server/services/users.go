package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/lockout"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophgallery/internal/shared"
	"github.com/google/uuid"
)

const refreshTokenSize = 32

// UserService registers mirror accounts and issues token pairs. The access
// token subject is the account id, which is the owner id of every record the
// account mirrors.
type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	secretKey       []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
	attempts        *lockout.Tracker
	log             logging.Logger
	now             func() time.Time
}

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	if log == nil {
		log = logging.Nop()
	}
	return &UserService{
		db:              db,
		repomanager:     rm,
		secretKey:       []byte(cfg.SecretKey),
		accessValidity:  cfg.AccessTokenValidityDuration,
		refreshValidity: cfg.RefreshTokenValidityDuration,
		attempts:        lockout.New(lockout.DefaultMaxAttempts, lockout.DefaultDuration),
		log:             log,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the account and signs it in. A proposed UserID must be a
// UUID; an empty one is generated.
func (s *UserService) Register(ctx context.Context, in api.Credentials) (api.AuthTokens, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := in.Validate(); err != nil {
		return api.AuthTokens{}, err
	}
	id := in.UserID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return api.AuthTokens{}, fmt.Errorf("%w: user id must be a uuid", common.ErrInvalidRecord)
	}

	salt, err := shared.GenerateRandByteArray(cryptox.SaltSize)
	if err != nil {
		return api.AuthTokens{}, fmt.Errorf("generate salt: %w", err)
	}
	u := &models.User{
		ID:           id,
		Username:     in.Username,
		PasswordHash: cryptox.HashPassword(in.Password, salt),
		Salt:         salt,
		CreatedAt:    s.now(),
	}

	var pair api.AuthTokens
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Create(ctx, u); err != nil {
			return err
		}
		var err error
		pair, err = s.issue(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return api.AuthTokens{}, err
	}
	s.log.Info(ctx, "account registered", "user_id", u.ID)
	return pair, nil
}

// Login checks the password. Unknown users and wrong passwords both return
// common.ErrInvalidCredentials; repeated failures lock the username out.
func (s *UserService) Login(ctx context.Context, in api.Credentials) (api.AuthTokens, error) {
	name := strings.TrimSpace(in.Username)
	if err := s.attempts.Check(name); err != nil {
		return api.AuthTokens{}, err
	}

	u, err := s.repomanager.Users(s.db).GetByUsername(ctx, name)
	if errors.Is(err, common.ErrNotFound) {
		s.attempts.Record(name, false)
		return api.AuthTokens{}, common.ErrInvalidCredentials
	}
	if err != nil {
		return api.AuthTokens{}, err
	}
	if !cryptox.VerifyPassword(in.Password, u.Salt, u.PasswordHash) {
		s.attempts.Record(name, false)
		s.log.Warn(ctx, "failed login", "username", name)
		return api.AuthTokens{}, common.ErrInvalidCredentials
	}
	s.attempts.Record(name, true)

	return s.issue(ctx, s.db, u.ID)
}

// Refresh redeems a refresh token for a new pair. Each refresh token works
// once.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (api.AuthTokens, error) {
	if refreshToken == "" {
		return api.AuthTokens{}, common.ErrInvalidToken
	}
	rt, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if errors.Is(err, common.ErrNotFound) {
		return api.AuthTokens{}, common.ErrInvalidToken
	}
	if err != nil {
		return api.AuthTokens{}, err
	}
	if !s.now().Before(rt.ExpiresAt) {
		if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrNotFound) {
			s.log.Warn(ctx, "failed to delete expired refresh token", "error", err)
		}
		return api.AuthTokens{}, common.ErrTokenExpired
	}

	var pair api.AuthTokens
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}
		var err error
		pair, err = s.issue(ctx, tx, rt.UserID)
		return err
	})
	if err != nil {
		return api.AuthTokens{}, err
	}
	return pair, nil
}

func (s *UserService) issue(ctx context.Context, db dbx.DBTX, userID string) (api.AuthTokens, error) {
	now := s.now()
	access, err := auth.GenerateToken(userID, s.secretKey, s.accessValidity)
	if err != nil {
		return api.AuthTokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := shared.MakeRandHexString(refreshTokenSize)
	if err != nil {
		return api.AuthTokens{}, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, userID, refresh, now.Add(s.refreshValidity)); err != nil {
		return api.AuthTokens{}, err
	}
	return api.AuthTokens{
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.accessValidity),
	}, nil
}
