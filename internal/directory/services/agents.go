// Package services contains the directory's business logic. AgentService is
// the PostgreSQL-backed agent directory used by the console: identity lookup,
// secret verification, the refresh tokens behind "remember me", and password
// recovery.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/common"
	"github.com/dmitrijs2005/policonsole/internal/cryptox"
	"github.com/dmitrijs2005/policonsole/internal/dbx"
	"github.com/dmitrijs2005/policonsole/internal/directory"
	"github.com/dmitrijs2005/policonsole/internal/directory/models"
	"github.com/dmitrijs2005/policonsole/internal/directory/repositories/repomanager"
)

const (
	refreshTokenBytes     = 32
	temporaryPasswordSize = 8
)

// AgentService resolves agents and manages their secrets and refresh tokens.
type AgentService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	refreshTokenValidityDuration time.Duration
	hashParams                   cryptox.Params
}

// Option customises an AgentService.
type Option func(*AgentService)

// WithHashParams overrides the argon2id cost used when storing new secrets.
func WithHashParams(p cryptox.Params) Option {
	return func(s *AgentService) { s.hashParams = p }
}

// NewAgentService constructs an AgentService over db.
func NewAgentService(db *sql.DB, m repomanager.RepositoryManager, refreshTokenValidity time.Duration, opts ...Option) *AgentService {
	s := &AgentService{
		db:                           db,
		repomanager:                  m,
		refreshTokenValidityDuration: refreshTokenValidity,
		hashParams:                   cryptox.DefaultParams,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FindByIdentifier resolves a NIP or an email to an active agent.
func (s *AgentService) FindByIdentifier(ctx context.Context, identifier string) (*directory.Subject, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, directory.ErrNotFound
	}

	repo := s.repomanager.Agents(s.db)

	var (
		agent *models.Agent
		err   error
	)
	if directory.IsEmail(identifier) {
		agent, err = repo.FindByEmail(ctx, identifier)
	} else {
		agent, err = repo.FindByNIP(ctx, identifier)
	}
	if err != nil {
		return nil, classify(err)
	}
	if !agent.Active {
		return nil, directory.ErrNotFound
	}
	return directory.SubjectFromAgent(agent), nil
}

// VerifySecret reports whether secret matches the stored hash for nip. An
// agent without a stored hash, or with a malformed one, never verifies.
func (s *AgentService) VerifySecret(ctx context.Context, nip string, secret string) (bool, error) {
	hash, err := s.repomanager.Agents(s.db).GetSecretHash(ctx, nip)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, classify(err)
	}

	ok, err := cryptox.VerifySecret(secret, hash)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

// IssueRefreshToken creates a new opaque refresh token for nip. Only its
// digest is stored.
func (s *AgentService) IssueRefreshToken(ctx context.Context, nip string) (string, error) {
	return s.issueRefreshToken(ctx, s.db, nip)
}

// RedeemRefreshToken exchanges a valid refresh token for the agent it was
// issued to and a replacement token. The old token is consumed in the same
// transaction that stores the new one, and only one redeemer can consume it.
func (s *AgentService) RedeemRefreshToken(ctx context.Context, token string) (*directory.Subject, string, error) {
	hash := cryptox.HashToken(token)

	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, hash)
	if err != nil {
		return nil, "", classify(err)
	}
	if stored.Expires.Before(time.Now()) {
		_, _ = s.repomanager.RefreshTokens(s.db).Delete(ctx, hash)
		return nil, "", fmt.Errorf("%w: %w", directory.ErrNotFound, common.ErrRefreshTokenExpired)
	}

	var (
		subject *directory.Subject
		next    string
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).Delete(ctx, hash)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		// a concurrent redeem already consumed it
		if !deleted {
			return directory.ErrNotFound
		}

		agent, err := s.repomanager.Agents(tx).FindByNIP(ctx, stored.NIP)
		if err != nil {
			return err
		}
		if !agent.Active {
			return directory.ErrNotFound
		}
		subject = directory.SubjectFromAgent(agent)

		next, err = s.issueRefreshToken(ctx, tx, stored.NIP)
		return err
	})
	if err != nil {
		return nil, "", classify(err)
	}
	return subject, next, nil
}

// RevokeRefreshToken deletes a refresh token. Unknown tokens are ignored.
func (s *AgentService) RevokeRefreshToken(ctx context.Context, token string) error {
	if _, err := s.repomanager.RefreshTokens(s.db).Delete(ctx, cryptox.HashToken(token)); err != nil {
		return classify(err)
	}
	return nil
}

// ResetPassword is the recovery flow: when nip names an active agent whose
// registered email matches, a temporary password replaces the stored secret,
// every refresh token of the agent is revoked, and the temporary password is
// returned for delivery to the agent.
func (s *AgentService) ResetPassword(ctx context.Context, nip string, email string) (string, error) {
	agent, err := s.repomanager.Agents(s.db).FindByNIP(ctx, strings.TrimSpace(nip))
	if err != nil {
		return "", classify(err)
	}
	if !agent.Active {
		return "", directory.ErrNotFound
	}
	if agent.Email == "" || !strings.EqualFold(agent.Email, strings.TrimSpace(email)) {
		return "", directory.ErrEmailMismatch
	}

	temp, err := common.MakeRandAlnumString(temporaryPasswordSize)
	if err != nil {
		return "", common.ErrorInternal
	}
	hash, err := cryptox.HashSecret(temp, s.hashParams)
	if err != nil {
		return "", common.ErrorInternal
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Agents(tx).SetSecretHash(ctx, agent.NIP, hash); err != nil {
			return err
		}
		_, err := s.repomanager.RefreshTokens(tx).DeleteByNIP(ctx, agent.NIP)
		return err
	})
	if err != nil {
		return "", classify(err)
	}
	return temp, nil
}

// SetPassword stores a new secret for nip.
func (s *AgentService) SetPassword(ctx context.Context, nip string, secret string) error {
	hash, err := cryptox.HashSecret(secret, s.hashParams)
	if err != nil {
		return fmt.Errorf("error hashing secret: %w", err)
	}
	if err := s.repomanager.Agents(s.db).SetSecretHash(ctx, nip, hash); err != nil {
		return classify(err)
	}
	return nil
}

// UpsertAgent creates or replaces an agent row.
func (s *AgentService) UpsertAgent(ctx context.Context, a *models.Agent) error {
	if strings.TrimSpace(a.NIP) == "" {
		return common.ErrInvalidInput
	}
	if err := s.repomanager.Agents(s.db).Upsert(ctx, a); err != nil {
		return classify(err)
	}
	return nil
}

func (s *AgentService) issueRefreshToken(ctx context.Context, db dbx.DBTX, nip string) (string, error) {
	token, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return "", common.ErrorInternal
	}
	repo := s.repomanager.RefreshTokens(db)
	if err := repo.Create(ctx, nip, cryptox.HashToken(token), s.refreshTokenValidityDuration); err != nil {
		return "", classify(err)
	}
	return token, nil
}

// classify maps repository errors onto the directory's error kinds. Anything
// that is not a miss is treated as the directory being unreachable.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, directory.ErrNotFound):
		return directory.ErrNotFound
	case errors.Is(err, directory.ErrUnavailable), errors.Is(err, common.ErrorInternal):
		return err
	default:
		return fmt.Errorf("%w: %w", directory.ErrUnavailable, err)
	}
}
