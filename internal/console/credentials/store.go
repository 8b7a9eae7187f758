// Package credentials persists the device's single "remember me" record.
//
// The record holds the identifier the agent signed in with and a revocable
// refresh token issued by the directory. The password itself is never
// written to the device.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/console/devicestore"
	"github.com/dmitrijs2005/policonsole/internal/validation"
)

// Key is the device storage key of the record.
const Key = "credential"

// ErrCorruptRecord marks a stored record that cannot be decoded. Load
// recovers from it internally; it is exported for logging and tests.
var ErrCorruptRecord = errors.New("corrupt credential record")

// Credential is the remembered login.
type Credential struct {
	Identifier string    `json:"identifier" validate:"required"`
	Secret     string    `json:"secret" validate:"required"`
	Remember   bool      `json:"remember"`
	IssuedAt   time.Time `json:"issued_at" validate:"required"`
}

// Store reads and writes the Credential under Key.
type Store struct {
	repo     devicestore.Repository
	validate *validation.Validator
	now      func() time.Time
}

func NewStore(repo devicestore.Repository) *Store {
	return &Store{repo: repo, validate: validation.New(), now: time.Now}
}

// Save writes the record when remember is set, replacing any previous one,
// and reports true. Without remember it clears the record and reports false.
func (s *Store) Save(ctx context.Context, identifier, secret string, remember bool) (bool, error) {
	if !remember {
		_, err := s.Clear(ctx)
		return false, err
	}

	c := Credential{
		Identifier: identifier,
		Secret:     secret,
		Remember:   true,
		IssuedAt:   s.now().UTC(),
	}
	if err := s.validate.Struct(c); err != nil {
		return false, err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return false, fmt.Errorf("error encoding credential: %w", err)
	}
	if err := s.repo.Set(ctx, Key, data); err != nil {
		return false, err
	}
	return true, nil
}

// Load returns the stored record, or nil when there is none. A record that
// does not decode or lacks a required field is deleted and reported as
// absent. Read errors are returned with a nil record.
func (s *Store) Load(ctx context.Context) (*Credential, error) {
	data, err := s.repo.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	c, err := s.decode(data)
	if err != nil {
		// self-heal: a broken record would fail every silent login
		if derr := s.repo.Delete(ctx, Key); derr != nil {
			return nil, derr
		}
		return nil, nil
	}
	return c, nil
}

// Clear deletes the record and reports whether one was present. Clearing an
// empty store is not an error.
func (s *Store) Clear(ctx context.Context) (bool, error) {
	data, err := s.repo.Get(ctx, Key)
	if err != nil {
		return false, err
	}
	if err := s.repo.Delete(ctx, Key); err != nil {
		return false, err
	}
	return data != nil, nil
}

func (s *Store) decode(data []byte) (*Credential, error) {
	c := &Credential{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if err := s.validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return c, nil
}
