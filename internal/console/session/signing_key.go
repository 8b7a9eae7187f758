package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/policonsole/internal/common"
	"github.com/dmitrijs2005/policonsole/internal/console/devicestore"
)

// SigningKeyKey is the device storage key of the generated signing key.
const SigningKeyKey = "session_signing_key"

const signingKeyBytes = 32

// DeviceSigningKey returns the signing key kept in device storage, generating
// and storing a random one on first use.
func DeviceSigningKey(ctx context.Context, repo devicestore.Repository) ([]byte, error) {
	key, err := repo.Get(ctx, SigningKeyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	if len(key) > 0 {
		return key, nil
	}

	generated, err := common.MakeRandHexString(signingKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	if err := repo.Set(ctx, SigningKeyKey, []byte(generated)); err != nil {
		return nil, fmt.Errorf("failed to store signing key: %w", err)
	}
	return []byte(generated), nil
}
