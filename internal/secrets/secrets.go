// Package secrets resolves the session signing secret.
package secrets

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrAccessDenied   = errors.New("access to secret denied")
)

// Source yields the raw signing secret.
type Source interface {
	Secret(ctx context.Context) ([]byte, error)
}

// Static is a Source backed by a value already in memory, typically JWT_SECRET.
type Static []byte

func (s Static) Secret(context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("static: %w", ErrSecretNotFound)
	}
	return []byte(s), nil
}

var _ Source = Static(nil)
