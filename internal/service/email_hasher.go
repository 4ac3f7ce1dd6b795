package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"accredian/referralhub/internal/config"
	"accredian/referralhub/pkg/crypto"
)

// EmailHasher turns both addresses of a submission into salted one-way hashes.
type EmailHasher interface {
	HashPair(ctx context.Context, referrerEmail, refereeEmail string) (hashedReferrer, hashedReferee string, err error)
}

type argonEmailHasher struct {
	params crypto.Params
}

func NewEmailHasher(cfg config.HashingConfig) EmailHasher {
	p := crypto.DefaultParams
	if cfg.Time > 0 {
		p.Time = cfg.Time
	}
	if cfg.MemoryKiB > 0 {
		p.MemoryKiB = cfg.MemoryKiB
	}
	if cfg.Threads > 0 {
		p.Threads = cfg.Threads
	}
	if cfg.KeyLen > 0 {
		p.KeyLen = cfg.KeyLen
	}
	if cfg.SaltLen > 0 {
		p.SaltLen = cfg.SaltLen
	}
	return &argonEmailHasher{params: p}
}

// HashPair draws one salt per call and hashes both addresses with it
// concurrently.
func (h *argonEmailHasher) HashPair(ctx context.Context, referrerEmail, refereeEmail string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	salt, err := crypto.GenerateSalt(h.params.SaltLen)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrHashing, err)
	}

	var hashedReferrer, hashedReferee string
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hashedReferrer, err = crypto.HashWithSalt(referrerEmail, salt, h.params)
		return err
	})
	g.Go(func() error {
		var err error
		hashedReferee, err = crypto.HashWithSalt(refereeEmail, salt, h.params)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return hashedReferrer, hashedReferee, nil
}

// VerifyEmail reports whether plain produced encoded. Stored hashes are never
// looked up by address; this exists for operators checking a single record.
func VerifyEmail(plain, encoded string) (bool, error) {
	return crypto.Verify(plain, encoded)
}
