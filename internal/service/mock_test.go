package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"accredian/referralhub/internal/config"
	"accredian/referralhub/internal/mail"
	"accredian/referralhub/internal/model"
)

// ── Mock ReferralRepository ──

type mockReferralRepo struct {
	mu        sync.Mutex
	referrals []model.Referral
	createErr error
}

func (m *mockReferralRepo) Create(_ context.Context, referral *model.Referral) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	referral.ID = uuid.New()
	referral.CreatedAt = time.Now()
	m.referrals = append(m.referrals, *referral)
	return nil
}

func (m *mockReferralRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.referrals)
}

// ── Mock mail.Sender ──

type mockSender struct {
	mu      sync.Mutex
	sent    []mail.Message
	ctxErrs []error
	err     error
	release chan struct{} // when set, Send blocks until closed
}

func (m *mockSender) Send(ctx context.Context, msg mail.Message) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.err
}

func (m *mockSender) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

// ── Mock EmailHasher ──

type failingHasher struct{}

func (failingHasher) HashPair(context.Context, string, string) (string, string, error) {
	return "", "", errors.Join(ErrHashing, errors.New("entropy source unavailable"))
}

// cheapHashing keeps argon2 fast in tests.
var cheapHashing = config.HashingConfig{Time: 1, MemoryKiB: 64, Threads: 1, KeyLen: 16, SaltLen: 8}
