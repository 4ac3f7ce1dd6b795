package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"accredian/referralhub/internal/mail"
	"accredian/referralhub/internal/metrics"
	"accredian/referralhub/internal/model"
	"accredian/referralhub/internal/repository"
)

const defaultSendTimeout = 30 * time.Second

// ReferralForm is a submission as received, emails still in plaintext.
type ReferralForm struct {
	ReferrerName  string
	ReferrerEmail string
	RefereeName   string
	RefereeEmail  string
	CourseName    string
}

// normalized trims every field, so whitespace-only values count as missing
// and names are stored without surrounding spaces.
func (f ReferralForm) normalized() ReferralForm {
	return ReferralForm{
		ReferrerName:  strings.TrimSpace(f.ReferrerName),
		ReferrerEmail: strings.TrimSpace(f.ReferrerEmail),
		RefereeName:   strings.TrimSpace(f.RefereeName),
		RefereeEmail:  strings.TrimSpace(f.RefereeEmail),
		CourseName:    strings.TrimSpace(f.CourseName),
	}
}

// Validate reports every empty field in one ErrValidation.
func (f ReferralForm) Validate() error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"referrer_name", f.ReferrerName},
		{"referrer_email", f.ReferrerEmail},
		{"referee_name", f.RefereeName},
		{"referee_email", f.RefereeEmail},
		{"course_name", f.CourseName},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

type ReferralService interface {
	// Submit validates, hashes and stores the referral, then notifies the
	// referee in the background. The notification outcome never affects the
	// returned values.
	Submit(ctx context.Context, form ReferralForm) (*model.Referral, error)
	// Drain waits for in-flight notifications. Call it only after the HTTP
	// server has stopped accepting submissions.
	Drain(ctx context.Context) error
}

type ReferralServiceOptions struct {
	BrandingName string
	SendTimeout  time.Duration
}

type referralService struct {
	repo     repository.ReferralRepository
	hasher   EmailHasher
	sender   mail.Sender
	opts     ReferralServiceOptions
	logger   *zap.Logger
	inflight sync.WaitGroup
}

func NewReferralService(
	repo repository.ReferralRepository,
	hasher EmailHasher,
	sender mail.Sender,
	opts ReferralServiceOptions,
	logger *zap.Logger,
) ReferralService {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &referralService{
		repo:   repo,
		hasher: hasher,
		sender: sender,
		opts:   opts,
		logger: logger,
	}
}

func (s *referralService) Submit(ctx context.Context, form ReferralForm) (*model.Referral, error) {
	form = form.normalized()
	if err := form.Validate(); err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	hashedReferrer, hashedReferee, err := s.hasher.HashPair(ctx, form.ReferrerEmail, form.RefereeEmail)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("hash referral emails", zap.Error(err))
		return nil, err
	}

	referral := &model.Referral{
		ReferrerName:  form.ReferrerName,
		ReferrerEmail: hashedReferrer,
		RefereeName:   form.RefereeName,
		RefereeEmail:  hashedReferee,
		CourseName:    form.CourseName,
	}
	if err := s.repo.Create(ctx, referral); err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("create referral", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.Submissions.WithLabelValues(metrics.OutcomeCreated).Inc()

	s.dispatch(ctx, referral.ID, form)
	return referral, nil
}

// dispatch runs the notification detached from the request: it outlives the
// request context and its error is logged, not returned.
func (s *referralService) dispatch(ctx context.Context, referralID uuid.UUID, form ReferralForm) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SendTimeout)
		defer cancel()

		if err := s.notifyReferee(sendCtx, form); err != nil {
			metrics.MailSend.WithLabelValues(metrics.ResultFailure).Inc()
			s.logger.Warn("referee notification failed",
				zap.String("referral_id", referralID.String()),
				zap.Error(err),
			)
			return
		}
		metrics.MailSend.WithLabelValues(metrics.ResultSuccess).Inc()
		s.logger.Info("referee notified", zap.String("referral_id", referralID.String()))
	}()
}

// notifyReferee returns delivery failures as an ErrMailDelivery value.
func (s *referralService) notifyReferee(ctx context.Context, form ReferralForm) error {
	msg, err := mail.NewReferralMessage(form.RefereeEmail, form.ReferrerEmail, mail.ReferralMailParams{
		RefereeName:  form.RefereeName,
		ReferrerName: form.ReferrerName,
		CourseName:   form.CourseName,
		BrandingName: s.opts.BrandingName,
	})
	if err != nil {
		return fmt.Errorf("%w: render: %w", ErrMailDelivery, err)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}
	return nil
}

func (s *referralService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
