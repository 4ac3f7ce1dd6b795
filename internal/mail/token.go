package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"accredian/referralhub/internal/config"
	"accredian/referralhub/internal/repository"
)

const (
	accessTokenKey = "mail:oauth:access_token"
	// cached tokens are dropped this long before the provider expires them
	tokenExpiryMargin      = time.Minute
	stateStoreTimeout      = 2 * time.Second
	defaultExchangeTimeout = 10 * time.Second
)

// NewTokenSource exchanges the configured refresh token for access tokens.
// Tokens are shared through store so replicas reuse one another's exchange,
// and kept in process until they expire.
func NewTokenSource(ctx context.Context, cfg config.MailOAuth, store repository.StateStore, logger *zap.Logger) oauth2.TokenSource {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = endpoints.Google.TokenURL
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  endpoints.Google.AuthURL,
			TokenURL: tokenURL,
		},
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	exchange := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	return oauth2.ReuseTokenSource(nil, &cachedTokenSource{
		base:   exchange,
		store:  store,
		logger: logger,
	})
}

type cachedTokenSource struct {
	base   oauth2.TokenSource
	store  repository.StateStore
	logger *zap.Logger
}

// Token never fails because of the cache: store errors fall through to the
// exchange.
func (s *cachedTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stateStoreTimeout)
	defer cancel()

	if tok, ok := s.load(ctx); ok {
		return tok, nil
	}

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.save(ctx, tok)
	return tok, nil
}

func (s *cachedTokenSource) load(ctx context.Context) (*oauth2.Token, bool) {
	raw, err := s.store.Get(ctx, accessTokenKey)
	if err != nil {
		if !errors.Is(err, repository.ErrStateNotFound) {
			s.logger.Warn("read cached access token", zap.Error(err))
		}
		return nil, false
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil || !tok.Valid() {
		_ = s.store.Delete(ctx, accessTokenKey)
		return nil, false
	}
	return &tok, true
}

func (s *cachedTokenSource) save(ctx context.Context, tok *oauth2.Token) {
	if tok.Expiry.IsZero() {
		return
	}
	ttl := time.Until(tok.Expiry) - tokenExpiryMargin
	if ttl <= 0 {
		return
	}

	// The refresh token stays in configuration only.
	shared := oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry.Add(-tokenExpiryMargin),
	}
	raw, err := json.Marshal(shared)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, accessTokenKey, raw, ttl); err != nil {
		s.logger.Warn("cache access token", zap.Error(err))
	}
}
