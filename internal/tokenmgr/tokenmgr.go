// Package tokenmgr implements the per-athlete OAuth2 token lifecycle: status
// classification, refresh with bounded backoff, and single-flight
// coalescing of concurrent refresh attempts for the same athlete.
package tokenmgr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"training-load-engine/internal/apperr"
	"training-load-engine/internal/provider"
	"training-load-engine/internal/store"
)

// Status is the outcome of a ClientFor call.
type Status int

const (
	StatusValid Status = iota
	StatusRefreshed
	StatusAuthRequired
	StatusTransientFailure
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusRefreshed:
		return "refreshed"
	case StatusAuthRequired:
		return "auth_required"
	case StatusTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

const (
	expiringSoonWindow = 30 * time.Minute
	maxRefreshAttempts = 3
)

// tokenState classifies an access token's freshness relative to now.
type tokenState int

const (
	stateValid tokenState = iota
	stateExpiringSoon
	stateExpired
	stateMissing
)

func classify(refreshToken string, expiresAt time.Time, now time.Time) tokenState {
	if refreshToken == "" {
		return stateMissing
	}
	remaining := expiresAt.Sub(now)
	switch {
	case remaining > expiringSoonWindow:
		return stateValid
	case remaining > 0:
		return stateExpiringSoon
	default:
		return stateExpired
	}
}

// Manager resolves athletes to authorized provider clients, refreshing and
// persisting tokens as needed. Tokens are authoritative in the store; the
// manager caches nothing across calls except the in-flight refresh group.
type Manager struct {
	store  *store.Store
	oauth  *oauth2.Config
	log    zerolog.Logger
	flight singleflight.Group
}

func New(st *store.Store, oauthCfg *oauth2.Config, log zerolog.Logger) *Manager {
	return &Manager{store: st, oauth: oauthCfg, log: log}
}

// ClientFor returns a provider client bound to a currently-valid access token
// for athleteID, refreshing it first if necessary.
func (m *Manager) ClientFor(ctx context.Context, athleteID int64) (*provider.Client, Status, error) {
	athlete, err := m.store.GetAthlete(ctx, athleteID)
	if err != nil {
		return nil, StatusAuthRequired, apperr.New(apperr.KindDatabase, "tokenmgr.ClientFor", err)
	}

	state := classify(athlete.ProviderRefreshToken, athlete.ProviderTokenExpiresAt, time.Now())
	if state == stateMissing {
		return nil, StatusAuthRequired, apperr.New(apperr.KindAuth, "tokenmgr.ClientFor", errors.New("no provider refresh token stored"))
	}
	if state == stateValid {
		return m.clientFromToken(ctx, athlete.ProviderAccessToken, athlete.ProviderTokenExpiresAt), StatusValid, nil
	}

	key := strconv.FormatInt(athleteID, 10)
	result, err, _ := m.flight.Do(key, func() (interface{}, error) {
		return m.refresh(ctx, athlete)
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindAuth {
			return nil, StatusAuthRequired, err
		}
		return nil, StatusTransientFailure, err
	}

	tok := result.(*oauth2.Token)
	return m.clientFromToken(ctx, tok.AccessToken, tok.Expiry), StatusRefreshed, nil
}

func (m *Manager) clientFromToken(ctx context.Context, accessToken string, expiry time.Time) *provider.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, Expiry: expiry})
	return provider.NewClient(ctx, src)
}

// refresh exchanges the stored refresh token for a new access token, retrying
// transient failures with bounded exponential backoff. A refresh rejected by
// the provider (invalid/revoked token) is terminal — no retry.
func (m *Manager) refresh(ctx context.Context, athlete *store.Athlete) (*oauth2.Token, error) {
	src := m.oauth.TokenSource(ctx, &oauth2.Token{
		RefreshToken: athlete.ProviderRefreshToken,
	})

	var lastErr error
	for attempt := 0; attempt < maxRefreshAttempts; attempt++ {
		newTok, err := src.Token()
		if err == nil {
			if uerr := m.store.UpdateProviderTokens(ctx, athlete.ID, newTok.AccessToken, newTok.RefreshToken, newTok.Expiry); uerr != nil {
				return nil, apperr.New(apperr.KindDatabase, "tokenmgr.refresh", uerr)
			}
			m.log.Info().Int64("athlete_id", athlete.ID).Msg("refreshed provider access token")
			return newTok, nil
		}

		if isTerminalRefreshError(err) {
			m.log.Warn().Int64("athlete_id", athlete.ID).Err(err).Msg("provider rejected refresh token, re-authorization required")
			return nil, apperr.New(apperr.KindAuth, "tokenmgr.refresh", err)
		}

		lastErr = err
		if attempt < maxRefreshAttempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, apperr.New(apperr.KindTransientProvider, "tokenmgr.refresh", fmt.Errorf("refresh failed after %d attempts: %w", maxRefreshAttempts, lastErr))
}

// isTerminalRefreshError reports whether err represents a provider rejection
// of the refresh token itself (4xx), as opposed to a transient failure.
func isTerminalRefreshError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500
	}
	return false
}
