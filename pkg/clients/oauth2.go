// Package clients provides OAuth2 refresh-token authentication support
package clients

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/tributary-data/tributary/pkg/errors"
	jsonpool "github.com/tributary-data/tributary/pkg/json"
	stringpool "github.com/tributary-data/tributary/pkg/strings"
)

// OAuth2Config configures refresh-token OAuth2 authentication.
type OAuth2Config struct {
	// Client credentials
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// TokenURL is the token endpoint used for the refresh_token grant
	TokenURL string `json:"token_url"`

	// RefreshToken is the long-lived token exchanged for access tokens
	RefreshToken string `json:"refresh_token"`

	// Token settings
	RefreshThreshold time.Duration `json:"refresh_threshold"`
	MaxRetries       int           `json:"max_retries"`
	RetryDelay       time.Duration `json:"retry_delay"`
}

// TokenManager manages OAuth2 access tokens obtained via the refresh_token
// grant. It refreshes ahead of expiry, coordinates concurrent refreshes to
// prevent token request storms, and implements oauth2.TokenSource.
type TokenManager struct {
	config     *OAuth2Config
	logger     *zap.Logger
	httpClient *HTTPClient

	currentToken *oauth2.Token

	refreshing  bool
	refreshCond *sync.Cond

	mu sync.RWMutex
}

var _ oauth2.TokenSource = (*TokenManager)(nil)

// NewTokenManager creates a token manager for the given refresh-token
// credentials.
func NewTokenManager(config *OAuth2Config, httpClient *HTTPClient, logger *zap.Logger) *TokenManager {
	if config.RefreshThreshold == 0 {
		config.RefreshThreshold = 5 * time.Minute
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	return &TokenManager{
		config:      config,
		logger:      logger.With(zap.String("component", "oauth2_token_manager")),
		httpClient:  httpClient,
		refreshCond: sync.NewCond(&sync.Mutex{}),
	}
}

// Token returns a valid access token, refreshing if necessary. It satisfies
// the oauth2.TokenSource interface.
func (tm *TokenManager) Token() (*oauth2.Token, error) {
	return tm.GetToken(context.Background())
}

// GetToken returns a valid token, refreshing if necessary
func (tm *TokenManager) GetToken(ctx context.Context) (*oauth2.Token, error) {
	tm.mu.RLock()
	token := tm.currentToken
	tm.mu.RUnlock()

	if token != nil && !tm.shouldRefresh(token) {
		return token, nil
	}

	return tm.refreshToken(ctx)
}

// SetToken sets the current token
func (tm *TokenManager) SetToken(token *oauth2.Token) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.currentToken = token
}

// IsTokenValid checks if the current token is valid
func (tm *TokenManager) IsTokenValid() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if tm.currentToken == nil {
		return false
	}
	return time.Now().Before(tm.currentToken.Expiry)
}

// shouldRefresh checks if token should be refreshed
func (tm *TokenManager) shouldRefresh(token *oauth2.Token) bool {
	if token == nil {
		return true
	}
	return time.Until(token.Expiry) < tm.config.RefreshThreshold
}

// refreshToken performs the refresh_token grant, coordinating concurrent
// callers so only one request is in flight at a time.
func (tm *TokenManager) refreshToken(ctx context.Context) (*oauth2.Token, error) {
	tm.refreshCond.L.Lock()

	if tm.refreshing {
		tm.refreshCond.Wait()
		tm.refreshCond.L.Unlock()

		tm.mu.RLock()
		token := tm.currentToken
		tm.mu.RUnlock()

		if token != nil && !tm.shouldRefresh(token) {
			return token, nil
		}

		return tm.refreshToken(ctx)
	}

	tm.refreshing = true
	tm.refreshCond.L.Unlock()

	defer func() {
		tm.refreshCond.L.Lock()
		tm.refreshing = false
		tm.refreshCond.Broadcast()
		tm.refreshCond.L.Unlock()
	}()

	if tm.config.RefreshToken == "" {
		return nil, errors.New(errors.ErrorTypeAuthentication, "no refresh token available")
	}

	token, err := tm.requestToken(ctx)
	if err != nil {
		tm.logger.Error("token refresh failed", zap.Error(err))
		return nil, err
	}

	tm.SetToken(token)

	tm.logger.Info("token refreshed successfully",
		zap.Time("expires_at", token.Expiry))

	return token, nil
}

// requestToken posts the refresh_token grant to the token endpoint
func (tm *TokenManager) requestToken(ctx context.Context) (*oauth2.Token, error) {
	params := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tm.config.RefreshToken},
		"client_id":     {tm.config.ClientID},
		"client_secret": {tm.config.ClientSecret},
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= tm.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(tm.config.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body := strings.NewReader(params.Encode())
		resp, err = tm.httpClient.Post(ctx, tm.config.TokenURL, body, headers)
		if err == nil && resp.StatusCode < 500 {
			break
		}

		if resp != nil {
			_ = resp.Body.Close()
		}

		tm.logger.Warn("token request failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", tm.config.MaxRetries))
	}

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "token request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp OAuth2Error
		decoder := jsonpool.GetDecoder(resp.Body)
		defer jsonpool.PutDecoder(decoder)
		if decodeErr := decoder.Decode(&errResp); decodeErr == nil && errResp.ErrorCode != "" {
			return nil, errors.Wrap(&errResp, errors.ErrorTypeAuthentication, "token refresh rejected")
		}
		return nil, errors.New(errors.ErrorTypeAuthentication,
			stringpool.Sprintf("token request failed with status %d", resp.StatusCode))
	}

	var tokenResp tokenResponse
	decoder := jsonpool.GetDecoder(resp.Body)
	defer jsonpool.PutDecoder(decoder)
	if err := decoder.Decode(&tokenResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode token response")
	}

	token := &oauth2.Token{
		AccessToken:  tokenResp.AccessToken,
		TokenType:    tokenResp.TokenType,
		RefreshToken: tokenResp.RefreshToken,
	}

	if tokenResp.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	} else {
		// Default to 1 hour if not specified
		token.Expiry = time.Now().Add(time.Hour)
	}

	return token, nil
}

// OAuth2Error represents an OAuth2 error response
type OAuth2Error struct {
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.ErrorDescription != "" {
		return stringpool.Sprintf("%s: %s", e.ErrorCode, e.ErrorDescription)
	}
	return e.ErrorCode
}

// tokenResponse represents a token endpoint response
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
