package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/notekeepapp/notekeep-server/internal/errors"
)

const oauthTimeout = 30 * time.Second

// Token is the result of a token-endpoint exchange.
type Token struct {
	AccessToken  string
	RefreshToken string
	User         string
	Expiry       time.Time
}

// OAuthClient talks to the provider's OAuth endpoints: code exchange for
// interactive sign-in and refresh-token exchange for silent acquisition.
type OAuthClient struct {
	http         *http.Client
	tokenURL     string
	authURL      string
	clientID     string
	clientSecret string
}

// NewOAuthClient creates an OAuth client for the given endpoints.
func NewOAuthClient(tokenURL, authURL, clientID, clientSecret string) *OAuthClient {
	return &OAuthClient{
		http:         &http.Client{Timeout: oauthTimeout},
		tokenURL:     tokenURL,
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// ConsentURL builds the user-facing consent URL for interactive sign-in.
func (c *OAuthClient) ConsentURL(redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "https://www.googleapis.com/auth/drive.file email")
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	return c.authURL + "?" + q.Encode()
}

// Exchange trades an authorization code for tokens.
func (c *OAuthClient) Exchange(ctx context.Context, code, redirectURI string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return c.requestToken(ctx, form)
}

// Refresh trades a refresh token for a fresh access token.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.requestToken(ctx, form)
}

// tokenResponse is the provider's token-endpoint response body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// requestToken posts a form to the token endpoint and decodes the reply.
func (c *OAuthClient) requestToken(ctx context.Context, form url.Values) (*Token, error) {
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRemoteUnavailable, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || tr.Error != "" {
		return nil, apperrors.AuthRequired(fmt.Sprintf("token exchange failed: %s %s", tr.Error, tr.ErrorDesc))
	}

	return &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		User:         userFromIDToken(tr.IDToken),
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

// userFromIDToken extracts the email claim from an unverified ID token.
// The value is display-only; authorization always rides on the access
// token itself.
func userFromIDToken(idToken string) string {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.Email
}
