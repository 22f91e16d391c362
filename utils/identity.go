package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/cppla/bloghub/config"
)

// IdentityClaims are the identity provider claims the API understands.
type IdentityClaims struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	jwt.RegisteredClaims
}

// IdentityVerifier validates bearer tokens issued by the identity provider.
type IdentityVerifier struct {
	key         interface{}
	methods     []string
	issuer      string
	audience    string
	userInfoURL string
	httpClient  *http.Client
}

// NewIdentityVerifier builds a verifier from config. An RSA public key takes precedence over an HMAC secret.
func NewIdentityVerifier(cfg config.AppConfig) (*IdentityVerifier, error) {
	v := &IdentityVerifier{
		issuer:      cfg.IdentityIssuer,
		audience:    cfg.IdentityAudience,
		userInfoURL: cfg.IdentityUserInfoURL,
	}
	switch {
	case cfg.IdentityPublicKeyPath != "":
		pem, err := os.ReadFile(cfg.IdentityPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read identity public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse identity public key: %w", err)
		}
		v.key = key
		v.methods = []string{"RS256", "RS384", "RS512"}
	case cfg.IdentityHMACSecret != "":
		v.key = []byte(cfg.IdentityHMACSecret)
		v.methods = []string{"HS256", "HS384", "HS512"}
	default:
		return nil, errors.New("no identity key configured")
	}
	return v, nil
}

// WithHTTPClient overrides the client used for user-info lookups.
func (v *IdentityVerifier) WithHTTPClient(c *http.Client) *IdentityVerifier {
	v.httpClient = c
	return v
}

// Verify checks the token signature and registered claims and returns the identity.
// Missing profile fields are completed from the user-info endpoint when one is configured.
func (v *IdentityVerifier) Verify(ctx context.Context, raw string) (*IdentityClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	if claims.Email == "" && v.userInfoURL != "" {
		if err := v.completeFromUserInfo(ctx, raw, claims); err != nil {
			Logger.Warn("identity user-info lookup failed", zap.String("sub", claims.Subject), zap.Error(err))
		}
	}
	return claims, nil
}

type userInfo struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Picture           string `json:"picture"`
}

func (v *IdentityVerifier) completeFromUserInfo(ctx context.Context, raw string, claims *IdentityClaims) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if v.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: raw, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user-info status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return err
	}
	if info.Subject != "" && info.Subject != claims.Subject {
		return errors.New("user-info subject mismatch")
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&claims.Email, info.Email)
	fill(&claims.Username, info.PreferredUsername)
	fill(&claims.FirstName, info.GivenName)
	fill(&claims.LastName, info.FamilyName)
	fill(&claims.ImageURL, info.Picture)
	return nil
}
