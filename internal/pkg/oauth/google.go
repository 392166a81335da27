package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const googleIssuer = "https://accounts.google.com"

var ErrInvalidIDToken = errors.New("invalid google id token")

// Identity is the verified subset of a Google ID token the marketplace
// needs to create or link an account.
type Identity struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// Verifier validates Google ID tokens against the configured OAuth client.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

type googleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers Google's OIDC configuration and builds a
// verifier bound to the given client id.
func NewGoogleVerifier(ctx context.Context, clientID string) (Verifier, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &googleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *googleVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, ErrInvalidIDToken
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrInvalidIDToken
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, ErrInvalidIDToken
	}

	return &Identity{
		Subject:    idToken.Subject,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
	}, nil
}
