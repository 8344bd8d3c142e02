// Package identity models the external identity collaborator.
//
// Login happens out of band (the identity provider is not implemented
// here); what arrives is an opaque identity plus a bearer credential,
// which is passed through unchanged to the tabular store and the blob
// upload collaborator.
package identity

import "golang.org/x/oauth2"

// Identity is what the external provider returns after login.
type Identity struct {
	ID         string
	Name       string
	Email      string
	PictureURL string
}

// BearerToken wraps a raw access token as an oauth2.TokenSource for the
// Google API clients. The token is used as-is; refresh is the provider's
// problem.
func BearerToken(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
}
