package tokenmgr

import "golang.org/x/oauth2"

const (
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes requests read access to activities, the minimum the ingestion
// pipeline needs.
var Scopes = []string{"read,activity:read_all"}

// OAuthCredentials are the registered application's client credentials.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOAuthConfig builds the oauth2.Config shared by the authorization-code
// exchange (httpapi) and the refresh flow (Manager).
func NewOAuthConfig(creds OAuthCredentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		RedirectURL: creds.RedirectURL,
		Scopes:      Scopes,
	}
}

// ExtractProviderAthleteID pulls the provider's own athlete id out of the
// token response extras, present on the initial authorization-code exchange.
func ExtractProviderAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}
