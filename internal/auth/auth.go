// Package auth performs the OAuth2 client-credentials exchange used for both
// the assistant service and the deployment target.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Credentials identifies a confidential client.
type Credentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// Token is an access token plus the instance URL some issuers return with it.
type Token struct {
	AccessToken string
	InstanceURL string
}

// Exchange trades the client credentials for an access token. httpClient may
// be nil.
func Exchange(ctx context.Context, httpClient *http.Client, c Credentials) (*Token, error) {
	if c.TokenURL == "" || c.ClientID == "" {
		return nil, errors.New("token url and client id are required")
	}
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return nil, fmt.Errorf("token exchange failed: %d %s", rerr.Response.StatusCode, rerr.Body)
		}
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	out := &Token{AccessToken: tok.AccessToken}
	if u, ok := tok.Extra("instance_url").(string); ok {
		out.InstanceURL = u
	}
	return out, nil
}
