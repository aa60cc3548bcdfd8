package slackapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"slack-connect/domain/model"

	"golang.org/x/oauth2"
)

// OAuth performs the Slack v2 authorization code exchange and the refresh grant.
type OAuth struct {
	cfg    Config
	oauth2 *oauth2.Config
}

func NewOAuth(cfg Config) *OAuth {
	return &OAuth{
		cfg: cfg,
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   AuthorizeURL,
				TokenURL:  cfg.apiURL() + "oauth.v2.access",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// AuthCodeURL builds the authorize URL. Slack expects scopes comma separated.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.oauth2.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", strings.Join(o.cfg.Scopes, ",")))
}

func (o *OAuth) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	tok, err := o.oauth2.Exchange(o.withClient(ctx), code)
	if err != nil {
		return nil, retrieveError(err)
	}
	grant := toGrant(tok)
	if team, ok := tok.Extra("team").(map[string]interface{}); ok {
		grant.WorkspaceID, _ = team["id"].(string)
		grant.WorkspaceName, _ = team["name"].(string)
	}
	if grant.WorkspaceID == "" {
		return nil, fmt.Errorf("slack oauth response missing team id")
	}
	return grant, nil
}

// Refresh exchanges refreshToken for a new access token.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	tok, err := o.oauth2.TokenSource(o.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, retrieveError(err)
	}
	return toGrant(tok), nil
}

func (o *OAuth) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.cfg.httpClient())
}

func toGrant(tok *oauth2.Token) *model.TokenGrant {
	grant := &model.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}
	return grant
}

func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if !tok.Expiry.IsZero() {
		return int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return 0
}

func retrieveError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		return &model.ProviderError{Code: re.ErrorCode}
	}
	return err
}
