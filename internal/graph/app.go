package graph

import (
	"fmt"
	"strings"
)

// App holds the credentials of a Graph application.
type App struct {
	id     string
	secret string
}

// NewApp returns the credentials for the given app id and secret.
func NewApp(id, secret string) *App {
	return &App{id: id, secret: secret}
}

func (a *App) ID() string     { return a.id }
func (a *App) Secret() string { return a.secret }

// AccessToken returns the app access token "id|secret".
func (a *App) AccessToken() *AccessToken {
	return NewAccessToken(a.id + "|" + a.secret)
}

// Serialize encodes the credentials as "id|secret".
func (a *App) Serialize() string {
	return a.id + "|" + a.secret
}

// ParseApp decodes credentials produced by Serialize.
func ParseApp(s string) (*App, error) {
	id, secret, ok := strings.Cut(s, "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid app credentials %q", s)
	}
	return NewApp(id, secret), nil
}
