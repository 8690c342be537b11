package graph

import (
	"context"
	"strings"
	"time"
)

// BaseAuthorizationURL hosts the login dialog.
const BaseAuthorizationURL = "https://www.facebook.com"

// OAuth2Client exchanges codes and tokens with the Graph OAuth endpoints.
type OAuth2Client struct {
	app          *App
	client       *Client
	graphVersion string
	lastRequest  *Request
}

// NewOAuth2Client returns an OAuth client for app.
func NewOAuth2Client(app *App, client *Client, graphVersion string) *OAuth2Client {
	return &OAuth2Client{app: app, client: client, graphVersion: graphVersion}
}

// LastRequest returns the most recent request sent, for inspection.
func (o *OAuth2Client) LastRequest() *Request { return o.lastRequest }

// DebugToken inspects token with the app access token.
func (o *OAuth2Client) DebugToken(ctx context.Context, token string) (*AccessTokenMetadata, error) {
	req, err := NewRequest(o.app, o.app.AccessToken().Value(), "GET", "/debug_token",
		ParamsOf("input_token", token), "", o.graphVersion)
	if err != nil {
		return nil, err
	}
	o.lastRequest = req
	resp, err := o.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewAccessTokenMetadata(resp.DecodedBody())
}

// AuthorizationURL builds the login dialog URL. Caller params are kept and
// the OAuth params are added after them; sep joins the query pairs.
func (o *OAuth2Client) AuthorizationURL(redirectURL, state string, scope []string, params *Params, sep string) string {
	query := params.Clone()
	defaults := ParamsOf(
		"client_id", o.app.ID(),
		"state", state,
		"response_type", "code",
		"sdk", SDKName+"-"+Version,
		"redirect_uri", redirectURL,
		"scope", strings.Join(scope, ","),
	)
	for k, v := range defaults.All() {
		if !query.Has(k) {
			query.Set(k, v)
		}
	}
	if sep == "" {
		sep = "&"
	}
	encoded := strings.ReplaceAll(EncodeParams(query), "&", sep)
	return BaseAuthorizationURL + "/" + o.graphVersion + "/dialog/oauth?" + encoded
}

// AccessTokenFromCode exchanges an authorization code for a token.
func (o *OAuth2Client) AccessTokenFromCode(ctx context.Context, code, redirectURI string) (*AccessToken, error) {
	return o.requestAccessToken(ctx, ParamsOf(
		"code", code,
		"redirect_uri", redirectURI,
	))
}

// LongLivedAccessToken exchanges a short-lived token for a long-lived one.
func (o *OAuth2Client) LongLivedAccessToken(ctx context.Context, token string) (*AccessToken, error) {
	return o.requestAccessToken(ctx, ParamsOf(
		"grant_type", "fb_exchange_token",
		"fb_exchange_token", token,
	))
}

// CodeFromLongLivedAccessToken asks Graph for a code that can be redeemed
// on another client.
func (o *OAuth2Client) CodeFromLongLivedAccessToken(ctx context.Context, token, redirectURI string) (string, error) {
	resp, err := o.sendWithClientParams(ctx, "/oauth/client_code", ParamsOf("redirect_uri", redirectURI), token)
	if err != nil {
		return "", err
	}
	v, ok := resp.DecodedBody().Get("code")
	code, _ := toString(v)
	if !ok || code == "" {
		return "", &AuthError{Message: "Code was not returned from Graph.", Code: CodeUnexpectedTokenData}
	}
	return code, nil
}

func (o *OAuth2Client) requestAccessToken(ctx context.Context, params *Params) (*AccessToken, error) {
	resp, err := o.sendWithClientParams(ctx, "/oauth/access_token", params, "")
	if err != nil {
		return nil, err
	}
	body := resp.DecodedBody()
	v, _ := body.Get("access_token")
	value, _ := toString(v)
	if value == "" {
		return nil, &AuthError{Message: "Access token was not returned from Graph.", Code: CodeUnexpectedTokenData}
	}

	// Graph names the lifetime "expires" on exchange and "expires_in" otherwise.
	for _, key := range []string{"expires", "expires_in"} {
		raw, ok := body.Get(key)
		if !ok {
			continue
		}
		if secs, ok := toInt(raw); ok && secs > 0 {
			return NewAccessTokenWithExpiry(value, now().Add(time.Duration(secs)*time.Second)), nil
		}
	}
	return NewAccessToken(value), nil
}

func (o *OAuth2Client) sendWithClientParams(ctx context.Context, endpoint string, params *Params, token string) (*Response, error) {
	params = params.Clone()
	params.Set("client_id", o.app.ID())
	params.Set("client_secret", o.app.Secret())
	if token == "" {
		token = o.app.AccessToken().Value()
	}
	req, err := NewRequest(o.app, token, "GET", endpoint, params, "", o.graphVersion)
	if err != nil {
		return nil, err
	}
	o.lastRequest = req
	return o.client.SendRequest(ctx, req)
}
