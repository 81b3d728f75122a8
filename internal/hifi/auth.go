package hifi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Login authenticates with username/password. The login endpoint is
// called twice: first with the playlist token, then with the general
// API token, because the two resulting session ids unlock different
// endpoint sets. The returned session is NOT installed on the client;
// call SetSession with it after persisting.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	if username == "" || password == "" {
		return Session{}, fmt.Errorf("username and password required")
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	playlistLogin, err := c.loginWithToken(ctx, form, c.tokens.Playlist)
	if err != nil {
		return Session{}, err
	}
	mainLogin, err := c.loginWithToken(ctx, form, c.tokens.API)
	if err != nil {
		return Session{}, err
	}

	return Session{
		UserID:            string(mainLogin.UserID),
		SessionID:         mainLogin.SessionID,
		PlaylistSessionID: playlistLogin.SessionID,
		CountryCode:       mainLogin.CountryCode,
	}, nil
}

func (c *Client) loginWithToken(ctx context.Context, form url.Values, token string) (loginJSON, error) {
	header := http.Header{}
	header.Set("X-API-Token", token)

	data, _, err := c.do(ctx, http.MethodPost, "login/username", nil, form, header)
	if err != nil {
		return loginJSON{}, err
	}
	var login loginJSON
	if err := json.Unmarshal(data, &login); err != nil {
		return loginJSON{}, fmt.Errorf("failed to parse login response: %w", err)
	}
	if login.SessionID == "" {
		return loginJSON{}, fmt.Errorf("login response carried no session id")
	}
	return login, nil
}

// FetchSubscription asks the API for the session user's subscription
// level. Install the result on the session so lossless stream requests
// can be downgraded for accounts that do not allow them.
func (c *Client) FetchSubscription(ctx context.Context) (string, error) {
	if err := c.requireLogin(); err != nil {
		return "", err
	}
	var sub subscriptionJSON
	if err := c.getJSON(ctx, "users/"+c.session.UserID+"/subscription", nil, &sub); err != nil {
		return "", err
	}
	return sub.Subscription.Type, nil
}

// Logout drops the client's session credentials. Persisted settings are
// the caller's concern.
func (c *Client) Logout() {
	c.session = Session{}
}

// DetectCountry asks the API which country the client appears to be in.
// Used when neither the config nor the session provides one.
func (c *Client) DetectCountry(ctx context.Context) (string, error) {
	header := http.Header{}
	header.Set("X-API-Token", c.tokens.API)
	query := url.Values{}
	query.Set("countryCode", "WW")

	data, _, err := c.do(ctx, http.MethodGet, "country/context", query, nil, header)
	if err != nil {
		return "", err
	}
	var country countryJSON
	if err := json.Unmarshal(data, &country); err != nil {
		return "", fmt.Errorf("failed to parse country response: %w", err)
	}
	return country.CountryCode, nil
}
