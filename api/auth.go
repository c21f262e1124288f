package api

import (
	"context"
	"net/http"

	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/identity"
	"github.com/itsneelabh/storesync/normalize"
)

// Credentials are what the login endpoint accepts.
type Credentials struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Login exchanges credentials for a Session. It uses the auth timeout
// rather than the general request timeout. A response without a token is
// reported as an *core.HTTPError carrying the backend's message.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Role == "" {
		creds.Role = "consumer"
	}
	resp, err := c.do(ctx, c.authTimeout, nil, http.MethodPost, c.endpoints.Login, "", creds)
	if err != nil {
		return nil, err
	}

	obj, _ := normalize.Object(resp.Body)
	token := normalize.String(obj, "token", "data.token", "accessToken")
	if token == "" {
		msg := normalize.Message(resp.Body)
		if msg == "" {
			msg = "Login failed"
		}
		return nil, &core.HTTPError{
			Method:        http.MethodPost,
			URL:           c.baseURL + c.endpoints.Login,
			Status:        resp.Status,
			ServerMessage: msg,
			Body:          resp.Body,
		}
	}

	sess := &Session{Token: token}
	if raw, ok := normalize.First(obj, "user", "data.user"); ok {
		if user, ok := normalize.Object(raw); ok {
			sess.User = user
			sess.UserID, _ = identity.RecordID(user)
		}
	}
	return sess, nil
}

// Logout invalidates the session's token on the backend.
func (c *Client) Logout(ctx context.Context, sess *Session) error {
	_, err := c.do(ctx, c.authTimeout, sess, http.MethodPost, c.endpoints.Logout, "", nil)
	return err
}
