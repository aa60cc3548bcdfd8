package model

// DefaultTokenLifetime is applied when the provider does not report expires_in.
const DefaultTokenLifetime int64 = 31536000

// Credential stores the Slack OAuth credential of a connected workspace.
// Timestamps are unix seconds.
type Credential struct {
	ID            int64  `json:"id"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	AccessToken   string `json:"-"`
	RefreshToken  string `json:"-"` // empty when the integration never issued one
	ExpiresAt     *int64 `json:"expires_at,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// HasRefreshToken reports whether a refresh token is on file.
func (c *Credential) HasRefreshToken() bool { return c.RefreshToken != "" }

// ExpiresWithin reports whether the access token expires within threshold seconds of now.
// A credential without expiry is treated as long-lived.
func (c *Credential) ExpiresWithin(now, threshold int64) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return *c.ExpiresAt-now <= threshold
}

// Workspace is the public view of a connected workspace.
type Workspace struct {
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
}

// TokenGrant is the result of an OAuth code exchange or refresh grant.
type TokenGrant struct {
	AccessToken   string
	RefreshToken  string // empty when the provider did not rotate it
	ExpiresIn     int64  // seconds, 0 when omitted
	WorkspaceID   string
	WorkspaceName string
}

// ExpiresAtFrom resolves the absolute expiry of the grant relative to now.
func (g *TokenGrant) ExpiresAtFrom(now int64) int64 {
	if g.ExpiresIn > 0 {
		return now + g.ExpiresIn
	}
	return now + DefaultTokenLifetime
}
