package slackapi

import (
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAPIURL = "https://slack.com/api/"
	AuthorizeURL  = "https://slack.com/oauth/v2/authorize"
)

// Config represents Slack app configuration
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// APIURL overrides DefaultAPIURL. Must end with a slash.
	APIURL  string
	Timeout time.Duration
}

func (c Config) apiURL() string {
	if c.APIURL == "" {
		return DefaultAPIURL
	}
	if !strings.HasSuffix(c.APIURL, "/") {
		return c.APIURL + "/"
	}
	return c.APIURL
}

func (c Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
