package slackapi

import (
	"context"
	"errors"
	"net/http"

	"slack-connect/domain/model"

	"github.com/slack-go/slack"
)

// Client posts messages and lists conversations through the Slack Web API.
// It holds no token; every call carries the workspace's access token.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{apiURL: cfg.apiURL(), httpClient: cfg.httpClient()}
}

func (c *Client) api(accessToken string) *slack.Client {
	return slack.New(accessToken, slack.OptionAPIURL(c.apiURL), slack.OptionHTTPClient(c.httpClient))
}

// Send posts text to channelID. Slack ok=false responses come back as *model.ProviderError.
func (c *Client) Send(ctx context.Context, accessToken, channelID, text string) error {
	_, _, err := c.api(accessToken).PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	return providerError(err)
}

// ListChannels returns public and private, non-archived channels across all pages.
func (c *Client) ListChannels(ctx context.Context, accessToken string) ([]model.Channel, error) {
	api := c.api(accessToken)
	out := []model.Channel{}
	cursor := ""
	for {
		channels, next, err := api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:           []string{"public_channel", "private_channel"},
			ExcludeArchived: true,
			Limit:           200,
			Cursor:          cursor,
		})
		if err != nil {
			return nil, providerError(err)
		}
		for _, ch := range channels {
			out = append(out, model.Channel{ID: ch.ID, Name: ch.Name, IsPrivate: ch.IsPrivate})
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

func providerError(err error) error {
	if err == nil {
		return nil
	}
	var se slack.SlackErrorResponse
	if errors.As(err, &se) {
		return &model.ProviderError{Code: se.Err}
	}
	return err
}
