package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bgnews/newsrelay/app/post"
	"github.com/bgnews/newsrelay/app/retry"
)

const DefaultGraphAPIURL = "https://graph.facebook.com/v18.0/me/messages"

var ErrNoRecipientAccepted = errors.New("no recipient accepted the message")

type Recipient struct {
	ID   string
	Name string
}

// ParseRecipients reads "id" or "id:name" entries.
func ParseRecipients(values []string) []Recipient {
	recipients := make([]Recipient, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, name, _ := strings.Cut(v, ":")
		if name == "" {
			name = id
		}
		recipients = append(recipients, Recipient{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return recipients
}

type messageRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// MessengerPublisher sends the caption to every recipient through the Graph
// API Send endpoint.
type MessengerPublisher struct {
	client     *resty.Client
	apiURL     string
	recipients []Recipient
	caption    CaptionOptions
	policy     retry.Policy
}

func NewMessengerPublisher(apiURL, token string, recipients []Recipient, caption CaptionOptions, policy retry.Policy) *MessengerPublisher {
	if apiURL == "" {
		apiURL = DefaultGraphAPIURL
	}

	client := resty.New()
	client.SetAuthToken(token)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(30 * time.Second)

	return &MessengerPublisher{
		client:     client,
		apiURL:     apiURL,
		recipients: recipients,
		caption:    caption,
		policy:     policy,
	}
}

// Publish succeeds when at least one recipient accepted the message.
func (p *MessengerPublisher) Publish(ctx context.Context, item post.Item) error {
	if len(p.recipients) == 0 {
		return fmt.Errorf("%w: no recipients configured", ErrNoRecipientAccepted)
	}

	text := Caption(item, p.caption)
	accepted := 0

	for _, recipient := range p.recipients {
		err := retry.Do(ctx, p.policy, func(ctx context.Context) error {
			return p.send(ctx, recipient.ID, text)
		})
		if err != nil {
			slog.Warn("Failed to send message", "recipient", recipient.Name, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		slog.Info("Message sent", "recipient", recipient.Name)
		accepted++
	}

	if accepted == 0 {
		return fmt.Errorf("%w: 0 of %d", ErrNoRecipientAccepted, len(p.recipients))
	}
	return nil
}

func (p *MessengerPublisher) send(ctx context.Context, recipientID, text string) error {
	var body messageRequest
	body.Recipient.ID = recipientID
	body.Message.Text = text

	var apiErr graphError
	res, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post(p.apiURL)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if res.StatusCode() == http.StatusOK {
		return nil
	}

	statusErr := fmt.Errorf("graph API returned %d: %s", res.StatusCode(), apiErr.Error.Message)
	if res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= 500 {
		return statusErr
	}
	return retry.Permanent(statusErr)
}
