// Package mattermost provides webhook client for sending notifications to Mattermost.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bhashahub/crowdsource/internal/config"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

const botUsername = "Contribution Bot"

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Mattermost client.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Message represents a Mattermost message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Pretext  string  `json:"pretext,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Enabled reports whether messages are actually delivered.
func (c *Client) Enabled() bool {
	return c.enabled
}

// SendMessage sends a message to Mattermost.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}
	if msg.Username == "" {
		msg.Username = botUsername
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

// LanguageActivity is one row of the daily digest.
type LanguageActivity struct {
	Code          string
	Name          string
	Contributions int64
}

// SendDailyDigest posts per-language contribution counts for the last day.
// Nothing is sent when there was no activity.
func (c *Client) SendDailyDigest(ctx context.Context, day time.Time, activity []LanguageActivity) error {
	var total int64
	for _, a := range activity {
		total += a.Contributions
	}
	if total == 0 {
		c.log.Debug().Msg("No contributions in the last day, skipping digest")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### 📊 Daily Contribution Digest (%s)\n\n", day.Format("2006-01-02"))
	fmt.Fprintf(&b, "**%d** contributions in the last 24 hours:\n\n", total)
	b.WriteString("| Language | Contributions |\n|---|---:|\n")
	for _, a := range activity {
		if a.Contributions == 0 {
			continue
		}
		name := a.Name
		if name == "" {
			name = a.Code
		}
		fmt.Fprintf(&b, "| %s (`%s`) | %d |\n", name, a.Code, a.Contributions)
	}
	b.WriteString("\n_Thank you to everyone who contributed!_ 🙏")

	return c.SendMessage(ctx, &Message{Text: b.String()})
}

// ChallengeCompletion describes a finished challenge participation.
type ChallengeCompletion struct {
	UserName       string
	ChallengeTitle string
	Language       string
	Kind           string
	TargetCount    int
}

// SendChallengeCompleted announces that a user reached a challenge target.
func (c *Client) SendChallengeCompleted(ctx context.Context, completion ChallengeCompletion) error {
	if !c.enabled {
		return nil
	}

	return c.SendMessage(ctx, &Message{
		Attachments: []Attachment{{
			Fallback: fmt.Sprintf("%s completed %s", completion.UserName, completion.ChallengeTitle),
			Color:    "#2eb886",
			Pretext:  "🏆 **Challenge completed**",
			Title:    completion.ChallengeTitle,
			Fields: []Field{
				{Short: true, Title: "Contributor", Value: completion.UserName},
				{Short: true, Title: "Target", Value: fmt.Sprintf("%d %s", completion.TargetCount, completion.Kind)},
				{Short: true, Title: "Language", Value: completion.Language},
			},
		}},
	})
}
