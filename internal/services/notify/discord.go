package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

// componentsV2Flag opts the webhook message into Discord's components V2
// layout, which replaces the legacy content/embeds body.
const componentsV2Flag = 1 << 15

// Message carries everything the gateway needs to render one review prompt.
// Key is the capability key baked into the approve and remove action URLs.
type Message struct {
	Community   community.Community
	ImageURL    string
	DisplayName string
	DiscordID   string
	UserID      string
	Key         string
}

// Gateway posts, edits, and deletes review prompts on Discord webhook
// targets. It holds no state beyond its HTTP client; message ids live on the
// review records.
type Gateway struct {
	client        *http.Client
	actionBaseURL string
	log           *zap.Logger
	now           func() time.Time
}

func NewGateway(client *http.Client, actionBaseURL string, log *zap.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		client:        client,
		actionBaseURL: actionBaseURL,
		log:           log,
		now:           time.Now,
	}
}

// Notify posts a new review prompt and returns the provider-assigned message
// id. The id is required for any later edit or retraction, so a send that
// cannot produce one is an error.
func (g *Gateway) Notify(ctx context.Context, target string, m Message) (string, error) {
	if target == "" {
		return "", fmt.Errorf("webhook target is required")
	}

	body, err := json.Marshal(g.payload(m, false))
	if err != nil {
		return "", fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target+"?wait=true&with_components=true", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send review webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("send review webhook: unexpected status %d", resp.StatusCode)
	}

	var message struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		return "", fmt.Errorf("decode webhook response: %w", err)
	}
	if message.ID == "" {
		return "", fmt.Errorf("webhook response carried no message id")
	}

	return message.ID, nil
}

// MarkApproved rewrites an existing prompt so the approve button reads as
// already used. Callers treat failures as best-effort.
func (g *Gateway) MarkApproved(ctx context.Context, target, messageID string, m Message) error {
	if target == "" || messageID == "" {
		return fmt.Errorf("webhook target and message id are required")
	}

	body, err := json.Marshal(g.payload(m, true))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/messages/%s?wait=true&with_components=true", target, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("update review webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("update review webhook: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// Retract deletes the prompt message. The review it belonged to is already
// being discarded, so callers log failures and move on.
func (g *Gateway) Retract(ctx context.Context, target, messageID string) error {
	if target == "" || messageID == "" {
		return fmt.Errorf("webhook target and message id are required")
	}

	endpoint := fmt.Sprintf("%s/messages/%s", target, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete review webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delete review webhook: unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (g *Gateway) payload(m Message, approved bool) map[string]any {
	content := fmt.Sprintf("User %s uploaded a %s", m.DisplayName, m.Community)
	if m.DiscordID != "" {
		content = fmt.Sprintf("User %s (<@%s>) uploaded a %s", m.DisplayName, m.DiscordID, m.Community)
	}

	approveButton := map[string]any{
		"type":  2,
		"label": "Approve",
		"emoji": map[string]any{
			"id":   nil,
			"name": "✅",
		},
		"style": 5,
		"url":   g.actionURL("approve", m),
	}
	if approved {
		approveButton = map[string]any{
			"type":     2,
			"label":    "Already Approved",
			"style":    5,
			"url":      g.actionURL("approve", m),
			"disabled": true,
		}
	}

	return map[string]any{
		"flags": componentsV2Flag,
		"components": []map[string]any{
			{
				"type": 17,
				"components": []map[string]any{
					{
						"type":    10,
						"content": content,
					},
					{
						"type": 12,
						"items": []map[string]any{
							{
								// Cache buster: Discord caches media URLs per
								// exact string, and the object behind this key
								// gets replaced on resubmission.
								"media": map[string]any{"url": m.ImageURL + "?t=" + strconv.FormatInt(g.now().UnixMilli(), 10)},
							},
						},
					},
					{
						"type": 1,
						"components": []map[string]any{
							approveButton,
							{
								"type":  2,
								"label": "Remove",
								"emoji": map[string]any{
									"id":   nil,
									"name": "🗑️",
								},
								"style": 5,
								"url":   g.actionURL("delete", m),
							},
						},
					},
				},
			},
		},
	}
}

func (g *Gateway) actionURL(action string, m Message) string {
	return fmt.Sprintf("%s/moderation/%s?key=%s&community=%s&userId=%s",
		g.actionBaseURL, action,
		url.QueryEscape(m.Key), url.QueryEscape(m.Community.String()), url.QueryEscape(m.UserID))
}
