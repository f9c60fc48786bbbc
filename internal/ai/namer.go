// Package ai provides optional AI-powered group title suggestions.
//
// The namer is strictly best-effort: group creation never waits on it and
// never fails because of it. When it is disabled, unconfigured, or errors
// out, callers fall back to the deterministic default group name.
package ai

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/groupthink/groupthink/internal/config"
)

const maxTitleLength = 120

// Namer suggests a short human-readable title for a group of duplicate tasks
type Namer struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewNamer creates a namer from config. Returns nil (not an error) when the
// namer is disabled or ANTHROPIC_API_KEY is unset; a nil *Namer is safe to
// call and always reports itself unavailable.
func NewNamer(cfg config.NamerConfig) *Namer {
	if !cfg.Enabled {
		return nil
	}
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		log.Printf("[AI] namer enabled but ANTHROPIC_API_KEY is not set, using default group names")
		return nil
	}

	return &Namer{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
	}
}

// Available reports whether title suggestions can be made
func (n *Namer) Available() bool {
	return n != nil
}

// SuggestTitle asks the model for a short title summarizing what the member
// descriptions have in common. Single attempt, short timeout; the caller has
// a deterministic fallback, so retry machinery buys nothing here.
func (n *Namer) SuggestTitle(ctx context.Context, descriptions []string) (string, error) {
	if n == nil {
		return "", fmt.Errorf("namer is not available")
	}
	if len(descriptions) == 0 {
		return "", fmt.Errorf("no descriptions to summarize")
	}

	prompt := n.buildPrompt(descriptions)

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: 100,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("title suggestion failed: %w", err)
	}

	var title string
	for _, block := range resp.Content {
		if block.Type == "text" {
			title += block.Text
		}
	}

	title = sanitizeTitle(title)
	if title == "" {
		return "", fmt.Errorf("model returned empty title")
	}
	return title, nil
}

func (n *Namer) buildPrompt(descriptions []string) string {
	var sb strings.Builder
	sb.WriteString("These task descriptions were detected as duplicates of each other. ")
	sb.WriteString("Write one short title (under 10 words) naming what they describe. ")
	sb.WriteString("Respond with the title only, no quotes, no explanation.\n\n")
	for i, desc := range descriptions {
		// Titles summarize, they don't need full text
		if len(desc) > 500 {
			desc = desc[:500]
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, desc))
	}
	return sb.String()
}

// sanitizeTitle strips quoting and whitespace the model tends to add and
// enforces the group name length limit.
func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength])
	}
	return title
}
