// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package llm backs the planner and executor collaborators with an OpenCode
// server session.
package llm

import (
	"context"
	"fmt"

	"github.com/sst/opencode-sdk-go"
	"github.com/sst/opencode-sdk-go/option"
)

// Client wraps the OpenCode SDK client with the prompt surface the planner
// and executor need.
type Client struct {
	sdk     *opencode.Client
	baseURL string
	model   string
}

// NewClient creates a client for a running opencode serve instance.
func NewClient(baseURL, model string) *Client {
	sdk := opencode.NewClient(
		option.WithBaseURL(baseURL),
	)
	return &Client{sdk: sdk, baseURL: baseURL, model: model}
}

// PromptClient is the session surface the planner and executor depend on.
// Tests substitute a canned implementation.
type PromptClient interface {
	Prompt(ctx context.Context, title, prompt string) (string, error)
}

// Prompt creates a session, sends the prompt, and returns the concatenated
// text parts of the response.
func (c *Client) Prompt(ctx context.Context, title, prompt string) (string, error) {
	session, err := c.sdk.Session.New(ctx, opencode.SessionNewParams{
		Title: opencode.F(title),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	parts := []opencode.SessionPromptParamsPartUnion{
		opencode.TextPartInputParam{
			Type: opencode.F(opencode.TextPartInputTypeText),
			Text: opencode.F(prompt),
		},
	}
	params := opencode.SessionPromptParams{
		Parts: opencode.F(parts),
	}
	if c.model != "" {
		params.Model = opencode.F(opencode.SessionPromptParamsModel{
			ModelID: opencode.F(c.model),
		})
	}

	message, err := c.sdk.Session.Prompt(ctx, session.ID, params)
	if err != nil {
		return "", fmt.Errorf("failed to send prompt: %w", err)
	}

	var text string
	for _, part := range message.Parts {
		if part.Type == opencode.PartTypeText {
			text += part.Text
		}
	}
	return text, nil
}
