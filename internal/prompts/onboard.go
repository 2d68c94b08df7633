// Package prompts implements MCP prompt handlers for the context index.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// OnboardPrompt handles the index-onboard MCP prompt.
// It guides the AI through tagging and indexing an existing codebase.
type OnboardPrompt struct{}

// NewOnboardPrompt creates an OnboardPrompt.
func NewOnboardPrompt() *OnboardPrompt {
	return &OnboardPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OnboardPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("index-onboard",
		mcp.WithPromptDescription(
			"Bring an existing codebase into the context index. "+
				"Walks through appending AGTAG metadata blocks to source files "+
				"and indexing them directory by directory.",
		),
		mcp.WithArgument("dir",
			mcp.ArgumentDescription("Directory to start with, relative to the repository root. Default: the whole repository"),
		),
	)
}

// Handle processes the index-onboard prompt request.
func (p *OnboardPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	dir := "."
	if args := req.Params.Arguments; args != nil {
		if d, ok := args["dir"]; ok && d != "" {
			dir = d
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Index codebase under: %s", dir),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to bring the code under '%s' into the agentdb context index.\n\n"+
						"Please:\n"+
						"1. Run `inventory` to see what is already tracked\n"+
						"2. List the source files under '%s' and, for each untracked file, "+
						"append an AGTAG metadata block at the end: one entry per top-level "+
						"symbol with name, kind, lines, a one-sentence summary_l0, and a "+
						"contract_l1 describing inputs/outputs/errors\n"+
						"3. Run `ingest_directory` on '%s' and report which files indexed and which failed\n"+
						"4. Fix any failures (follow each error's hint) and re-run until clean\n"+
						"5. Finish with a `search` for a symbol I name, to confirm the index answers queries",
					dir, dir, dir,
				)),
			},
		},
	}, nil
}
