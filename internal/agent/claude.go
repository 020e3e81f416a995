package agent

import (
	"context"
	"fmt"
	"io/fs"

	"belaykit"

	"docminer/internal/corpus"
	"docminer/pkg/types"
)

// ClaudeInvoker performs one extraction call per document through the Claude
// CLI. Safe for concurrent use: each call is an independent CLI invocation.
type ClaudeInvoker struct {
	runner  Runner
	prompts fs.FS
	form    *types.Form
	model   string
	logger  belaykit.EventHandler
}

// NewClaudeInvoker creates a Claude CLI invoker for the given form
func NewClaudeInvoker(runner Runner, prompts fs.FS, form *types.Form, model string, logger belaykit.EventHandler) *ClaudeInvoker {
	return &ClaudeInvoker{
		runner:  runner,
		prompts: prompts,
		form:    form,
		model:   model,
		logger:  logger,
	}
}

// Invoke loads the document, renders the extraction prompt, and returns the
// raw model output
func (c *ClaudeInvoker) Invoke(ctx context.Context, doc types.Document) ([]byte, error) {
	text, err := corpus.LoadText(doc)
	if err != nil {
		return nil, err
	}

	prompt, err := renderPrompt(c.prompts, c.form, doc, text)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	opts := []belaykit.RunOption{
		belaykit.WithModel(c.model),
		belaykit.WithDisallowedTools("WebSearch", "WebFetch"),
	}
	if c.logger != nil {
		opts = append(opts, belaykit.WithEventHandler(c.logger))
	}

	result, err := c.runner.Run(ctx, prompt, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("running agent: %w", err)
	}

	return []byte(result.Text), nil
}
