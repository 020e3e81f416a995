package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"belaykit"
	"belaykit/claude"
	"github.com/spf13/cobra"

	"docminer/internal/agent"
	"docminer/internal/config"
	"docminer/internal/corpus"
	"docminer/internal/pipeline"
	"docminer/internal/schema"
	"docminer/internal/session"
	"docminer/pkg/types"
)

var runFlags struct {
	form        string
	corpus      string
	output      string
	sessionDir  string
	settings    string
	promptDir   string
	batchSize   int
	workers     int
	rateWindow  time.Duration
	itemTimeout time.Duration
	maxItems    int
	model       string
	backend     string
	chatBaseURL string
	redo        bool
	verbose     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an extraction pipeline over a document corpus",
	Long: `Run enumerates the documents in a corpus directory, drives them through
the inference service in fixed-size batches with bounded parallelism and an
inter-batch rate window, and persists one record file per document plus a
consolidated manifest into a session directory. Individual failures never
abort the run; the summary lists them.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.form, "form", "", "Path to extraction form JSON file (required)")
	f.StringVar(&runFlags.corpus, "corpus", "", "Directory of source documents (required)")
	f.StringVarP(&runFlags.output, "output", "o", "./output", "Output directory for sessions")
	f.StringVar(&runFlags.sessionDir, "session", "", "Existing session directory to resume (default: new session under --output)")
	f.StringVar(&runFlags.settings, "settings", "", "Optional YAML settings file; flags override its values")
	f.StringVar(&runFlags.promptDir, "prompts", "prompts", "Prompt template directory")
	f.IntVar(&runFlags.batchSize, "batch-size", 4, "Documents per batch")
	f.IntVar(&runFlags.workers, "workers", 4, "Concurrent documents within a batch")
	f.DurationVar(&runFlags.rateWindow, "rate-window", 0, "Minimum gap between starts of consecutive batches (e.g. 30s)")
	f.DurationVar(&runFlags.itemTimeout, "item-timeout", 0, "Per-document deadline; 0 disables")
	f.IntVar(&runFlags.maxItems, "max-items", 0, "Cap on documents enumerated; 0 means all")
	f.StringVar(&runFlags.model, "model", "haiku", "Model for extraction")
	f.StringVar(&runFlags.backend, "backend", "claude", "Inference backend: claude (CLI agent) or chat (HTTP endpoint)")
	f.StringVar(&runFlags.chatBaseURL, "chat-base-url", "", "Chat completions URL for the chat backend")
	f.BoolVar(&runFlags.redo, "redo", false, "Re-extract documents already recorded in a resumed session")
	f.BoolVarP(&runFlags.verbose, "verbose", "v", false, "Show full agent log output")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFlags.settings != "" {
		if err := applySettings(cmd); err != nil {
			return err
		}
	}

	if runFlags.form == "" || runFlags.corpus == "" {
		return fmt.Errorf("--form and --corpus are required")
	}

	form, err := schema.LoadForm(runFlags.form)
	if err != nil {
		return fmt.Errorf("loading form: %w", err)
	}
	formHash, err := schema.HashForm(form)
	if err != nil {
		return fmt.Errorf("hashing form: %w", err)
	}

	docs, err := corpus.Enumerate(runFlags.corpus, runFlags.maxItems)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents to process")
		return nil
	}

	sessionDir := runFlags.sessionDir
	if sessionDir == "" {
		sessionDir = filepath.Join(runFlags.output, session.GenerateSlug(form.Title))
	}

	manifest, err := session.LoadManifest(sessionDir)
	if err != nil {
		return err
	}
	if manifest == nil {
		manifest = session.NewManifest(types.FormRef{
			Title: form.Title,
			Path:  runFlags.form,
			Hash:  formHash,
		}, runFlags.corpus)
		fmt.Printf("Creating new session: %s\n", sessionDir)
	} else {
		fmt.Printf("Resuming session: %s\n", sessionDir)
		if !runFlags.redo {
			before := len(docs)
			docs = pendingDocuments(docs, manifest)
			if skipped := before - len(docs); skipped > 0 {
				fmt.Printf("Skipping %d already-extracted documents (--redo re-extracts them)\n", skipped)
			}
			if len(docs) == 0 {
				fmt.Println("All documents already extracted")
				return nil
			}
		}
	}

	invocationID := session.StartRun(manifest)
	if err := session.SaveManifest(sessionDir, manifest); err != nil {
		return err
	}

	sink := session.NewSink(sessionDir, manifest)

	invoker, err := buildInvoker(form)
	if err != nil {
		return err
	}

	ctrl := &pipeline.Controller{
		Invoker:     invoker,
		Transformer: &agent.FormTransformer{Form: form},
		Sink:        sink,
		Progress:    printProgress,
	}

	cfg := pipeline.Config{
		BatchSize:   runFlags.batchSize,
		Workers:     runFlags.workers,
		RateWindow:  runFlags.rateWindow,
		ItemTimeout: runFlags.itemTimeout,
	}

	// Handle interrupt: stop scheduling batches, let the in-flight one drain
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, saving progress...")
		cancel()
	}()

	fmt.Printf("Processing %d documents (batch size %d, %d workers, window %s)\n",
		len(docs), cfg.BatchSize, cfg.Workers, cfg.RateWindow)

	result, runErr := ctrl.Run(ctx, docs, cfg)
	if runErr != nil && errors.Is(runErr, pipeline.ErrInvalidConfig) {
		return runErr
	}

	status := "completed"
	if runErr != nil && ctx.Err() != nil {
		status = "interrupted"
	}

	var failures []types.FailureLog
	for _, f := range result.Failed {
		failures = append(failures, types.FailureLog{
			DocumentID: f.DocumentID,
			Stage:      string(f.Stage),
			Transient:  f.Transient,
			Error:      f.Err,
		})
	}
	session.CompleteRun(manifest, invocationID, status, len(result.Succeeded), len(result.Failed), failures)
	if err := session.SaveManifest(sessionDir, manifest); err != nil {
		return fmt.Errorf("saving final manifest: %w", err)
	}

	fmt.Printf("\n=== %s ===\n", status)
	fmt.Printf("Session: %s\n", sessionDir)
	fmt.Printf("Succeeded: %d\n", len(result.Succeeded))
	fmt.Printf("Failed: %d\n", len(result.Failed))
	for _, f := range result.Failed {
		fmt.Printf("  - %s (%s): %s\n", f.DocumentID, f.Stage, f.Err)
	}
	if status == "interrupted" {
		fmt.Printf("Resume with: docminer run --form %s --corpus %s --session %s\n",
			runFlags.form, runFlags.corpus, sessionDir)
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// pendingDocuments filters out documents the session manifest already holds a
// record for, so a resumed run only picks up the remaining work
func pendingDocuments(docs []types.Document, manifest *types.Manifest) []types.Document {
	pending := make([]types.Document, 0, len(docs))
	for _, doc := range docs {
		if _, ok := manifest.Records[doc.ID]; ok {
			continue
		}
		pending = append(pending, doc)
	}
	return pending
}

// applySettings loads the YAML settings file and fills in every knob the
// user did not set explicitly on the command line
func applySettings(cmd *cobra.Command) error {
	s, err := config.Load(runFlags.settings)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if !changed("form") && s.Form != "" {
		runFlags.form = s.Form
	}
	if !changed("corpus") && s.Corpus != "" {
		runFlags.corpus = s.Corpus
	}
	if !changed("output") && s.Output != "" {
		runFlags.output = s.Output
	}
	if !changed("batch-size") && s.BatchSize != 0 {
		runFlags.batchSize = s.BatchSize
	}
	if !changed("workers") && s.Workers != 0 {
		runFlags.workers = s.Workers
	}
	if !changed("rate-window") && s.RateWindowMs != 0 {
		runFlags.rateWindow = time.Duration(s.RateWindowMs) * time.Millisecond
	}
	if !changed("item-timeout") && s.ItemTimeoutS != 0 {
		runFlags.itemTimeout = time.Duration(s.ItemTimeoutS) * time.Second
	}
	if !changed("max-items") && s.MaxItems != 0 {
		runFlags.maxItems = s.MaxItems
	}
	if !changed("model") && s.Model != "" {
		runFlags.model = s.Model
	}
	if !changed("backend") && s.Backend != "" {
		runFlags.backend = s.Backend
	}
	if !changed("chat-base-url") && s.ChatBaseURL != "" {
		runFlags.chatBaseURL = s.ChatBaseURL
	}
	return nil
}

// buildInvoker wires the inference backend. The client handle is explicit
// here so tests and alternative backends can substitute their own.
func buildInvoker(form *types.Form) (pipeline.Invoker, error) {
	prompts := os.DirFS(runFlags.promptDir)

	switch runFlags.backend {
	case "claude":
		client := claude.NewClient()
		logOpts := []belaykit.LoggerOption{
			belaykit.LogTokens(true),
			belaykit.LogContent(runFlags.verbose),
			belaykit.WithAgentName("extract"),
			belaykit.WithModelName(runFlags.model),
			belaykit.WithPricing(claude.PricingForModel(runFlags.model)),
			belaykit.WithContextWindow(claude.ContextWindowForModel(runFlags.model)),
		}
		logger := belaykit.NewLogger(os.Stderr, logOpts...)
		return agent.NewClaudeInvoker(client, prompts, form, runFlags.model, logger), nil
	case "chat":
		if runFlags.chatBaseURL == "" {
			return nil, fmt.Errorf("--chat-base-url is required with the chat backend")
		}
		return &agent.ChatInvoker{
			BaseURL: runFlags.chatBaseURL,
			APIKey:  os.Getenv("DOCMINER_API_KEY"),
			Model:   runFlags.model,
			Prompts: prompts,
			Form:    form,
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want claude or chat)", runFlags.backend)
	}
}

func printProgress(oc pipeline.Outcome, done, total int) {
	if oc.Err != nil {
		fmt.Printf("  [%d/%d] %s → failed (%s): %v\n", done, total, oc.Document.ID, oc.Stage, oc.Err)
		return
	}
	fmt.Printf("  [%d/%d] %s → %d entries\n", done, total, oc.Document.ID, len(oc.Record.Entries))
}
