package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docminer/internal/session"
	"docminer/pkg/types"
)

var runsFlags struct {
	output string
	limit  int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "View extraction sessions and their results",
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all sessions in the output directory",
	RunE:  runRunsLs,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Show extracted records for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.PersistentFlags().StringVarP(&runsFlags.output, "output", "o", "./output", "Output directory to scan")
	runsShowCmd.Flags().IntVarP(&runsFlags.limit, "limit", "n", 20, "Max records to show; 0 shows all")
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsShowCmd)
}

type sessionInfo struct {
	Dir      string
	Name     string
	Manifest *types.Manifest
}

// listSessions loads every manifest-bearing directory under the output dir
func listSessions(outputDir string) ([]sessionInfo, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	var sessions []sessionInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(outputDir, entry.Name())
		manifest, err := session.LoadManifest(dir)
		if err != nil || manifest == nil {
			continue
		}
		sessions = append(sessions, sessionInfo{Dir: dir, Name: entry.Name(), Manifest: manifest})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Manifest.UpdatedAt.After(sessions[j].Manifest.UpdatedAt)
	})

	return sessions, nil
}

func runRunsLs(cmd *cobra.Command, args []string) error {
	sessions, err := listSessions(runsFlags.output)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Printf("No sessions found in %s\n", runsFlags.output)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"SESSION", "FORM", "RECORDS", "RUNS", "UPDATED"})
	for _, s := range sessions {
		t.AppendRow(table.Row{
			s.Name,
			s.Manifest.Form.Title,
			len(s.Manifest.Records),
			len(s.Manifest.Runs),
			s.Manifest.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	t.Render()
	return nil
}

// resolveSession accepts either a session name under the output dir or a
// direct path to a session directory
func resolveSession(arg string) (string, *types.Manifest, error) {
	for _, dir := range []string{arg, filepath.Join(runsFlags.output, arg)} {
		manifest, err := session.LoadManifest(dir)
		if err == nil && manifest != nil {
			return dir, manifest, nil
		}
	}
	return "", nil, fmt.Errorf("no session found at %q", arg)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	dir, manifest, err := resolveSession(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Session: %s\n", dir)
	fmt.Printf("Form: %s (%s)\n", manifest.Form.Title, manifest.Form.Hash)
	fmt.Printf("Records: %d\n\n", len(manifest.Records))

	ids := make([]string, 0, len(manifest.Records))
	for id := range manifest.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if runsFlags.limit > 0 && len(ids) > runsFlags.limit {
		ids = ids[:runsFlags.limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"DOCUMENT", "ENTRIES", "EXTRACTED"})
	for _, id := range ids {
		r := manifest.Records[id]
		t.AppendRow(table.Row{id, len(r.Entries), r.ExtractedAt.Format("2006-01-02 15:04")})
	}
	t.Render()

	if len(manifest.Runs) > 0 {
		last := manifest.Runs[len(manifest.Runs)-1]
		fmt.Printf("\nLast run %s: %s, %d succeeded, %d failed\n",
			last.InvocationID, last.Status, last.Succeeded, last.Failed)
		for _, f := range last.Failures {
			fmt.Printf("  - %s (%s): %s\n", f.DocumentID, f.Stage, f.Error)
		}
	}

	return nil
}
