// Package corpus enumerates source documents and loads their text content.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"docminer/pkg/types"
)

// document extensions the pipeline knows how to read
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// Enumerate lists the documents under dir in deterministic (sorted) order.
// maxItems > 0 caps how many documents are returned; 0 means no cap. The
// document ID is the file name without its extension and must be unique
// within the corpus.
func Enumerate(dir string, maxItems int) ([]types.Document, error) {
	if maxItems < 0 {
		return nil, fmt.Errorf("max items %d, must not be negative", maxItems)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	var docs []types.Document
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !textExtensions[ext] {
			continue
		}

		id := strings.TrimSuffix(name, filepath.Ext(name))
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("duplicate document id %q: %s and %s", id, prev, name)
		}
		seen[id] = name

		docs = append(docs, types.Document{
			ID:     id,
			Source: filepath.Join(dir, name),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	if maxItems > 0 && len(docs) > maxItems {
		docs = docs[:maxItems]
	}

	return docs, nil
}

// LoadText reads a document's content as plain text. HTML documents are
// stripped to their text nodes.
func LoadText(doc types.Document) (string, error) {
	data, err := os.ReadFile(doc.Source)
	if err != nil {
		return "", fmt.Errorf("reading document %s: %w", doc.ID, err)
	}

	ext := strings.ToLower(filepath.Ext(doc.Source))
	if ext == ".html" || ext == ".htm" {
		return stripHTML(string(data)), nil
	}
	return string(data), nil
}

func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		// Fallback to the raw string if parsing fails
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
