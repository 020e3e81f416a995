package agent

import (
	"fmt"
	"io/fs"

	"belaykit"

	"docminer/pkg/types"
)

// renderPrompt renders the extraction prompt for one document
func renderPrompt(prompts fs.FS, form *types.Form, doc types.Document, text string) (string, error) {
	pt, err := belaykit.LoadPromptTemplate(prompts, "extract.md", nil)
	if err != nil {
		return "", fmt.Errorf("loading prompt template: %w", err)
	}

	data := struct {
		FormTitle       string
		FormDescription string
		Fields          []types.Field
		DocumentID      string
		DocumentText    string
	}{
		FormTitle:       form.Title,
		FormDescription: form.Description,
		Fields:          form.Fields,
		DocumentID:      doc.ID,
		DocumentText:    text,
	}

	return pt.Render(data)
}
