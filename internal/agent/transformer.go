package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docminer/internal/pipeline"
	"docminer/pkg/types"
)

// FormTransformer parses raw model output into a domain record shaped by the
// extraction form
type FormTransformer struct {
	Form *types.Form
}

// Transform parses the model's JSON response into a record. A payload with
// no JSON object or an empty entries array is a malformed response: the
// invocation succeeded but produced nothing usable.
func (t *FormTransformer) Transform(doc types.Document, payload []byte) (*types.Record, error) {
	response := stripCodeFences(string(payload))

	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return nil, &pipeline.MalformedResponseError{Err: fmt.Errorf("no JSON object in response")}
	}
	jsonStr := response[jsonStart : jsonEnd+1]

	var parsed struct {
		Entries []struct {
			Fields []struct {
				ID         string   `json:"id"`
				Value      any      `json:"value"`
				Confidence float64  `json:"confidence"`
				Evidence   []string `json:"evidence"`
			} `json:"fields"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, &pipeline.MalformedResponseError{Err: fmt.Errorf("parsing JSON: %w", err)}
	}

	if len(parsed.Entries) == 0 {
		return nil, &pipeline.MalformedResponseError{Err: fmt.Errorf("no entries in response")}
	}

	record := &types.Record{
		DocumentID:  doc.ID,
		Source:      doc.Source,
		Entries:     make([]types.Entry, 0, len(parsed.Entries)),
		ExtractedAt: time.Now(),
	}

	for _, entry := range parsed.Entries {
		fields := make([]types.FieldValue, 0, len(entry.Fields))
		for _, f := range entry.Fields {
			// Drop field IDs the form does not define
			if t.Form != nil && fieldByID(t.Form, f.ID) == nil {
				continue
			}
			ev := make([]types.Evidence, len(f.Evidence))
			for i, e := range f.Evidence {
				ev[i] = types.Evidence{Text: e}
			}
			fields = append(fields, types.FieldValue{
				ID:         f.ID,
				Value:      f.Value,
				Confidence: f.Confidence,
				Evidence:   ev,
			})
		}
		record.Entries = append(record.Entries, types.Entry{Fields: fields})
	}

	return record, nil
}

func fieldByID(form *types.Form, id string) *types.Field {
	for i := range form.Fields {
		if form.Fields[i].ID == id {
			return &form.Fields[i]
		}
	}
	return nil
}

// stripCodeFences removes markdown code fences from LLM responses so the
// JSON inside can be parsed cleanly. Handles ```json ... ``` wrapping and
// duplicated blocks that some models produce.
func stripCodeFences(s string) string {
	var result strings.Builder
	lines := strings.Split(s, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return result.String()
}
