// Package score checks extracted records against ground truth.
package score

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"docminer/pkg/types"
)

// GroundTruth maps document ID to the expected entries for that document.
// Each expected entry maps field ID to the expected value.
type GroundTruth map[string][]map[string]any

// LoadGroundTruth loads a ground-truth file
func LoadGroundTruth(path string) (GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ground truth: %w", err)
	}

	var truth GroundTruth
	if err := json.Unmarshal(data, &truth); err != nil {
		return nil, fmt.Errorf("parsing ground truth JSON: %w", err)
	}

	return truth, nil
}

// DocScore holds the per-document comparison result
type DocScore struct {
	DocumentID string
	Fields     int  // expected field values
	Correct    int  // matching field values
	Missing    bool // no extracted record for this document
}

// Report aggregates field-level accuracy over a ground-truth set
type Report struct {
	Docs    []DocScore
	Fields  int
	Correct int
}

// Accuracy returns the fraction of expected field values extracted correctly
func (r *Report) Accuracy() float64 {
	if r.Fields == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Fields)
}

// Compare checks records against truth. Expected entries are matched to
// extracted entries by position; fuzzier entry alignment is deliberately out
// of scope. Documents present in truth but absent from records score zero
// and are marked missing.
func Compare(records map[string]*types.Record, truth GroundTruth) *Report {
	report := &Report{}

	ids := make([]string, 0, len(truth))
	for id := range truth {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		expected := truth[id]
		ds := DocScore{DocumentID: id}
		for _, entry := range expected {
			ds.Fields += len(entry)
		}

		record, ok := records[id]
		if !ok {
			ds.Missing = true
			report.Docs = append(report.Docs, ds)
			report.Fields += ds.Fields
			continue
		}

		for i, entry := range expected {
			if i >= len(record.Entries) {
				break
			}
			got := fieldMap(record.Entries[i])
			for fieldID, want := range entry {
				if value, ok := got[fieldID]; ok && valuesMatch(value, want) {
					ds.Correct++
				}
			}
		}

		report.Docs = append(report.Docs, ds)
		report.Fields += ds.Fields
		report.Correct += ds.Correct
	}

	return report
}

func fieldMap(entry types.Entry) map[string]any {
	m := make(map[string]any, len(entry.Fields))
	for _, f := range entry.Fields {
		m[f.ID] = f.Value
	}
	return m
}

// valuesMatch compares an extracted value with an expected one after
// normalization, so "42.0" matches 42 and string comparison ignores case
// and surrounding space.
func valuesMatch(got, want any) bool {
	return normalize(got) == normalize(want)
}

func normalize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = normalize(e)
		}
		sort.Strings(parts)
		return strings.Join(parts, "|")
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", t)))
	}
}
