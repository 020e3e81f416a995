package types

import "time"

// Document represents one source document to run through extraction
type Document struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// FieldType represents the type of a form field
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
)

// Field represents a single field in a form schema
type Field struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Question string    `json:"question"`
	Required bool      `json:"required,omitempty"`
}

// Form represents a complete extraction form schema
type Form struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// Evidence represents a quote from a document supporting an extracted value
type Evidence struct {
	Text string `json:"text"`
}

// FieldValue represents an extracted field value
type FieldValue struct {
	ID         string     `json:"id"`
	Value      any        `json:"value"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence,omitempty"`
}

// Entry represents a single distinct record extracted from a document.
// A document may yield several entries, e.g. one invoice line per entry.
type Entry struct {
	Fields []FieldValue `json:"fields"`
}

// Record holds all extracted entries for one document
type Record struct {
	DocumentID  string    `json:"document_id"`
	Source      string    `json:"source,omitempty"`
	Entries     []Entry   `json:"entries"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// FormRef holds reference to the form used in a session
type FormRef struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Hash  string `json:"hash"`
}

// RunLog records metadata about a single pipeline run
type RunLog struct {
	InvocationID string       `json:"invocation_id"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  time.Time    `json:"completed_at,omitzero"`
	Status       string       `json:"status"` // running, completed, interrupted
	Succeeded    int          `json:"succeeded"`
	Failed       int          `json:"failed"`
	Failures     []FailureLog `json:"failures,omitempty"`
}

// FailureLog records one failed document in a run log
type FailureLog struct {
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"`
	Transient  bool   `json:"transient,omitempty"`
	Error      string `json:"error"`
}

// Manifest tracks the durable state of an extraction session. Records holds
// every document that has extracted successfully at any point, keyed by
// document ID; it grows across runs and never drops an entry mid-run.
type Manifest struct {
	Version   int                `json:"version"`
	Form      FormRef            `json:"form"`
	Corpus    string             `json:"corpus,omitempty"`
	Records   map[string]*Record `json:"records"`
	Runs      []RunLog           `json:"runs"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
