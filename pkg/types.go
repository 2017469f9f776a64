package pkg

import "time"

// Question is one closed-choice item of the screening questionnaire.  Topic is
// a free-text category label and is not validated against any vocabulary.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Topic   string   `json:"topic"`
}

// Phase describes where a session is in the questionnaire flow.  It is always
// derived from the session fields, never stored.
type Phase string

const (
	PhaseAsking           Phase = "asking"
	PhaseAwaitingAnalysis Phase = "awaiting_analysis"
	PhaseShowingResult    Phase = "showing_result"
)

// Session holds the state of one respondent's run through the questionnaire.
// Answers is keyed by the question prompt text.
type Session struct {
	ID          string            `json:"id"`
	Current     int               `json:"current"`
	Answers     map[string]string `json:"answers"`
	Complete    bool              `json:"complete"`
	Analysis    string            `json:"analysis,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// SessionPreview is returned in the clinician listing of completed screenings.
type SessionPreview struct {
	SessionID   string    `json:"session_id"`
	Excerpt     string    `json:"excerpt"`
	CompletedAt time.Time `json:"completed_at"`
}

// AnswerRequest carries a choice submitted for the current question.  An empty
// choice selects the question's first option.
type AnswerRequest struct {
	Choice string `json:"choice"`
}

// SessionResponse is the JSON view of a session used by the API endpoints.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Phase     Phase     `json:"phase"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Question  *Question `json:"question,omitempty"`
	Answered  int       `json:"answered"`
	Analysis  string    `json:"analysis,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Document is one knowledge-base text file loaded for indexing.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a piece of a Document stored in the vector index.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
}

// SearchResult is a chunk matched by a similarity query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}
