package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	IdeaNumber  string `json:"idea_number"`
	Subject     string `json:"subject"`
	Snippet     string `json:"snippet"`
	Status      string `json:"status"`
	CurrentStep string `json:"current_step"`
}

// Query describes a search request.
type Query struct {
	Text        string
	SubmitterID string // empty = all submitters
	Steps       []string
	Limit       int
	Offset      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push ideas into a search index.
type Indexer interface {
	IndexIdea(idea IdeaRecord) error
	DeleteIdea(id string) error
}

// IdeaRecord is the data we index for an idea.
type IdeaRecord struct {
	ID          string `json:"id"`
	IdeaNumber  string `json:"idea_number"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CurrentStep string `json:"current_step"`
	SubmitterID string `json:"submitter_id"`
}
