package ragpipe

// Source is one retrieved chunk backing an answer.
type Source struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	ChunkID string  `json:"chunk_id"`
}

// Answer is the result of a RAG query.
type Answer struct {
	Success     bool     `json:"success"`
	Response    string   `json:"response,omitempty"`
	Query       string   `json:"query"`
	Sources     []Source `json:"sources,omitempty"`
	NumSources  int      `json:"num_sources"`
	AvgScore    float64  `json:"avg_score"`
	TokensUsed  int      `json:"tokens_used,omitempty"`
	ContextUsed string   `json:"context_used,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Intent is the rule-based classification of a query.
type Intent struct {
	IsQuestion        bool `json:"is_question"`
	IsDefinition      bool `json:"is_definition"`
	IsExplanation     bool `json:"is_explanation"`
	IsComparison      bool `json:"is_comparison"`
	IsExample         bool `json:"is_example"`
	QueryLength       int  `json:"query_length"`
	HasTechnicalTerms bool `json:"has_technical_terms"`
}

// AgentStep is one thought/action/observation round of the ReAct agent.
type AgentStep struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	Observation string `json:"observation"`
}

// AgentResult is the outcome of a ReAct agent run.
type AgentResult struct {
	Success    bool        `json:"success"`
	Response   string      `json:"response"`
	Query      string      `json:"query"`
	Iterations int         `json:"iterations"`
	Steps      []AgentStep `json:"steps,omitempty"`
	TokensUsed int         `json:"tokens_used,omitempty"`
}

// FileResult is the per-file outcome of an ingestion run.
type FileResult struct {
	Success     bool              `json:"success"`
	Source      string            `json:"source,omitempty"`
	TotalChunks int               `json:"total_chunks,omitempty"`
	FilePath    string            `json:"file_path"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// IngestReport summarizes an ingestion run.
type IngestReport struct {
	TotalFiles int          `json:"total_files"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
}

// Settings echoes the pipeline configuration in stats responses.
type Settings struct {
	ChunkSize    int     `json:"chunk_size"`
	ChunkOverlap int     `json:"chunk_overlap"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float32 `json:"temperature"`
	VectorDim    int     `json:"vector_dimension"`
}

// VectorStoreStats describes the vector store contents.
type VectorStoreStats struct {
	TotalDocuments int    `json:"total_documents"`
	IndexName      string `json:"index_name,omitempty"`
}

// Stats is the pipeline stats response.
type Stats struct {
	VectorStore    VectorStoreStats `json:"vectorstore"`
	PipelineStatus string           `json:"pipeline_status"`
	Settings       Settings         `json:"settings"`
}

// RemoveResult reports how many chunks a source removal deleted.
type RemoveResult struct {
	Source  string `json:"source"`
	Deleted int    `json:"deleted"`
}

// HealthComponent is the health of one pipeline component.
type HealthComponent struct {
	Status         string `json:"status"`
	TotalDocuments *int   `json:"total_documents,omitempty"`
	EmbeddingDim   int    `json:"embedding_dimension,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HealthReport is the aggregated system health.
type HealthReport struct {
	Status     string                     `json:"overall_status"`
	Components map[string]HealthComponent `json:"components"`
}

// ServiceInfo is the root endpoint response.
type ServiceInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}
