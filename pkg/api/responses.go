package api

// uploadResponse reports the outcome of a knowledge or corpus upload.
type uploadResponse struct {
	Filename      string   `json:"filename"`
	Status        string   `json:"status"`
	Message       string   `json:"message"`
	RowsProcessed int      `json:"rows_processed"`
	RowsUpserted  int      `json:"rows_upserted"`
	Errors        []string `json:"errors,omitempty"`
}

// workflowStartedResponse acknowledges an accepted workflow start.
type workflowStartedResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	WorkflowID string `json:"workflow_id"`
}

// healthResponse is the health endpoint payload.
type healthResponse struct {
	DBOk                 bool `json:"db_ok"`
	EngineOk             bool `json:"engine_ok"`
	EmbeddingModelLoaded bool `json:"embedding_model_loaded"`
	RetrievalOnlyMode    bool `json:"retrieval_only_mode"`
}
