package domain

// OCRParams selects the engine configuration for one recognition call.
// A zero value means "engine default, no explicit configuration".
type OCRParams struct {
	EngineMode  int
	PageSegMode int
}

func (p OCRParams) IsDefault() bool {
	return p.EngineMode == 0 && p.PageSegMode == 0
}

// OCRStrategy is one entry of the ordered fallback list.
type OCRStrategy struct {
	ID          string
	Description string
	Params      OCRParams
}

// OcrAttempt records one strategy invocation for diagnostics.
type OcrAttempt struct {
	StrategyID string `json:"strategy_id"`
	Preview    string `json:"preview"`
	Length     int    `json:"length"`
	Accepted   bool   `json:"accepted"`
	Err        string `json:"error,omitempty"`
}

// ExtractionOutcome is the assembled text plus the page-level diagnostics that
// produced it.
type ExtractionOutcome struct {
	Text           string
	PagesProcessed int
	PagesWithText  int
}
