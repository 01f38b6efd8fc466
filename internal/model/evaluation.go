package model

// EvaluationRecord is one line of the RAGAS evaluation log.
type EvaluationRecord struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	Answer   string `json:"answer"`
}
