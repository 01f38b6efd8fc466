package model

type AnswerSource string

const (
	AnswerCached    AnswerSource = "cached"
	AnswerGenerated AnswerSource = "generated"
	AnswerError     AnswerSource = "error"
)

// Answer is the tagged result of resolving one question. Source tells
// the front end whether the text came from the semantic cache, a fresh
// generation, or a failure (in which case Text is already user-safe).
type Answer struct {
	Source AnswerSource `json:"source"`
	Text   string       `json:"answer"`
	Score  float64      `json:"score,omitempty"`
}
