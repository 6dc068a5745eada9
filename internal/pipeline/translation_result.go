package pipeline

import "time"

// TranslationStatus is the terminal state of a translation run.
type TranslationStatus string

const (
	TranslationStatusSuccess TranslationStatus = "Success"
	TranslationStatusSkipped TranslationStatus = "Skipped"
)

// TranslationResult contains structured outputs from RunTranslation.
type TranslationResult struct {
	Status      TranslationStatus
	OutputPath  string
	InputBytes  int
	OutputBytes int
	Elapsed     time.Duration
}
