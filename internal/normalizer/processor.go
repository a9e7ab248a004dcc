// Package normalizer validates parsed meetings and prepares them for storage.
package normalizer

import (
	"fmt"

	"councilreader/internal/logger"
	"councilreader/internal/models"
)

// Processor handles meeting validation and normalization.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	log         *logger.Logger
}

// NewProcessor creates a new processor instance.
func NewProcessor(log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}

	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
		log:         log,
	}
}

// Process validates a parsed meeting and returns its normalized form.
// Recoverable problems are logged and repaired.
func (p *Processor) Process(m *models.Meeting) (*models.Meeting, error) {
	// 1. Reject what cannot be stored
	if err := p.validator.Validate(m); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// 2. Report what will be repaired
	for _, issue := range p.validator.Inspect(m) {
		p.log.Warn("repairing parsed meeting", "meeting_id", m.MeetingID, "issue", issue)
	}

	// 3. Normalize
	return p.transformer.Transform(m), nil
}
