package labs

import "time"

type BatchSummary struct {
	RunID           string           `json:"run_id"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	TotalRequested  int              `json:"total_requested"`
	SuccessfulCount int              `json:"successful"`
	FailedCount     int              `json:"failed"`
	CatalogSize     int              `json:"catalog_size"`
	Canceled        bool             `json:"canceled,omitempty"`
	PerConcept      []ConceptOutcome `json:"labs"`
}

func OutcomeOf(r GenerationResult) ConceptOutcome {
	return ConceptOutcome{
		Concept:              r.Concept.Name,
		Topic:                r.SourceTopic,
		Title:                r.Artifact.Title,
		Difficulty:           r.Artifact.Difficulty,
		EstimatedTimeMinutes: r.Artifact.EstimatedTimeMinutes,
		SectionCount:         len(r.Artifact.Sections),
		Success:              r.Success,
		ErrorKind:            r.ErrorKind,
		Error:                r.Error,
	}
}

// Summarize builds the summary from results already in catalog order. The
// success/failure partition holds by construction: every result lands in exactly one bucket.
func Summarize(runID string, results []GenerationResult, catalogSize int) BatchSummary {
	s := BatchSummary{
		RunID:          runID,
		TotalRequested: len(results),
		CatalogSize:    catalogSize,
		PerConcept:     make([]ConceptOutcome, 0, len(results)),
	}
	for _, r := range results {
		if r.Success {
			s.SuccessfulCount++
		} else {
			s.FailedCount++
		}
		s.PerConcept = append(s.PerConcept, OutcomeOf(r))
	}
	return s
}
