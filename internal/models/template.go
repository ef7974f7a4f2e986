package models

import (
	"fmt"
	"time"
)

// Frequency is the cadence of a recurring invoice template.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

// ParseFrequency validates the wire representation of a frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return f, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

// Template statuses.
const (
	TemplateStatusActive = "active"
	TemplateStatusPaused = "paused"
	TemplateStatusEnded  = "ended"
)

// RecurringTemplate is a standing instruction to generate invoices on a
// cadence. NextGenerationDate is monotonic: it only ever advances, and only
// via the schedule advancer's conditional update.
type RecurringTemplate struct {
	ID                 string    `json:"id" db:"id"`
	OrgID              string    `json:"org_id" db:"org_id"`
	ClientID           string    `json:"client_id" db:"client_id"`
	Name               string    `json:"name" db:"name"`
	Amount             int64     `json:"amount" db:"amount"`
	Frequency          Frequency `json:"frequency" db:"frequency"`
	StartDate          time.Time `json:"start_date" db:"start_date"`
	NextGenerationDate time.Time `json:"next_generation_date" db:"next_generation_date"`
	OccurrenceCount    int       `json:"occurrence_count" db:"occurrence_count"`
	Status             string    `json:"status" db:"status"`
	IssueAsDraft       bool      `json:"issue_as_draft" db:"issue_as_draft"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// TemplateCreateRequest is the payload for creating a recurring template.
type TemplateCreateRequest struct {
	ClientID     string `json:"client_id" validate:"required,uuid4"`
	Name         string `json:"name" validate:"required,max=120"`
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	Frequency    string `json:"frequency" validate:"required,oneof=daily weekly monthly quarterly annually"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	IssueAsDraft bool   `json:"issue_as_draft"`
}
