package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightbooks/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultNetTermsDays is how long after the issue date a generated invoice
// falls due.
const defaultNetTermsDays = 30

// NextDate computes the generation date that follows anchor for the given
// frequency. The result is always strictly after anchor.
//
// Month-based frequencies keep the anchor's day-of-month, clamped to the
// target month's length. Clamping sticks: advancing from Jan 31 gives
// Feb 28, and advancing again gives Mar 28, not Mar 31, because the next
// step is computed from the clamped date.
func NextDate(freq models.Frequency, anchor time.Time) (time.Time, error) {
	switch freq {
	case models.FrequencyDaily:
		return anchor.AddDate(0, 0, 1), nil
	case models.FrequencyWeekly:
		return anchor.AddDate(0, 0, 7), nil
	case models.FrequencyMonthly:
		return addMonthsClamped(anchor, 1), nil
	case models.FrequencyQuarterly:
		return addMonthsClamped(anchor, 3), nil
	case models.FrequencyAnnually:
		return addMonthsClamped(anchor, 12), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", freq)
	}
}

// addMonthsClamped adds months to t keeping the day-of-month, clamped to the
// target month's length. time.AddDate is not used here because it normalizes
// overflow (Jan 31 + 1 month = Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	// Day 0 of the month after the target is the target's last day.
	last := time.Date(y, m+time.Month(months)+1, 0, 0, 0, 0, 0, t.Location())
	if d > last.Day() {
		d = last.Day()
	}
	return time.Date(last.Year(), last.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// ScheduleService advances recurring templates and materializes the
// corresponding invoices.
type ScheduleService struct {
	store Store
	log   *zap.Logger
}

func NewScheduleService(store Store, log *zap.Logger) *ScheduleService {
	return &ScheduleService{store: store, log: log}
}

// Advance commits the template's next generation date via a single
// conditional update, then materializes the invoice for the period that just
// became due. Safe to invoke concurrently for the same due date: the loser
// of the conditional update gets ErrRaceLost and no invoice is created.
//
// If materialization fails after the schedule has advanced, the failure is
// logged with the template id and intended period so the invoice can be
// created manually; the schedule is never rewound to retry the same period.
func (s *ScheduleService) Advance(ctx context.Context, tpl *models.RecurringTemplate, now time.Time) (*models.Invoice, error) {
	if tpl.NextGenerationDate.After(now) {
		return nil, fmt.Errorf("template %s not due until %s", tpl.ID, tpl.NextGenerationDate.Format("2006-01-02"))
	}

	period := tpl.NextGenerationDate
	next, err := NextDate(tpl.Frequency, period)
	if err != nil {
		return nil, err
	}

	advanced, err := s.store.AdvanceTemplate(ctx, tpl.OrgID, tpl.ID, period, next)
	if err != nil {
		return nil, fmt.Errorf("advance template %s: %w", tpl.ID, err)
	}
	if !advanced {
		return nil, ErrRaceLost
	}
	tpl.NextGenerationDate = next
	tpl.OccurrenceCount++

	status := models.InvoiceStatusSent
	if tpl.IssueAsDraft {
		status = models.InvoiceStatusDraft
	}

	inv := &models.Invoice{
		ID:         uuid.NewString(),
		OrgID:      tpl.OrgID,
		ClientID:   tpl.ClientID,
		Number:     NewInvoiceNumber(),
		Amount:     tpl.Amount,
		Status:     status,
		IssueDate:  now,
		DueDate:    now.AddDate(0, 0, defaultNetTermsDays),
		TemplateID: &tpl.ID,
		Metadata: models.Metadata{
			"source": "recurring",
			"period": period.Format("2006-01-02"),
		},
	}

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		s.log.Error("invoice materialization failed after schedule advance; manual catch-up required",
			zap.String("template_id", tpl.ID),
			zap.String("org_id", tpl.OrgID),
			zap.String("period", period.Format("2006-01-02")),
			zap.Error(err))
		return nil, fmt.Errorf("materialize invoice for template %s period %s: %w",
			tpl.ID, period.Format("2006-01-02"), err)
	}

	return inv, nil
}

// NewInvoiceNumber returns a short human-readable invoice number.
func NewInvoiceNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "INV-" + strings.ToUpper(id[:8])
}
