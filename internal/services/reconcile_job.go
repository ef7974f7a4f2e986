package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brightbooks/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileJob is the composition root for the scheduled sweep: it loads due
// recurring templates, advances each one, keeps the generated invoices'
// statuses consistent, and records a run log. One template's failure never
// aborts the rest of the run.
type ReconcileJob struct {
	store    Store
	schedule *ScheduleService
	log      *zap.Logger
	now      func() time.Time
}

func NewReconcileJob(store Store, schedule *ScheduleService, log *zap.Logger) *ReconcileJob {
	return &ReconcileJob{
		store:    store,
		schedule: schedule,
		log:      log,
		now:      time.Now,
	}
}

// Run processes every active template whose next_generation_date is due,
// optionally scoped to one organization for manual invocation. Templates are
// processed sequentially in due-date order. After materialization it sweeps
// sent invoices past their due date so they go overdue without waiting for a
// payment event. The summary always reports counts plus accumulated errors;
// Run itself never fails part-way.
func (j *ReconcileJob) Run(ctx context.Context, orgID *string) models.RunSummary {
	started := j.now()
	summary := models.RunSummary{Errors: []string{}}

	templates, err := j.store.ListDueTemplates(ctx, orgID, started)
	if err != nil {
		j.log.Error("reconcile run failed to load due templates", zap.Error(err))
		summary.Errors = append(summary.Errors, fmt.Sprintf("load due templates: %v", err))
		j.appendRunLog(ctx, orgID, started, summary)
		return summary
	}

	for i := range templates {
		tpl := templates[i]
		summary.Processed++

		inv, err := j.schedule.Advance(ctx, &tpl, started)
		if errors.Is(err, ErrRaceLost) {
			// A concurrent run already produced this period's invoice.
			j.log.Info("template already advanced by concurrent run",
				zap.String("template_id", tpl.ID))
			continue
		}
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("template %s: %v", tpl.ID, err))
			continue
		}
		summary.Created++

		if err := j.ReconcileInvoice(ctx, inv); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("template %s: reconcile invoice %s: %v", tpl.ID, inv.ID, err))
		}
	}

	j.sweepOverdue(ctx, orgID, started, &summary)

	j.appendRunLog(ctx, orgID, started, summary)

	j.log.Info("reconcile run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("created", summary.Created),
		zap.Int("reconciled", summary.Reconciled),
		zap.Int("errors", len(summary.Errors)))
	return summary
}

// sweepOverdue re-reconciles sent invoices whose due date has passed. A
// fresh invoice materialized this run has no payments, so the only status
// movement here is sent to overdue.
func (j *ReconcileJob) sweepOverdue(ctx context.Context, orgID *string, now time.Time, summary *models.RunSummary) {
	candidates, err := j.store.ListOverdueCandidates(ctx, orgID, now)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("load overdue candidates: %v", err))
		return
	}

	for i := range candidates {
		inv := &candidates[i]
		prev := inv.Status
		if err := j.ReconcileInvoice(ctx, inv); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("reconcile invoice %s: %v", inv.ID, err))
			continue
		}
		if inv.Status != prev {
			summary.Reconciled++
		}
	}
}

// ReconcileInvoice recomputes one invoice's status from its recorded
// payments and persists it when it changed. Safe to call redundantly.
func (j *ReconcileJob) ReconcileInvoice(ctx context.Context, inv *models.Invoice) error {
	return ReconcileAndPersist(ctx, j.store, inv, j.now())
}

func (j *ReconcileJob) appendRunLog(ctx context.Context, orgID *string, started time.Time, summary models.RunSummary) {
	rl := &models.RunLog{
		OrgID:      orgID,
		StartedAt:  started,
		FinishedAt: j.now(),
		Processed:  summary.Processed,
		Created:    summary.Created,
		Errors:     summary.Errors,
	}
	if err := j.store.AppendRunLog(ctx, rl); err != nil {
		j.log.Warn("failed to append run log", zap.Error(err))
	}
}

// HandleRun is the scheduler-facing trigger entry point.
// @Summary Run the reconciliation job
// @Description Materialize due recurring invoices and reconcile their statuses
// @Tags reconcile
// @Produce json
// @Security SchedulerSecret
// @Param org_id query string false "Restrict the run to one organization"
// @Success 200 {object} models.RunSummary
// @Failure 401 {object} services.ErrorResponse
// @Router /reconcile [post]
func (j *ReconcileJob) HandleRun(w http.ResponseWriter, r *http.Request) {
	var orgID *string
	if v := r.URL.Query().Get("org_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			SendErrorResponse(w, "Invalid org_id", http.StatusBadRequest, nil)
			return
		}
		orgID = &v
	}

	summary := j.Run(r.Context(), orgID)

	// Partial failure still reports 200 with the error list.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
