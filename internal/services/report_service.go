package services

import (
	"fmt"
	"net/http"
	"time"

	"github.com/brightbooks/backend/internal/middleware"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportService exposes the organization rollup and an invoice workbook
// export. Nothing here is cached; every report recomputes from current rows.
type ReportService struct {
	store Store
	log   *zap.Logger
}

func NewReportService(store Store, log *zap.Logger) *ReportService {
	return &ReportService{store: store, log: log}
}

// Summary returns the organization's financial rollup.
// @Summary Financial summary per client and organization
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Rollup
// @Router /reports/summary [get]
func (s *ReportService) Summary(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	invoices, err := s.store.ListInvoices(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch invoices", http.StatusInternalServerError, nil)
		return
	}
	payments, err := s.store.ListPayments(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch payments", http.StatusInternalServerError, nil)
		return
	}

	rollup, err := Aggregate(invoices, payments)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	SendJSON(w, http.StatusOK, rollup)
}

// ExportInvoices streams the organization's invoices as an xlsx workbook.
// @Summary Export invoices as a spreadsheet
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {string} binary "xlsx workbook"
// @Router /reports/invoices.xlsx [get]
func (s *ReportService) ExportInvoices(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	invoices, err := s.store.ListInvoices(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch invoices", http.StatusInternalServerError, nil)
		return
	}
	payments, err := s.store.ListPayments(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch payments", http.StatusInternalServerError, nil)
		return
	}

	rollup, err := Aggregate(invoices, payments)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoices"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"Number", "Client", "Status", "Issue Date", "Due Date", "Amount", "Paid", "Balance Due"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, inv := range invoices {
		paid := rollup.PerInvoice[inv.ID]
		values := []any{
			inv.Number,
			inv.ClientID,
			string(inv.Status),
			inv.IssueDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			minorToDecimal(inv.Amount),
			minorToDecimal(paid),
			minorToDecimal(floorZero(inv.Amount - paid)),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := f.Write(w); err != nil {
		s.log.Error("workbook write failed", zap.String("org_id", orgID), zap.Error(err))
	}
}

// minorToDecimal renders minor units as a major-unit string for the export.
func minorToDecimal(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
