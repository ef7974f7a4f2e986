package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brightbooks/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAdvanceTemplate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	ctx := context.Background()

	expected := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("advances when the expected date still holds", func(t *testing.T) {
		mock.ExpectExec(`UPDATE recurring_templates\s+SET next_generation_date = \$1, occurrence_count = occurrence_count \+ 1, updated_at = \$2\s+WHERE org_id = \$3 AND id = \$4 AND next_generation_date = \$5 AND status = 'active'`).
			WithArgs(next, sqlmock.AnyArg(), "org1", "t1", expected).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := s.AdvanceTemplate(ctx, "org1", "t1", expected, next)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports the race when zero rows match", func(t *testing.T) {
		mock.ExpectExec(`UPDATE recurring_templates`).
			WithArgs(next, sqlmock.AnyArg(), "org1", "t1", expected).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := s.AdvanceTemplate(ctx, "org1", "t1", expected, next)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateInvoiceStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	ctx := context.Background()

	t.Run("updates a live invoice", func(t *testing.T) {
		mock.ExpectExec(`UPDATE invoices\s+SET status = \$1, paid_at = COALESCE\(\$2, paid_at\), updated_at = \$3\s+WHERE org_id = \$4 AND id = \$5 AND status <> 'void'`).
			WithArgs(models.InvoiceStatusPaid, sqlmock.AnyArg(), sqlmock.AnyArg(), "org1", "i1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		now := time.Now()
		err := s.UpdateInvoiceStatus(ctx, "org1", "i1", models.InvoiceStatusPaid, &now)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("void invoices are untouchable", func(t *testing.T) {
		mock.ExpectExec(`UPDATE invoices`).
			WithArgs(models.InvoiceStatusOverdue, nil, sqlmock.AnyArg(), "org1", "i-void").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateInvoiceStatus(ctx, "org1", "i-void", models.InvoiceStatusOverdue, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarkInvoiceSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	ctx := context.Background()

	t.Run("moves a draft to sent", func(t *testing.T) {
		mock.ExpectExec(`UPDATE invoices\s+SET status = 'sent', updated_at = \$1\s+WHERE org_id = \$2 AND id = \$3 AND status = 'draft'`).
			WithArgs(sqlmock.AnyArg(), "org1", "i1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.MarkInvoiceSent(ctx, "org1", "i1"))
	})

	t.Run("non-draft invoice cannot be re-sent", func(t *testing.T) {
		mock.ExpectExec(`UPDATE invoices`).
			WithArgs(sqlmock.AnyArg(), "org1", "i1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.MarkInvoiceSent(ctx, "org1", "i1"), ErrNotFound)
	})
}

func TestBackfillPaymentFee(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	ctx := context.Background()

	t.Run("fills an unset fee", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments\s+SET fee = \$1\s+WHERE org_id = \$2 AND id = \$3 AND fee IS NULL`).
			WithArgs(int64(250), "org1", "p1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.BackfillPaymentFee(ctx, "org1", "p1", 250))
	})

	t.Run("fee is written at most once", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(int64(300), "org1", "p1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.BackfillPaymentFee(ctx, "org1", "p1", 300), ErrNotFound)
	})
}

func TestGetInvoice(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	ctx := context.Background()

	cols := []string{"id", "org_id", "client_id", "number", "amount", "status",
		"issue_date", "due_date", "paid_at", "processor_ref", "template_id",
		"metadata", "created_at", "updated_at"}

	t.Run("scans a full row", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM invoices\s+WHERE org_id = \$1 AND id = \$2`).
			WithArgs("org1", "i1").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("i1", "org1", "c1", "INV-AB12CD34", int64(10000), "sent",
					now, now.AddDate(0, 0, 30), nil, nil, nil,
					[]byte(`{"source":"recurring"}`), now, now))

		inv, err := s.GetInvoice(ctx, "org1", "i1")
		assert.NoError(t, err)
		assert.Equal(t, "INV-AB12CD34", inv.Number)
		assert.Equal(t, int64(10000), inv.Amount)
		assert.Equal(t, "recurring", inv.Metadata["source"])
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM invoices`).
			WithArgs("org1", "nope").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := s.GetInvoice(ctx, "org1", "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListOverdueCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	cols := []string{"id", "org_id", "client_id", "number", "amount", "status",
		"issue_date", "due_date", "paid_at", "processor_ref", "template_id",
		"metadata", "created_at", "updated_at"}

	t.Run("unscoped sweep selects sent invoices past due", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM invoices\s+WHERE status = 'sent' AND due_date < \$1\s+ORDER BY due_date ASC`).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("i1", "org1", "c1", "INV-AB12CD34", int64(10000), "sent",
					now.AddDate(0, -1, 0), now.AddDate(0, 0, -3), nil, nil, nil,
					[]byte(`{}`), now, now))

		invoices, err := s.ListOverdueCandidates(ctx, nil, now)
		assert.NoError(t, err)
		assert.Len(t, invoices, 1)
		assert.Equal(t, models.InvoiceStatusSent, invoices[0].Status)
	})

	t.Run("org scoped sweep", func(t *testing.T) {
		org := "org1"
		mock.ExpectQuery(`SELECT .+ FROM invoices\s+WHERE status = 'sent' AND due_date < \$1 AND org_id = \$2`).
			WithArgs(now, org).
			WillReturnRows(sqlmock.NewRows(cols))

		invoices, err := s.ListOverdueCandidates(ctx, &org, now)
		assert.NoError(t, err)
		assert.Empty(t, invoices)
	})
}

func TestListDueTemplates(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	cols := []string{"id", "org_id", "client_id", "name", "amount", "frequency",
		"start_date", "next_generation_date", "occurrence_count", "status",
		"issue_as_draft", "created_at", "updated_at"}

	t.Run("unscoped sweep", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM recurring_templates\s+WHERE status = 'active' AND next_generation_date <= \$1\s+ORDER BY next_generation_date ASC`).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("t1", "org1", "c1", "Retainer", int64(50000), "monthly",
					now.AddDate(0, -2, 0), now.AddDate(0, 0, -1), 2, "active", false, now, now))

		templates, err := s.ListDueTemplates(ctx, nil, now)
		assert.NoError(t, err)
		assert.Len(t, templates, 1)
		assert.Equal(t, models.FrequencyMonthly, templates[0].Frequency)
	})

	t.Run("org scoped sweep", func(t *testing.T) {
		org := "org1"
		mock.ExpectQuery(`SELECT .+ FROM recurring_templates\s+WHERE status = 'active' AND next_generation_date <= \$1 AND org_id = \$2`).
			WithArgs(now, org).
			WillReturnRows(sqlmock.NewRows(cols))

		templates, err := s.ListDueTemplates(ctx, &org, now)
		assert.NoError(t, err)
		assert.Empty(t, templates)
	})
}

func TestSumInvoicePayments(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)\s+FROM payments\s+WHERE org_id = \$1 AND invoice_id = \$2`).
		WithArgs("org1", "i1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(4000)))

	total, err := s.SumInvoicePayments(context.Background(), "org1", "i1")
	assert.NoError(t, err)
	assert.Equal(t, int64(4000), total)
}

func TestPaymentExistsByProcessorRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("org1", "ch_123").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.PaymentExistsByProcessorRef(context.Background(), "org1", "ch_123")
	assert.NoError(t, err)
	assert.True(t, exists)
}
