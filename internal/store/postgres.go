package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/brightbooks/backend/internal/models"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// organization.
var ErrNotFound = errors.New("not found")

// Postgres implements the services.Store capability set over database/sql.
// Every query is scoped by org_id; cross-tenant reads and writes fail as
// not-found.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const invoiceColumns = `id, org_id, client_id, number, amount, status, issue_date, due_date, paid_at, processor_ref, template_id, metadata, created_at, updated_at`

func scanInvoice(row interface{ Scan(...any) error }) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.ClientID, &inv.Number, &inv.Amount,
		&inv.Status, &inv.IssueDate, &inv.DueDate, &inv.PaidAt, &inv.ProcessorRef,
		&inv.TemplateID, &inv.Metadata, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Postgres) ListInvoices(ctx context.Context, orgID string) ([]models.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE org_id = $1
		ORDER BY issue_date DESC, created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (s *Postgres) ListOverdueCandidates(ctx context.Context, orgID *string, now time.Time) ([]models.Invoice, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if orgID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+invoiceColumns+`
			FROM invoices
			WHERE status = 'sent' AND due_date < $1 AND org_id = $2
			ORDER BY due_date ASC`, now, *orgID)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+invoiceColumns+`
			FROM invoices
			WHERE status = 'sent' AND due_date < $1
			ORDER BY due_date ASC`, now)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (s *Postgres) GetInvoice(ctx context.Context, orgID, id string) (*models.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE org_id = $1 AND id = $2`, orgID, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return inv, err
}

func (s *Postgres) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, org_id, client_id, number, amount, status, issue_date, due_date, paid_at, processor_ref, template_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		inv.ID, inv.OrgID, inv.ClientID, inv.Number, inv.Amount, inv.Status,
		inv.IssueDate, inv.DueDate, inv.PaidAt, inv.ProcessorRef, inv.TemplateID,
		inv.Metadata, inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (s *Postgres) UpdateInvoiceStatus(ctx context.Context, orgID, id string, status models.InvoiceStatus, paidAt *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET status = $1, paid_at = COALESCE($2, paid_at), updated_at = $3
		WHERE org_id = $4 AND id = $5 AND status <> 'void'`,
		status, paidAt, time.Now(), orgID, id)
	if err != nil {
		return err
	}
	return oneRow(result)
}

// VoidInvoice marks an invoice void. Void is terminal; a voided invoice is
// never touched again by status updates.
func (s *Postgres) VoidInvoice(ctx context.Context, orgID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'void', updated_at = $1
		WHERE org_id = $2 AND id = $3 AND status <> 'void'`,
		time.Now(), orgID, id)
	if err != nil {
		return err
	}
	return oneRow(result)
}

// MarkInvoiceSent moves a draft invoice to sent. Explicit action only.
func (s *Postgres) MarkInvoiceSent(ctx context.Context, orgID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'sent', updated_at = $1
		WHERE org_id = $2 AND id = $3 AND status = 'draft'`,
		time.Now(), orgID, id)
	if err != nil {
		return err
	}
	return oneRow(result)
}

const paymentColumns = `id, org_id, invoice_id, amount, fee, method, paid_at, processor_ref, metadata, created_at, reviewed_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.OrgID, &p.InvoiceID, &p.Amount, &p.Fee, &p.Method,
		&p.PaidAt, &p.ProcessorRef, &p.Metadata, &p.CreatedAt, &p.ReviewedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) ListPayments(ctx context.Context, orgID string) ([]models.Payment, error) {
	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE org_id = $1
		ORDER BY paid_at DESC`, orgID)
}

func (s *Postgres) ListInvoicePayments(ctx context.Context, orgID, invoiceID string) ([]models.Payment, error) {
	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE org_id = $1 AND invoice_id = $2
		ORDER BY paid_at ASC`, orgID, invoiceID)
}

func (s *Postgres) ListPaymentsMissingFees(ctx context.Context, orgID string) ([]models.Payment, error) {
	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE org_id = $1 AND fee IS NULL AND processor_ref IS NOT NULL
		ORDER BY paid_at ASC`, orgID)
}

func (s *Postgres) queryPayments(ctx context.Context, query string, args ...any) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Postgres) CreatePayment(ctx context.Context, p *models.Payment) error {
	p.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, org_id, invoice_id, amount, fee, method, paid_at, processor_ref, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OrgID, p.InvoiceID, p.Amount, p.Fee, p.Method, p.PaidAt,
		p.ProcessorRef, p.Metadata, p.CreatedAt)
	return err
}

func (s *Postgres) SumInvoicePayments(ctx context.Context, orgID, invoiceID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE org_id = $1 AND invoice_id = $2`, orgID, invoiceID).Scan(&total)
	return total, err
}

// BackfillPaymentFee sets the processor fee on a payment exactly once. The
// fee is the only payment field ever mutated after creation.
func (s *Postgres) BackfillPaymentFee(ctx context.Context, orgID, paymentID string, fee int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET fee = $1
		WHERE org_id = $2 AND id = $3 AND fee IS NULL`,
		fee, orgID, paymentID)
	if err != nil {
		return err
	}
	return oneRow(result)
}

// PaymentExistsByProcessorRef reports whether a payment with this processor
// reference was already recorded, for webhook replay protection when Redis
// dedupe is unavailable.
func (s *Postgres) PaymentExistsByProcessorRef(ctx context.Context, orgID, ref string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM payments WHERE org_id = $1 AND processor_ref = $2)`,
		orgID, ref).Scan(&exists)
	return exists, err
}

const templateColumns = `id, org_id, client_id, name, amount, frequency, start_date, next_generation_date, occurrence_count, status, issue_as_draft, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*models.RecurringTemplate, error) {
	var t models.RecurringTemplate
	err := row.Scan(&t.ID, &t.OrgID, &t.ClientID, &t.Name, &t.Amount, &t.Frequency,
		&t.StartDate, &t.NextGenerationDate, &t.OccurrenceCount, &t.Status,
		&t.IssueAsDraft, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Postgres) ListTemplates(ctx context.Context, orgID string) ([]models.RecurringTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE org_id = $1
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func (s *Postgres) ListDueTemplates(ctx context.Context, orgID *string, now time.Time) ([]models.RecurringTemplate, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if orgID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+templateColumns+`
			FROM recurring_templates
			WHERE status = 'active' AND next_generation_date <= $1 AND org_id = $2
			ORDER BY next_generation_date ASC`, now, *orgID)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+templateColumns+`
			FROM recurring_templates
			WHERE status = 'active' AND next_generation_date <= $1
			ORDER BY next_generation_date ASC`, now)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func collectTemplates(rows *sql.Rows) ([]models.RecurringTemplate, error) {
	var out []models.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Postgres) GetTemplate(ctx context.Context, orgID, id string) (*models.RecurringTemplate, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE org_id = $1 AND id = $2`, orgID, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *Postgres) CreateTemplate(ctx context.Context, tpl *models.RecurringTemplate) error {
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_templates (id, org_id, client_id, name, amount, frequency, start_date, next_generation_date, occurrence_count, status, issue_as_draft, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tpl.ID, tpl.OrgID, tpl.ClientID, tpl.Name, tpl.Amount, tpl.Frequency,
		tpl.StartDate, tpl.NextGenerationDate, tpl.OccurrenceCount, tpl.Status,
		tpl.IssueAsDraft, tpl.CreatedAt, tpl.UpdatedAt)
	return err
}

func (s *Postgres) UpdateTemplateStatus(ctx context.Context, orgID, id, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE recurring_templates
		SET status = $1, updated_at = $2
		WHERE org_id = $3 AND id = $4 AND status <> 'ended'`,
		status, time.Now(), orgID, id)
	if err != nil {
		return err
	}
	return oneRow(result)
}

// AdvanceTemplate is the single conditional update guarding the schedule
// race: next_generation_date only moves forward, and only while it still
// holds the value the caller loaded. Zero rows affected means a concurrent
// run advanced it first.
func (s *Postgres) AdvanceTemplate(ctx context.Context, orgID, id string, expected, next time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE recurring_templates
		SET next_generation_date = $1, occurrence_count = occurrence_count + 1, updated_at = $2
		WHERE org_id = $3 AND id = $4 AND next_generation_date = $5 AND status = 'active'`,
		next, time.Now(), orgID, id, expected)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *Postgres) ListClients(ctx context.Context, orgID string) ([]models.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, email, created_at, updated_at
		FROM clients
		WHERE org_id = $1
		ORDER BY name ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) GetClient(ctx context.Context, orgID, id string) (*models.Client, error) {
	var c models.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, email, created_at, updated_at
		FROM clients
		WHERE org_id = $1 AND id = $2`, orgID, id).
		Scan(&c.ID, &c.OrgID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Postgres) CreateClient(ctx context.Context, c *models.Client) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, org_id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.OrgID, c.Name, c.Email, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *Postgres) AppendRunLog(ctx context.Context, rl *models.RunLog) error {
	errsJSON, err := json.Marshal(rl.Errors)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_logs (org_id, started_at, finished_at, processed, created, reconciled, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rl.OrgID, rl.StartedAt, rl.FinishedAt, rl.Processed, rl.Created, rl.Reconciled, errsJSON)
	return err
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, email, password_hash, last_login, created_at, updated_at
		FROM users
		WHERE email = $1`, email).
		Scan(&u.ID, &u.OrgID, &u.Email, &u.PasswordHash, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) TouchUserLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2`, at, userID)
	return err
}

func (s *Postgres) CreatePortalToken(ctx context.Context, t *models.PortalToken) error {
	t.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portal_tokens (id, org_id, client_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.OrgID, t.ClientID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	return err
}

func (s *Postgres) GetPortalToken(ctx context.Context, id string) (*models.PortalToken, error) {
	var t models.PortalToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, client_id, token_hash, expires_at, created_at
		FROM portal_tokens
		WHERE id = $1`, id).
		Scan(&t.ID, &t.OrgID, &t.ClientID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Postgres) CreatePortalUpload(ctx context.Context, u *models.PortalUpload) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portal_uploads (id, org_id, client_id, filename, size_bytes, content_type, stored_path, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.OrgID, u.ClientID, u.Filename, u.SizeBytes, u.ContentType, u.StoredPath, u.UploadedAt)
	return err
}

func (s *Postgres) ListPortalUploads(ctx context.Context, orgID string) ([]models.PortalUpload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, client_id, filename, size_bytes, content_type, stored_path, uploaded_at
		FROM portal_uploads
		WHERE org_id = $1
		ORDER BY uploaded_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PortalUpload
	for rows.Next() {
		var u models.PortalUpload
		if err := rows.Scan(&u.ID, &u.OrgID, &u.ClientID, &u.Filename, &u.SizeBytes,
			&u.ContentType, &u.StoredPath, &u.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func oneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
