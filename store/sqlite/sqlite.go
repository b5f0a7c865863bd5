/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (EntitlementStore, RequestStore,
  PolicyStore, EmployeeDirectory, AuditLog, HolidayCalendar) using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

OPTIMISTIC CONCURRENCY:
  The entitlements table carries a version column. PutEntitlement is
  compare-and-set: a new row is an INSERT guarded by the primary key, an
  update is UPDATE ... WHERE version = ?; zero affected rows means another
  writer got there first and the caller gets ErrConcurrentUpdateConflict.

APPEND-ONLY ENFORCEMENT:
  The audit_log table is append-only:
  - No UPDATE statements
  - No DELETE statements

KEY TABLES:
  entitlements: Versioned balance rows, one per employee/type/year
  requests:     Leave requests with their decision history (JSON)
  leave_types:  Leave type definitions
  policies:     Versioned policy rulesets (config as JSON)
  audit_log:    Immutable record of every balance mutation
  employees:    Engine's view of employee master data
  holidays:     Non-working days for duration calculation

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Entitlements (versioned balance rows)
	CREATE TABLE IF NOT EXISTS entitlements (
		employee_id TEXT NOT NULL,
		leave_type_code TEXT NOT NULL,
		period_year INTEGER NOT NULL,
		entitled TEXT NOT NULL,
		carried_forward TEXT NOT NULL,
		carried_out TEXT NOT NULL,
		used TEXT NOT NULL,
		held TEXT NOT NULL,
		manual_adjustment TEXT NOT NULL,
		carry_expires_on TEXT,
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type_code, period_year)
	);

	CREATE INDEX IF NOT EXISTS idx_entitlements_employee
		ON entitlements(employee_id);

	-- Leave Requests (with decision history as JSON)
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_code TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		duration_days TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		irregular_pattern BOOLEAN DEFAULT FALSE,
		attachment_ref TEXT,
		paid_days TEXT NOT NULL,
		unpaid_days TEXT NOT NULL,
		decisions_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);

	-- Leave Types
	CREATE TABLE IF NOT EXISTS leave_types (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		paid BOOLEAN DEFAULT TRUE,
		deductible BOOLEAN DEFAULT TRUE,
		requires_attachment BOOLEAN DEFAULT FALSE,
		attachment_type TEXT,
		min_tenure_months INTEGER DEFAULT 0,
		max_duration_days INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Policies (versioned by effective date; ruleset as JSON)
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		leave_type_code TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		created_seq INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_type_effective
		ON policies(leave_type_code, effective_date);

	-- Audit Log (append-only; no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_code TEXT NOT NULL,
		period_year INTEGER NOT NULL,
		action TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT,
		actor_id TEXT NOT NULL,
		request_id TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee
		ON audit_log(employee_id, leave_type_code);
	CREATE INDEX IF NOT EXISTS idx_audit_at
		ON audit_log(at);

	-- Employees (engine's view of master data)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		contract_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTITLEMENT STORE (leave.EntitlementStore interface)
// =============================================================================

// GetEntitlement returns the balance row, or nil when it doesn't exist.
func (s *Store) GetEntitlement(ctx context.Context, emp leave.EmployeeID, code leave.LeaveTypeCode, year int) (*leave.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, leave_type_code, period_year, entitled, carried_forward,
		       carried_out, used, held, manual_adjustment, carry_expires_on, version, updated_at
		FROM entitlements
		WHERE employee_id = ? AND leave_type_code = ? AND period_year = ?
	`

	row, err := scanEntitlement(s.db.QueryRowContext(ctx, query, emp, code, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// PutEntitlement writes the row via compare-and-set on version.
func (s *Store) PutEntitlement(ctx context.Context, row leave.Entitlement, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresOn sql.NullString
	if !row.CarryForwardExpiresOn.IsZero() {
		expiresOn = sql.NullString{String: row.CarryForwardExpiresOn.Format(time.RFC3339), Valid: true}
	}
	updatedAt := time.Now().UTC().Format(time.RFC3339)

	if expectedVersion == 0 {
		query := `
			INSERT INTO entitlements
			(employee_id, leave_type_code, period_year, entitled, carried_forward,
			 carried_out, used, held, manual_adjustment, carry_expires_on, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		`
		_, err := s.db.ExecContext(ctx, query,
			row.EmployeeID, row.LeaveTypeCode, row.PeriodYear,
			row.Entitled.String(), row.CarriedForward.String(), row.CarriedOut.String(),
			row.Used.String(), row.Held.String(), row.ManualAdjustment.String(),
			expiresOn, updatedAt,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return leave.ErrConcurrentUpdateConflict
			}
			return fmt.Errorf("failed to insert entitlement: %w", err)
		}
		return nil
	}

	query := `
		UPDATE entitlements SET
			entitled = ?, carried_forward = ?, carried_out = ?, used = ?, held = ?,
			manual_adjustment = ?, carry_expires_on = ?, version = version + 1,
			updated_at = ?
		WHERE employee_id = ? AND leave_type_code = ? AND period_year = ?
		  AND version = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		row.Entitled.String(), row.CarriedForward.String(), row.CarriedOut.String(),
		row.Used.String(), row.Held.String(), row.ManualAdjustment.String(),
		expiresOn, updatedAt,
		row.EmployeeID, row.LeaveTypeCode, row.PeriodYear,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update entitlement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leave.ErrConcurrentUpdateConflict
	}
	return nil
}

// ListEntitlements returns all balance rows for an employee.
func (s *Store) ListEntitlements(ctx context.Context, emp leave.EmployeeID) ([]leave.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, leave_type_code, period_year, entitled, carried_forward,
		       carried_out, used, held, manual_adjustment, carry_expires_on, version, updated_at
		FROM entitlements
		WHERE employee_id = ?
		ORDER BY period_year ASC, leave_type_code ASC
	`

	rows, err := s.db.QueryContext(ctx, query, emp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Entitlement
	for rows.Next() {
		ent, err := scanEntitlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ent)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntitlement(r rowScanner) (*leave.Entitlement, error) {
	var (
		ent                                                       leave.Entitlement
		entitled, carried, carriedOut, used, held, adj, updatedAt string
		expiresOn                                                 sql.NullString
	)

	err := r.Scan(
		&ent.EmployeeID, &ent.LeaveTypeCode, &ent.PeriodYear,
		&entitled, &carried, &carriedOut, &used, &held, &adj,
		&expiresOn, &ent.Version, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ent.Entitled = dec(entitled)
	ent.CarriedForward = dec(carried)
	ent.CarriedOut = dec(carriedOut)
	ent.Used = dec(used)
	ent.Held = dec(held)
	ent.ManualAdjustment = dec(adj)
	if expiresOn.Valid {
		ent.CarryForwardExpiresOn, _ = time.Parse(time.RFC3339, expiresOn.String)
	}
	ent.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &ent, nil
}

// =============================================================================
// REQUEST STORE (leave.RequestStore interface)
// =============================================================================

// SaveRequest upserts a request with its decision history.
func (s *Store) SaveRequest(ctx context.Context, req *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decisionsJSON, err := json.Marshal(req.Decisions)
	if err != nil {
		return fmt.Errorf("failed to encode decisions: %w", err)
	}

	query := `
		INSERT INTO requests (id, employee_id, leave_type_code, from_date, to_date,
			duration_days, status, irregular_pattern, attachment_ref,
			paid_days, unpaid_days, decisions_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			irregular_pattern = excluded.irregular_pattern,
			attachment_ref = excluded.attachment_ref,
			paid_days = excluded.paid_days,
			unpaid_days = excluded.unpaid_days,
			decisions_json = excluded.decisions_json,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		req.ID, req.EmployeeID, req.LeaveTypeCode,
		req.From.Format(time.RFC3339), req.To.Format(time.RFC3339),
		req.DurationDays.String(), req.Status, req.IrregularPattern, req.AttachmentRef,
		req.PaidDays.String(), req.UnpaidDays.String(), string(decisionsJSON),
		req.CreatedAt.Format(time.RFC3339), req.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

// GetRequest retrieves a request by ID, nil when absent.
func (s *Store) GetRequest(ctx context.Context, id leave.RequestID) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, leave_type_code, from_date, to_date, duration_days,
			status, irregular_pattern, attachment_ref, paid_days, unpaid_days,
			decisions_json, created_at, updated_at
		FROM requests WHERE id = ?
	`

	reqs, err := s.queryRequests(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return reqs[0], nil
}

// ListRequests returns requests matching the filter.
func (s *Store) ListRequests(ctx context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, leave_type_code, from_date, to_date, duration_days,
			status, irregular_pattern, attachment_ref, paid_days, unpaid_days,
			decisions_json, created_at, updated_at
		FROM requests
		WHERE 1=1
	`
	var args []any
	if filter.EmployeeID != nil {
		query += " AND employee_id = ?"
		args = append(args, *filter.EmployeeID)
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, *filter.Status)
	}
	query += " ORDER BY created_at ASC"

	return s.queryRequests(ctx, query, args...)
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]*leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*leave.Request
	for rows.Next() {
		var (
			req                                 leave.Request
			from, to, duration, paid, unpaid    string
			decisionsJSON, createdAt, updatedAt string
			attachmentRef                       sql.NullString
		)
		if err := rows.Scan(
			&req.ID, &req.EmployeeID, &req.LeaveTypeCode, &from, &to, &duration,
			&req.Status, &req.IrregularPattern, &attachmentRef, &paid, &unpaid,
			&decisionsJSON, &createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}

		req.From, _ = time.Parse(time.RFC3339, from)
		req.To, _ = time.Parse(time.RFC3339, to)
		req.DurationDays = dec(duration)
		req.AttachmentRef = attachmentRef.String
		req.PaidDays = dec(paid)
		req.UnpaidDays = dec(unpaid)
		req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		if decisionsJSON != "" {
			if err := json.Unmarshal([]byte(decisionsJSON), &req.Decisions); err != nil {
				return nil, fmt.Errorf("failed to decode decisions: %w", err)
			}
		}

		requests = append(requests, &req)
	}
	return requests, rows.Err()
}

// =============================================================================
// POLICY STORE (leave.PolicyStore interface)
// =============================================================================

// SaveLeaveType upserts a leave type definition.
func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_types (code, name, paid, deductible, requires_attachment,
			attachment_type, min_tenure_months, max_duration_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			paid = excluded.paid,
			deductible = excluded.deductible,
			requires_attachment = excluded.requires_attachment,
			attachment_type = excluded.attachment_type,
			min_tenure_months = excluded.min_tenure_months,
			max_duration_days = excluded.max_duration_days
	`

	createdAt := lt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		lt.Code, lt.Name, lt.Paid, lt.Deductible, lt.RequiresAttachment,
		lt.AttachmentType, lt.MinTenureMonths, lt.MaxDurationDays,
		createdAt.Format(time.RFC3339),
	)
	return err
}

// GetLeaveType retrieves a leave type, nil when absent.
func (s *Store) GetLeaveType(ctx context.Context, code leave.LeaveTypeCode) (*leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		lt             leave.LeaveType
		attachmentType sql.NullString
		createdAt      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT code, name, paid, deductible, requires_attachment, attachment_type,
		        min_tenure_months, max_duration_days, created_at
		 FROM leave_types WHERE code = ?`, code,
	).Scan(&lt.Code, &lt.Name, &lt.Paid, &lt.Deductible, &lt.RequiresAttachment,
		&attachmentType, &lt.MinTenureMonths, &lt.MaxDurationDays, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lt.AttachmentType = attachmentType.String
	lt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &lt, nil
}

// ListLeaveTypes returns all leave types.
func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, paid, deductible, requires_attachment, attachment_type,
		        min_tenure_months, max_duration_days, created_at
		 FROM leave_types ORDER BY code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		var (
			lt             leave.LeaveType
			attachmentType sql.NullString
			createdAt      string
		)
		if err := rows.Scan(&lt.Code, &lt.Name, &lt.Paid, &lt.Deductible,
			&lt.RequiresAttachment, &attachmentType, &lt.MinTenureMonths,
			&lt.MaxDurationDays, &createdAt); err != nil {
			return nil, err
		}
		lt.AttachmentType = attachmentType.String
		lt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		types = append(types, lt)
	}
	return types, rows.Err()
}

// policyConfig is the JSON shape of the policy ruleset column.
type policyConfig struct {
	AccrualMethod      leave.AccrualMethod     `json:"accrualMethod"`
	YearlyRate         decimal.Decimal         `json:"yearlyRate"`
	MonthlyRate        decimal.Decimal         `json:"monthlyRate"`
	CarryForward       leave.CarryForwardRules `json:"carryForward"`
	Rounding           leave.RoundingRule      `json:"rounding"`
	MinNoticeDays      int                     `json:"minNoticeDays"`
	MaxConsecutiveDays int                     `json:"maxConsecutiveDays"`
	Eligibility        leave.EligibilityRules  `json:"eligibility"`
	ApprovalChain      []leave.ApprovalStep    `json:"approvalChain"`
}

// SavePolicy persists a new policy version, assigning its CreatedSeq.
func (s *Store) SavePolicy(ctx context.Context, p *leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := policyConfig{
		AccrualMethod:      p.AccrualMethod,
		YearlyRate:         p.YearlyRate,
		MonthlyRate:        p.MonthlyRate,
		CarryForward:       p.CarryForward,
		Rounding:           p.Rounding,
		MinNoticeDays:      p.MinNoticeDays,
		MaxConsecutiveDays: p.MaxConsecutiveDays,
		Eligibility:        p.Eligibility,
		ApprovalChain:      p.ApprovalChain,
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode policy config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(created_seq), 0) + 1 FROM policies",
	).Scan(&seq); err != nil {
		return err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO policies (id, leave_type_code, effective_date, created_seq, config_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.LeaveTypeCode, p.EffectiveDate.Format(time.RFC3339),
		seq, string(configJSON), createdAt.Format(time.RFC3339),
	); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	p.CreatedSeq = seq
	return nil
}

// ListPolicies returns all policy versions for a leave type.
func (s *Store) ListPolicies(ctx context.Context, code leave.LeaveTypeCode) ([]*leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, leave_type_code, effective_date, created_seq, config_json, created_at
		FROM policies
		WHERE leave_type_code = ?
		ORDER BY effective_date ASC, created_seq ASC
	`
	return s.queryPolicies(ctx, query, code)
}

// ListAllPolicies returns every policy version.
func (s *Store) ListAllPolicies(ctx context.Context) ([]*leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, leave_type_code, effective_date, created_seq, config_json, created_at
		FROM policies
		ORDER BY leave_type_code ASC, effective_date ASC, created_seq ASC
	`
	return s.queryPolicies(ctx, query)
}

func (s *Store) queryPolicies(ctx context.Context, query string, args ...any) ([]*leave.LeavePolicy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*leave.LeavePolicy
	for rows.Next() {
		var (
			p                                    leave.LeavePolicy
			effectiveDate, configJSON, createdAt string
		)
		if err := rows.Scan(&p.ID, &p.LeaveTypeCode, &effectiveDate, &p.CreatedSeq,
			&configJSON, &createdAt); err != nil {
			return nil, err
		}

		var cfg policyConfig
		if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode policy config: %w", err)
		}
		p.AccrualMethod = cfg.AccrualMethod
		p.YearlyRate = cfg.YearlyRate
		p.MonthlyRate = cfg.MonthlyRate
		p.CarryForward = cfg.CarryForward
		p.Rounding = cfg.Rounding
		p.MinNoticeDays = cfg.MinNoticeDays
		p.MaxConsecutiveDays = cfg.MaxConsecutiveDays
		p.Eligibility = cfg.Eligibility
		p.ApprovalChain = cfg.ApprovalChain

		p.EffectiveDate, _ = time.Parse(time.RFC3339, effectiveDate)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		policies = append(policies, &p)
	}
	return policies, rows.Err()
}

// =============================================================================
// EMPLOYEE DIRECTORY (leave.EmployeeDirectory interface)
// =============================================================================

// SaveEmployee upserts an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, hire_date, contract_type, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hire_date = excluded.hire_date,
			contract_type = excluded.contract_type
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name,
		emp.HireDate.Format(time.RFC3339),
		emp.ContractType,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee, nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp leave.Employee
	var hireDate string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, hire_date, contract_type FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &hireDate, &emp.ContractType)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, hire_date, contract_type FROM employees ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		var emp leave.Employee
		var hireDate string
		if err := rows.Scan(&emp.ID, &emp.Name, &hireDate, &emp.ContractType); err != nil {
			return nil, err
		}
		emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// AUDIT LOG (leave.AuditLog interface; append-only)
// =============================================================================

// Append adds an audit record. There is no update or delete path.
func (s *Store) Append(ctx context.Context, entry leave.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO audit_log (id, employee_id, leave_type_code, period_year,
			action, amount, reason, actor_id, request_id, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.EmployeeID, entry.LeaveTypeCode, entry.PeriodYear,
		entry.Action, entry.Amount.String(), entry.Reason,
		entry.ActorID, entry.RequestID,
		entry.At.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns audit records matching the filter.
func (s *Store) Query(ctx context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, leave_type_code, period_year, action, amount,
		       reason, actor_id, request_id, at
		FROM audit_log
		WHERE 1=1
	`
	var args []any
	if filter.EmployeeID != nil {
		query += " AND employee_id = ?"
		args = append(args, *filter.EmployeeID)
	}
	if filter.LeaveTypeCode != nil {
		query += " AND leave_type_code = ?"
		args = append(args, *filter.LeaveTypeCode)
	}
	if len(filter.Actions) > 0 {
		query += " AND action IN (?" + strings.Repeat(",?", len(filter.Actions)-1) + ")"
		for _, a := range filter.Actions {
			args = append(args, a)
		}
	}
	if filter.From != nil {
		query += " AND at >= ?"
		args = append(args, filter.From.Format(time.RFC3339))
	}
	if filter.To != nil {
		query += " AND at <= ?"
		args = append(args, filter.To.Format(time.RFC3339))
	}
	query += " ORDER BY at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []leave.AuditEntry
	for rows.Next() {
		var (
			e               leave.AuditEntry
			amount, at      string
			reason, request sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.LeaveTypeCode, &e.PeriodYear,
			&e.Action, &amount, &reason, &e.ActorID, &request, &at); err != nil {
			return nil, err
		}
		e.Amount = dec(amount)
		e.Reason = reason.String
		e.RequestID = leave.RequestID(request.String)
		e.At, _ = time.Parse(time.RFC3339, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HOLIDAY CALENDAR (leave.HolidayCalendar interface)
// =============================================================================

// SaveHoliday saves a holiday.
func (s *Store) SaveHoliday(ctx context.Context, h leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.Date.Format("2006-01-02"),
		h.Name,
		h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// IsHoliday checks if a date is a holiday.
func (s *Store) IsHoliday(date time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dateStr := date.Format("2006-01-02")
	monthDay := date.Format("01-02")

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (recurring = FALSE AND date = ?)
		   OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
	`

	var count int
	if err := s.db.QueryRow(query, dateStr, monthDay).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// Holidays returns all holidays in a year. Recurring holidays are projected
// into the requested year.
func (s *Store) Holidays(year int) []leave.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, date, name, recurring
		FROM holidays
		WHERE recurring = TRUE OR strftime('%Y', date) = ?
		ORDER BY date ASC
	`

	rows, err := s.db.Query(query, fmt.Sprintf("%d", year))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &dateStr, &h.Name, &h.Recurring); err != nil {
			continue
		}
		t, _ := time.Parse("2006-01-02", dateStr)
		if h.Recurring {
			t = time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		h.Date = t
		holidays = append(holidays, h)
	}
	return holidays
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo). The audit log is not exempted
// here because Reset exists only for throwaway databases.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"entitlements", "requests", "leave_types", "policies", "audit_log", "employees", "holidays"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
