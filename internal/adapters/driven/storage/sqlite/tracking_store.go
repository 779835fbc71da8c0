package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// trackingStore implements driven.TrackingStore.
type trackingStore struct {
	store *Store
}

var _ driven.TrackingStore = (*trackingStore)(nil)

const trackedColumns = `id, tenant, doc_id, doc_type, title, notify_destination, owner_user_id,
	last_known_modifier, last_known_modified_at, last_notification_at, last_checked_at,
	active, created_at, updated_at`

const auditColumns = `id, tenant, tracked_id, doc_id, destination, previous_modifier, new_modifier,
	previous_modified_at, new_modified_at, change_type, debounced, notification_sent,
	notification_ref, notification_error, corrects_id, detected_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// StartTracking inserts a row or reactivates the existing one.
func (s *trackingStore) StartTracking(
	ctx context.Context, tenant domain.TenantID, req domain.StartTrackingRequest,
) (*domain.TrackedDocument, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := s.store.now().UTC()

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM tracked_documents
		WHERE tenant = ? AND doc_id = ? AND notify_destination = ?
	`, string(tenant), req.DocID, req.Destination).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tracked_documents (id, tenant, doc_id, doc_type, notify_destination, owner_user_id,
				active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, id, string(tenant), req.DocID, string(req.DocType), req.Destination, req.OwnerUserID,
			formatTime(now), formatTime(now))
		if err != nil {
			return nil, fmt.Errorf("%w: inserting tracked document: %w", domain.ErrPersistence, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: looking up tracked document: %w", domain.ErrPersistence, err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE tracked_documents SET
				active = 1,
				doc_type = ?,
				owner_user_id = CASE WHEN ? != '' THEN ? ELSE owner_user_id END,
				updated_at = ?
			WHERE id = ?
		`, string(req.DocType), req.OwnerUserID, req.OwnerUserID, formatTime(now), id)
		if err != nil {
			return nil, fmt.Errorf("%w: reactivating tracked document: %w", domain.ErrPersistence, err)
		}
	}

	if md := req.Initial; md != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE tracked_documents SET
				title = ?,
				owner_user_id = CASE WHEN owner_user_id = '' THEN ? ELSE owner_user_id END,
				last_known_modifier = ?,
				last_known_modified_at = ?
			WHERE id = ?
		`, md.Title, md.OwnerID, md.LastModifiedBy,
			formatTime(domain.NormaliseTimestamp(md.LastModifiedAt)), id)
		if err != nil {
			return nil, fmt.Errorf("%w: applying initial metadata: %w", domain.ErrPersistence, err)
		}
	}

	doc, err := scanTracked(tx.QueryRowContext(ctx,
		"SELECT "+trackedColumns+" FROM tracked_documents WHERE id = ?", id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}
	return doc, nil
}

// StopTracking deactivates rows without deleting them.
func (s *trackingStore) StopTracking(
	ctx context.Context, tenant domain.TenantID, docID, destination string,
) (int, error) {
	if err := tenant.Validate(); err != nil {
		return 0, err
	}

	query := `UPDATE tracked_documents SET active = 0, updated_at = ?
		WHERE tenant = ? AND doc_id = ? AND active = 1`
	args := []any{formatTime(s.store.now()), string(tenant), docID}
	if destination != "" {
		query += " AND notify_destination = ?"
		args = append(args, destination)
	}

	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: stopping tracking: %w", domain.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", domain.ErrPersistence, err)
	}
	if n == 0 {
		return 0, domain.ErrNotFound
	}
	return int(n), nil
}

// ListTracked returns the tenant's tracked documents.
func (s *trackingStore) ListTracked(
	ctx context.Context, tenant domain.TenantID, activeOnly bool,
) ([]domain.TrackedDocument, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	query := "SELECT " + trackedColumns + " FROM tracked_documents WHERE tenant = ?"
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.store.db.QueryContext(ctx, query, string(tenant))
	if err != nil {
		return nil, fmt.Errorf("querying tracked documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.TrackedDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanTracked(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracked documents: %w", err)
	}
	return docs, nil
}

// GetTracked retrieves a row by ID.
func (s *trackingStore) GetTracked(ctx context.Context, tenant domain.TenantID, id string) (*domain.TrackedDocument, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	return scanTracked(s.store.db.QueryRowContext(ctx,
		"SELECT "+trackedColumns+" FROM tracked_documents WHERE tenant = ? AND id = ?", string(tenant), id))
}

// ListTenants returns tenants with at least one active row.
func (s *trackingStore) ListTenants(ctx context.Context) ([]domain.TenantID, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT DISTINCT tenant FROM tracked_documents WHERE active = 1 ORDER BY tenant")
	if err != nil {
		return nil, fmt.Errorf("querying tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.TenantID //nolint:prealloc // size unknown from query
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, domain.TenantID(t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenants: %w", err)
	}
	return tenants, nil
}

// RecordChange appends one audit record.
func (s *trackingStore) RecordChange(ctx context.Context, tenant domain.TenantID, record domain.ChangeAuditRecord) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.DetectedAt.IsZero() {
		record.DetectedAt = s.store.now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO change_audit (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, string(tenant), record.TrackedID, record.DocID, record.Destination,
		record.PreviousModifier, record.NewModifier,
		formatTime(record.PreviousModifiedAt), formatTime(record.NewModifiedAt),
		string(record.ChangeType), boolToInt(record.Debounced), boolToInt(record.NotificationSent),
		nullString(record.NotificationRef), nullString(record.NotificationError), nullString(record.CorrectsID),
		formatTime(record.DetectedAt))
	if err != nil {
		return fmt.Errorf("%w: recording change: %w", domain.ErrPersistence, err)
	}
	return nil
}

// UpdateLastKnownState stores the latest observed modifier and timestamp.
func (s *trackingStore) UpdateLastKnownState(
	ctx context.Context, tenant domain.TenantID, id, modifier string, modifiedAt, checkedAt time.Time,
) error {
	if err := tenant.Validate(); err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE tracked_documents SET
			last_known_modifier = ?,
			last_known_modified_at = ?,
			last_checked_at = ?,
			updated_at = ?
		WHERE tenant = ? AND id = ?
	`, modifier, formatTime(domain.NormaliseTimestamp(modifiedAt)), formatTime(checkedAt),
		formatTime(s.store.now()), string(tenant), id)
	if err != nil {
		return fmt.Errorf("%w: updating last known state: %w", domain.ErrPersistence, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateLastNotificationTime advances last_notification_at; older values are ignored.
func (s *trackingStore) UpdateLastNotificationTime(
	ctx context.Context, tenant domain.TenantID, id string, ts time.Time,
) error {
	if err := tenant.Validate(); err != nil {
		return err
	}

	stamp := formatTime(ts)
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE tracked_documents SET last_notification_at = ?, updated_at = ?
		WHERE tenant = ? AND id = ?
			AND (last_notification_at IS NULL OR last_notification_at < ?)
	`, stamp, formatTime(s.store.now()), string(tenant), id, stamp)
	if err != nil {
		return fmt.Errorf("%w: updating notification time: %w", domain.ErrPersistence, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the row is missing or the stored time is already newer.
		if _, err := s.GetTracked(ctx, tenant, id); err != nil {
			return err
		}
	}
	return nil
}

// GetChangeHistory returns audit records for docID, most recent first.
func (s *trackingStore) GetChangeHistory(
	ctx context.Context, tenant domain.TenantID, docID string, limit int,
) ([]domain.ChangeAuditRecord, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM change_audit
		WHERE tenant = ? AND doc_id = ?
		ORDER BY detected_at DESC, seq DESC
		LIMIT ?
	`, string(tenant), docID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying change history: %w", err)
	}
	defer rows.Close()

	var records []domain.ChangeAuditRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change history: %w", err)
	}
	return records, nil
}

// GetChangeStats aggregates the audit trail for docID.
func (s *trackingStore) GetChangeStats(
	ctx context.Context, tenant domain.TenantID, docID string,
) (*domain.ChangeStats, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	stats := &domain.ChangeStats{DocID: docID, ByType: make(map[domain.ChangeType]int)}
	var first, last sql.NullString
	err := s.store.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(debounced), 0),
			COALESCE(SUM(notification_sent), 0),
			COALESCE(SUM(CASE WHEN notification_error IS NOT NULL AND notification_error != '' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT NULLIF(new_modifier, '')),
			MIN(detected_at),
			MAX(detected_at)
		FROM change_audit
		WHERE tenant = ? AND doc_id = ?
	`, string(tenant), docID).Scan(&stats.TotalChanges, &stats.Debounced, &stats.NotificationsSent,
		&stats.NotifyFailures, &stats.DistinctModifiers, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("querying change stats: %w", err)
	}
	stats.FirstDetectedAt = parseTime(first)
	stats.LastDetectedAt = parseTime(last)

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT change_type, COUNT(*) FROM change_audit
		WHERE tenant = ? AND doc_id = ?
		GROUP BY change_type
	`, string(tenant), docID)
	if err != nil {
		return nil, fmt.Errorf("querying change types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct string
		var n int
		if err := rows.Scan(&ct, &n); err != nil {
			return nil, fmt.Errorf("scanning change type: %w", err)
		}
		stats.ByType[domain.ChangeType(ct)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change types: %w", err)
	}
	return stats, nil
}

// scanTracked scans a tracked document row.
func scanTracked(row rowScanner) (*domain.TrackedDocument, error) {
	var doc domain.TrackedDocument
	var tenant, docType string
	var modifiedAt, notifiedAt, checkedAt, createdAt, updatedAt sql.NullString
	var active int

	if err := row.Scan(&doc.ID, &tenant, &doc.DocID, &docType, &doc.Title, &doc.NotifyDestination,
		&doc.OwnerUserID, &doc.LastKnownModifier, &modifiedAt, &notifiedAt, &checkedAt,
		&active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning tracked document: %w", err)
	}

	doc.Tenant = domain.TenantID(tenant)
	doc.DocType = domain.DocType(docType)
	doc.LastKnownModifiedAt = parseTime(modifiedAt)
	doc.LastNotificationAt = parseTime(notifiedAt)
	doc.LastCheckedAt = parseTime(checkedAt)
	doc.Active = active == 1
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	return &doc, nil
}

// scanAudit scans an audit record row.
func scanAudit(row rowScanner) (*domain.ChangeAuditRecord, error) {
	var rec domain.ChangeAuditRecord
	var tenant, changeType string
	var prevAt, newAt, detectedAt, ref, notifyErr, correctsID sql.NullString
	var debounced, sent int

	if err := row.Scan(&rec.ID, &tenant, &rec.TrackedID, &rec.DocID, &rec.Destination,
		&rec.PreviousModifier, &rec.NewModifier, &prevAt, &newAt, &changeType,
		&debounced, &sent, &ref, &notifyErr, &correctsID, &detectedAt); err != nil {
		return nil, fmt.Errorf("scanning change record: %w", err)
	}

	rec.Tenant = domain.TenantID(tenant)
	rec.ChangeType = domain.ChangeType(changeType)
	rec.PreviousModifiedAt = parseTime(prevAt)
	rec.NewModifiedAt = parseTime(newAt)
	rec.Debounced = debounced == 1
	rec.NotificationSent = sent == 1
	rec.NotificationRef = ref.String
	rec.NotificationError = notifyErr.String
	rec.CorrectsID = correctsID.String
	rec.DetectedAt = parseTime(detectedAt)
	return &rec, nil
}
