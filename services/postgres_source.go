package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PostgresSource reads and writes raw records in the ipo_raw_records table.
type PostgresSource struct {
	db       *sql.DB
	resolver *FieldResolver
	utility  *UtilityService
	clock    shared.Clock
}

// NewPostgresSource creates a store over an open pool.
func NewPostgresSource(db *sql.DB, resolver *FieldResolver, clock shared.Clock) *PostgresSource {
	if resolver == nil {
		resolver = NewFieldResolver(nil)
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &PostgresSource{
		db:       db,
		resolver: resolver,
		utility:  NewUtilityService(),
		clock:    clock,
	}
}

// Name identifies the source in logs and metrics.
func (s *PostgresSource) Name() string {
	return "postgres"
}

// LoadRecords returns every stored payload ordered by source and key.
func (s *PostgresSource) LoadRecords(ctx context.Context) ([]models.RawIPORecord, error) {
	stored, err := s.ListStored(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.RawIPORecord, 0, len(stored))
	for _, row := range stored {
		records = append(records, row.Payload)
	}
	return records, nil
}

// ListStored returns stored rows with their bookkeeping columns.
func (s *PostgresSource) ListStored(ctx context.Context) ([]models.StoredRawRecord, error) {
	query := `
		SELECT id, source, record_key, payload, fetched_at
		FROM ipo_raw_records
		ORDER BY source, record_key
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "RAW_RECORD_QUERY_FAILED", "PostgresSource", "ListStored", true)
	}
	defer rows.Close()

	var stored []models.StoredRawRecord
	for rows.Next() {
		var row models.StoredRawRecord
		var payload []byte
		if err := rows.Scan(&row.ID, &row.Source, &row.RecordKey, &payload, &row.FetchedAt); err != nil {
			return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "RAW_RECORD_SCAN_FAILED", "PostgresSource", "ListStored", false)
		}

		decoded, err := models.DecodeRawRecord(payload)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"component":  "PostgresSource",
				"source":     row.Source,
				"record_key": row.RecordKey,
				"error":      err.Error(),
			}).Warn("Skipping stored record with undecodable payload")
			continue
		}
		row.Payload = decoded
		stored = append(stored, row)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "RAW_RECORD_QUERY_FAILED", "PostgresSource", "ListStored", true)
	}

	return stored, nil
}

// StoreRecords upserts records of one source keyed by (source, record_key).
// Records without an id or company name cannot be keyed and are skipped.
func (s *PostgresSource) StoreRecords(ctx context.Context, source string, records []models.RawIPORecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "TX_BEGIN_FAILED", "PostgresSource", "StoreRecords", true)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ipo_raw_records (id, source, record_key, payload, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, record_key)
		DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
	`)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "PREPARE_FAILED", "PostgresSource", "StoreRecords", false)
	}
	defer stmt.Close()

	fetchedAt := s.clock.Now().UTC()
	stored := 0

	for _, record := range records {
		key, err := s.RecordKey(record)
		if err != nil {
			return stored, err
		}
		if key == "" {
			logrus.WithFields(logrus.Fields{
				"component": "PostgresSource",
				"source":    source,
			}).Warn("Skipping record without id or company name")
			continue
		}

		payload, err := json.Marshal(record)
		if err != nil {
			return stored, shared.WrapError(err, shared.ErrorCategoryValidation, "PAYLOAD_ENCODE_FAILED", "PostgresSource", "StoreRecords", false)
		}

		id := uuid.NewSHA1(ipoNamespace, []byte(source+"/"+key))
		if _, err := stmt.ExecContext(ctx, id, source, key, string(payload), fetchedAt); err != nil {
			return stored, shared.WrapError(fmt.Errorf("upsert %s/%s: %w", source, key, err), shared.ErrorCategoryDatabase, "UPSERT_FAILED", "PostgresSource", "StoreRecords", true)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "TX_COMMIT_FAILED", "PostgresSource", "StoreRecords", true)
	}

	logrus.WithFields(logrus.Fields{
		"component": "PostgresSource",
		"source":    source,
		"stored":    stored,
		"received":  len(records),
	}).Info("Stored raw records")

	return stored, nil
}

// RecordKey returns the upstream id or the slug of the company name.
func (s *PostgresSource) RecordKey(record models.RawIPORecord) (string, error) {
	if value, found, err := s.resolver.Resolve(record, models.FieldID); err != nil {
		return "", err
	} else if found {
		return fmt.Sprint(value), nil
	}

	value, found, err := s.resolver.Resolve(record, models.FieldCompanyName)
	if err != nil || !found {
		return "", err
	}
	name, ok := value.(string)
	if !ok {
		return "", nil
	}
	return s.utility.GenerateSlug(name), nil
}

// PurgeOlderThan deletes rows not refreshed within maxAge.
func (s *PostgresSource) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-maxAge).UTC()
	result, err := s.db.ExecContext(ctx, `DELETE FROM ipo_raw_records WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "PURGE_FAILED", "PostgresSource", "PurgeOlderThan", true)
	}
	return result.RowsAffected()
}
