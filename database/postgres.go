package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-display/shared"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var embeddedSchema string

var DB *sql.DB

// Connect establishes database connection with default pool configuration
func Connect(dbURL string) error {
	config := shared.NewDefaultUnifiedConfiguration().Database
	return ConnectWithConfig(dbURL, &config)
}

// ConnectWithConfig establishes database connection with custom configuration
func ConnectWithConfig(dbURL string, config *shared.DatabaseConfig) error {
	db, err := Open(dbURL, config)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens and pings a pool without touching the package-level DB.
func Open(dbURL string, config *shared.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingTimeout := config.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"max_open_conns":     config.MaxOpenConns,
		"max_idle_conns":     config.MaxIdleConns,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to database successfully")

	return db, nil
}

func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
		logrus.Info("Database connection closed")
	}
}

// GetConnectionStats returns current database connection pool statistics
func GetConnectionStats() sql.DBStats {
	if DB == nil {
		return sql.DBStats{}
	}
	return DB.Stats()
}

// HealthCheck pings the database and logs pool statistics
func HealthCheck(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := DB.Stats()
	logrus.WithFields(logrus.Fields{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration,
	}).Debug("Database connection pool health check")

	return nil
}

// Migrate applies the schema file at schemaPath, or the embedded schema
// when schemaPath is empty.
func Migrate(db *sql.DB, schemaPath string) error {
	if db == nil {
		return fmt.Errorf("database connection not established")
	}

	content := embeddedSchema
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		content = string(data)
	}

	for _, stmt := range parseSQLStatements(content) {
		if _, err := db.Exec(stmt); err != nil {
			// statements are idempotent; a failure here usually means the object already exists
			logrus.Warnf("Migration statement failed (continuing): %v", err)
		}
	}

	logrus.Info("Database migration completed successfully")
	return nil
}

// MigrateAndValidate applies the schema and then checks the raw record
// table against it. A schema that still has issues after migration is
// returned as an invalid result, not an error.
func MigrateAndValidate(ctx context.Context, db *sql.DB, schemaPath string) (*ValidationResult, error) {
	if err := Migrate(db, schemaPath); err != nil {
		return nil, err
	}
	return NewSchemaValidator(db).ValidateRawRecordTable(ctx)
}

// parseSQLStatements parses SQL content into individual statements
// This handles multi-line statements and comments properly
func parseSQLStatements(content string) []string {
	var statements []string
	var currentStatement strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if currentStatement.Len() > 0 {
			currentStatement.WriteString(" ")
		}
		currentStatement.WriteString(line)

		if strings.HasSuffix(line, ";") {
			stmt := strings.TrimSpace(strings.TrimSuffix(currentStatement.String(), ";"))
			if stmt != "" {
				statements = append(statements, stmt)
			}
			currentStatement.Reset()
		}
	}

	if stmt := strings.TrimSpace(currentStatement.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// ValidationResult represents the result of schema validation
type ValidationResult struct {
	TableName      string
	IsValid        bool
	MissingColumns []string
	MissingIndexes []string
}

// SchemaValidator checks that the raw record table matches what the stores expect
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a new schema validator instance
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateRawRecordTable reports missing columns and indexes of ipo_raw_records
func (v *SchemaValidator) ValidateRawRecordTable(ctx context.Context) (*ValidationResult, error) {
	result := &ValidationResult{TableName: "ipo_raw_records", IsValid: true}

	columns, err := v.getTableColumns(ctx, result.TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	expectedColumns := map[string]string{
		"id":         "uuid",
		"source":     "text",
		"record_key": "text",
		"payload":    "jsonb",
		"fetched_at": "timestamp with time zone",
	}
	for name, dataType := range expectedColumns {
		if actual, ok := columns[name]; !ok || actual != dataType {
			result.MissingColumns = append(result.MissingColumns, fmt.Sprintf("%s (%s)", name, dataType))
			result.IsValid = false
		}
	}

	indexes, err := v.getIndexes(ctx, result.TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	for _, name := range []string{"idx_ipo_raw_records_fetched_at", "idx_ipo_raw_records_source"} {
		if !indexes[name] {
			result.MissingIndexes = append(result.MissingIndexes, name)
			result.IsValid = false
		}
	}

	if !result.IsValid {
		logrus.WithFields(logrus.Fields{
			"table":           result.TableName,
			"missing_columns": result.MissingColumns,
			"missing_indexes": result.MissingIndexes,
		}).Warn("Schema validation found issues")
	}

	return result, nil
}

func (v *SchemaValidator) getTableColumns(ctx context.Context, tableName string) (map[string]string, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
	`
	rows, err := v.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var columnName, dataType string
		if err := rows.Scan(&columnName, &dataType); err != nil {
			return nil, err
		}
		columns[columnName] = dataType
	}

	return columns, rows.Err()
}

func (v *SchemaValidator) getIndexes(ctx context.Context, tableName string) (map[string]bool, error) {
	rows, err := v.db.QueryContext(ctx, `SELECT indexname FROM pg_indexes WHERE schemaname = 'public' AND tablename = $1`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indexes := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		indexes[name] = true
	}

	return indexes, rows.Err()
}
