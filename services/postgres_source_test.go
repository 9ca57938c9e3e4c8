package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-display/database"
	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKey(t *testing.T) {
	source := NewPostgresSource(nil, nil, nil)

	key, err := source.RecordKey(models.RawIPORecord{"ipo_id": 42, "company_name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "42", key)

	key, err = source.RecordKey(models.RawIPORecord{"basicDetails": map[string]interface{}{"companyName": "Zen Tech Limited"}})
	require.NoError(t, err)
	assert.Equal(t, "zen-tech", key)

	key, err = source.RecordKey(models.RawIPORecord{"issue_price": "99"})
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestPostgresSourceRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	config := shared.NewDefaultUnifiedConfiguration().Database
	config.PingTimeout = 2 * time.Second
	db, err := database.Open(url, &config)
	if err != nil {
		t.Skipf("test database unreachable: %v", err)
	}
	defer db.Close()
	require.NoError(t, database.Migrate(db, ""))

	ctx := context.Background()
	sourceName := "test-" + time.Now().Format("20060102150405.000000000")
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM ipo_raw_records WHERE source = $1`, sourceName)
	})

	clock := &steppingClock{now: time.Now()}
	store := NewPostgresSource(db, nil, clock)

	stored, err := store.StoreRecords(ctx, sourceName, []models.RawIPORecord{
		{"company_name": "Acme Fintech Ltd", "issue_price": "94-99"},
		{"issue_price": "10"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored, "unkeyable record is skipped")

	stored, err = store.StoreRecords(ctx, sourceName, []models.RawIPORecord{
		{"company_name": "Acme Fintech Ltd", "issue_price": "99"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	rows, err := store.ListStored(ctx)
	require.NoError(t, err)
	var mine []models.StoredRawRecord
	for _, row := range rows {
		if row.Source == sourceName {
			mine = append(mine, row)
		}
	}
	require.Len(t, mine, 1, "second store upserts the same key")
	assert.Equal(t, "acme-fintech", mine[0].RecordKey)
	assert.Equal(t, "99", mine[0].Payload["issue_price"])

	clock.Advance(48 * time.Hour)
	purged, err := store.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(1))
}
