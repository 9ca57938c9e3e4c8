package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecords = `[
  {"company_name": "Acme Fintech Ltd", "issue_price": "94-99", "open_date": "2025-06-09", "close_date": "2025-06-11", "lot_size": 150},
  {"basicDetails": {"companyName": "Zen Tech Limited"}, "tentativeDetails": {"openDate": "2025-06-20"}},
  {"company_name": "Gamma Power", "listing_date": "2025-06-02"}
]`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipos.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRecords), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNormalizeCommand(t *testing.T) {
	path := writeSample(t)

	out, err := run(t, "normalize", "--file", path, "--now", "2025-06-10")
	require.NoError(t, err)

	var records []models.CanonicalIPO
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)
	assert.Equal(t, models.StatusOpen, records[0].Classification.Status)
	assert.Equal(t, models.Classification{Status: models.StatusUpcoming, Window: models.WindowNextWeek}, records[1].Classification)
	assert.Equal(t, models.StatusListed, records[2].Classification.Status)
	require.NotNil(t, records[0].MinimumInvestment)
	assert.Equal(t, 14850.0, *records[0].MinimumInvestment)
}

func TestPrettyFlag(t *testing.T) {
	path := writeSample(t)

	compact, err := run(t, "normalize", "--file", path, "--now", "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(compact, "\n"), "compact output is one line")

	pretty, err := run(t, "normalize", "--file", path, "--now", "2025-06-10", "--pretty")
	require.NoError(t, err)
	assert.Contains(t, pretty, "\n  {")
	assert.JSONEq(t, compact, pretty)
}

func TestBucketsCommand(t *testing.T) {
	path := writeSample(t)

	out, err := run(t, "buckets", "--file", path, "--now", "2025-06-10")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	counts := make(map[string]string, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		require.Len(t, fields, 2)
		counts[fields[0]] = fields[1]
	}
	assert.Equal(t, "1", counts["open"])
	assert.Equal(t, "1", counts["next_week"])
	assert.Equal(t, "1", counts["listed"])
	assert.Equal(t, "0", counts["closed"])
}

func TestBucketsCommandFull(t *testing.T) {
	path := writeSample(t)

	out, err := run(t, "buckets", "--full", "--file", path, "--now", "2025-06-18")
	require.NoError(t, err)

	var buckets models.IPOBuckets
	require.NoError(t, json.Unmarshal([]byte(out), &buckets))
	assert.Len(t, buckets.Closed, 1)
	assert.Len(t, buckets.ThisWeek, 1)
}

func TestExportCommand(t *testing.T) {
	path := writeSample(t)
	target := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := run(t, "export", "--file", path, "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 records")

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestAliasOverride(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "ipos.json")
	require.NoError(t, os.WriteFile(data, []byte(`[{"issuer": "Custom Name Ltd"}]`), 0o644))
	aliases := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(aliases, []byte("aliases:\n  companyName:\n    - issuer\n"), 0o644))

	out, err := run(t, "normalize", "--file", data, "--aliases", aliases, "--now", "2025-06-10")
	require.NoError(t, err)

	var records []models.CanonicalIPO
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Custom Name Ltd", records[0].DisplayName())
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "normalize")
	assert.Error(t, err, "--file is required")

	path := writeSample(t)
	_, err = run(t, "normalize", "--file", path, "--now", "whenever")
	assert.Error(t, err)

	_, err = run(t, "normalize", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCheckCommandDegraded(t *testing.T) {
	path := writeSample(t)

	out, err := run(t, "check", "--file", path, "--now", "2025-06-10")
	require.NoError(t, err)
	assert.Contains(t, out, "3 records")
	assert.Contains(t, out, "1/3 complete")
	assert.Contains(t, out, "Zen Tech Limited")
	assert.Contains(t, out, "SYSTEM DEGRADED: 3/4 checks passed")
}

func TestCheckCommandHealthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipos.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"company_name":"Acme","issue_price":"99","open_date":"2025-06-12"}]`), 0o644))

	out, err := run(t, "check", "--file", path, "--now", "2025-06-10")
	require.NoError(t, err)
	assert.Contains(t, out, "SYSTEM HEALTHY: 4/4")
}

func TestCheckCommandUnreadableFile(t *testing.T) {
	out, err := run(t, "check", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.Contains(t, out, "Load records:")
	assert.Contains(t, out, "FAILED")
}
