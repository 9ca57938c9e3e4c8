package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

// JSONFileSource reads records from a JSON file or every *.json file in a directory.
type JSONFileSource struct {
	path string
}

// NewJSONFileSource creates a file source rooted at path.
func NewJSONFileSource(path string) *JSONFileSource {
	return &JSONFileSource{path: path}
}

// Name identifies the source in logs and metrics.
func (s *JSONFileSource) Name() string {
	return "file:" + s.path
}

// LoadRecords reads files in lexical order. A directory with a broken file
// still yields the records of the other files.
func (s *JSONFileSource) LoadRecords(ctx context.Context) ([]models.RawIPORecord, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryResource, "DATA_PATH_UNAVAILABLE", "JSONFileSource", "LoadRecords", false)
	}

	if !info.IsDir() {
		return s.loadFile(s.path)
	}

	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryResource, "DATA_PATH_UNREADABLE", "JSONFileSource", "LoadRecords", false)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, filepath.Join(s.path, entry.Name()))
		}
	}
	sort.Strings(files)

	var records []models.RawIPORecord
	var failures []error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loaded, err := s.loadFile(file)
		if err != nil {
			failures = append(failures, err)
			logrus.WithFields(logrus.Fields{
				"component": "JSONFileSource",
				"file":      file,
				"error":     err.Error(),
			}).Warn("Skipping unreadable data file")
			continue
		}
		records = append(records, loaded...)
	}

	if len(files) > 0 && len(failures) == len(files) {
		return nil, shared.NewServiceError(shared.ErrorCategoryProcessing, "DATA_FILES_UNREADABLE",
			shared.BuildBatchProcessingErrorSummary(0, len(failures), failures), "JSONFileSource", "LoadRecords", false, failures[0])
	}

	logrus.WithFields(logrus.Fields{
		"component": "JSONFileSource",
		"path":      s.path,
		"files":     len(files),
		"records":   len(records),
	}).Debug("Loaded records from data directory")

	return records, nil
}

func (s *JSONFileSource) loadFile(path string) ([]models.RawIPORecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryResource, "DATA_FILE_UNREADABLE", "JSONFileSource", "loadFile", false)
	}

	records, err := DecodeRecordPayload(data)
	if err != nil {
		return nil, shared.WrapError(fmt.Errorf("%s: %w", path, err), shared.ErrorCategoryValidation, "DATA_FILE_MALFORMED", "JSONFileSource", "loadFile", false)
	}
	return records, nil
}
