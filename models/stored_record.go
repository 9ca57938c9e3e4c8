package models

import (
	"time"

	"github.com/google/uuid"
)

// StoredRawRecord is a raw record persisted in the ipo_raw_records table.
type StoredRawRecord struct {
	ID        uuid.UUID    `json:"id"`
	Source    string       `json:"source"`
	RecordKey string       `json:"record_key"`
	Payload   RawIPORecord `json:"payload"`
	FetchedAt time.Time    `json:"fetched_at"`
}
