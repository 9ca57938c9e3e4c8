package models

import "encoding/json"

// RawIPORecord is an untyped record as decoded from an upstream source.
// It may be a flat summary, a nested basicDetails/tentativeDetails object,
// or a detailed record with financials, subscription_details and listing data.
type RawIPORecord map[string]interface{}

// Clone returns a deep copy of the record so callers can hand it to code
// that must not observe later mutations.
func (r RawIPORecord) Clone() RawIPORecord {
	if r == nil {
		return nil
	}
	return RawIPORecord(cloneValue(map[string]interface{}(r)).(map[string]interface{}))
}

func cloneValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, inner := range typed {
			out[k] = cloneValue(inner)
		}
		return out
	case RawIPORecord:
		return cloneValue(map[string]interface{}(typed))
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, inner := range typed {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return typed
	}
}

// DecodeRawRecord decodes a single JSON object into a raw record.
func DecodeRawRecord(data []byte) (RawIPORecord, error) {
	var record RawIPORecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}
