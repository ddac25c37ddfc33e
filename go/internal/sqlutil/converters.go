package sqlutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Helper functions for converting between Go types and pgx column types

// ToTimestamptz converts a Go time pointer to pgtype.Timestamptz
func ToTimestamptz(val *time.Time) pgtype.Timestamptz {
	if val == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *val, Valid: true}
}

// FromTimestamptz converts pgtype.Timestamptz to a Go time pointer
func FromTimestamptz(val pgtype.Timestamptz) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}

// ToNullMillis converts a duration pointer to a nullable bigint of milliseconds
func ToNullMillis(val *time.Duration) pgtype.Int8 {
	if val == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: val.Milliseconds(), Valid: true}
}

// FromNullMillis converts a nullable bigint of milliseconds to a duration pointer
func FromNullMillis(val pgtype.Int8) *time.Duration {
	if !val.Valid {
		return nil
	}
	d := time.Duration(val.Int64) * time.Millisecond
	return &d
}

// Index-keyed histories are stored as JSONB objects whose keys are decimal
// puzzle indexes, e.g. {"0": [...], "3": [...]}.

// EncodeIndexed marshals an index-keyed map.
func EncodeIndexed[V any](m map[int]V) ([]byte, error) {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

// DecodeIndexed unmarshals a JSONB object into an index-keyed map. Empty or
// null input yields an empty map.
func DecodeIndexed[V any](data []byte) (map[int]V, error) {
	out := map[int]V{}
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}

	var raw map[string]V
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid puzzle index %q in history", k)
		}
		out[i] = v
	}
	return out, nil
}
