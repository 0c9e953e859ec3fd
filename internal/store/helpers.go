package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
)

// now returns the current UTC time in a fixed-width, lexically ordered form.
func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// rowKey returns the primary key of an instance row: the UUID of a
// qualified or short id. ok is false for ids outside the namespace.
func rowKey(ids *idnorm.Normalizer, id string) (string, bool) {
	u, ok := ids.Simplify(ids.QualifyID(id))
	if !ok {
		return "", false
	}
	return u.String(), true
}
