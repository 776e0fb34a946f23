// Package valueobject holds small value types shared by storage models.
package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

var ErrScanValueNotBytes = errors.New("valueobject: jsonmap scan value is not []byte")

// JSONMap is a JSON object stored in a jsonb column.
// @swaggertype object
type JSONMap map[string]any

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case map[string]any:
		*j = JSONMap(v)
		return nil
	default:
		return ErrScanValueNotBytes
	}

	result := JSONMap{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// GetString returns "" when key is missing or not a string.
func (j JSONMap) GetString(key string) string {
	v, _ := j[key].(string)
	return v
}
