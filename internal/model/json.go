package model

import (
    "database/sql/driver"
    "encoding/json"
)

// JSONMap is a free-form object stored in a JSON column (audit details,
// settings sections).
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
    if m == nil {
        return "{}", nil
    }
    b, err := json.Marshal(m)
    if err != nil {
        return nil, err
    }
    return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
    b, err := jsonBytes(src)
    if err != nil {
        return err
    }
    if len(b) == 0 {
        *m = JSONMap{}
        return nil
    }
    return json.Unmarshal(b, m)
}
