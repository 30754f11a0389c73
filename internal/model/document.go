package model

import (
    "database/sql/driver"
    "encoding/json"
    "errors"
    "time"
)

// Document describes one uploaded file attached to a warranty. Path is the
// storage key understood by the configured storage.Store.
type Document struct {
    ID           string    `json:"id"`
    Filename     string    `json:"filename"`
    OriginalName string    `json:"originalName"`
    Path         string    `json:"path"`
    MimeType     string    `json:"mimetype"`
    Size         int64     `json:"size"`
    UploadedAt   time.Time `json:"uploadedAt"`
}

// Documents is stored as a JSON array column.
type Documents []Document

// Value implements driver.Valuer.
func (d Documents) Value() (driver.Value, error) {
    if d == nil {
        return "[]", nil
    }
    b, err := json.Marshal(d)
    if err != nil {
        return nil, err
    }
    return string(b), nil
}

// Scan implements sql.Scanner.
func (d *Documents) Scan(src any) error {
    b, err := jsonBytes(src)
    if err != nil {
        return err
    }
    if len(b) == 0 {
        *d = Documents{}
        return nil
    }
    return json.Unmarshal(b, d)
}

// Find returns the index of the document with the given id, or -1.
func (d Documents) Find(id string) int {
    for i := range d {
        if d[i].ID == id {
            return i
        }
    }
    return -1
}

func jsonBytes(src any) ([]byte, error) {
    switch v := src.(type) {
    case nil:
        return nil, nil
    case []byte:
        return v, nil
    case string:
        return []byte(v), nil
    }
    return nil, errors.New("model: unsupported JSON column type")
}
