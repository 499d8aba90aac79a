package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Document is a schema-less JSON object stored verbatim next to the typed
// columns extracted from it.
type Document map[string]interface{}

// Value implements the driver.Valuer interface for Document
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for Document
func (d *Document) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, d)
}

// String returns the value at key when it is a string.
func (d Document) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Number returns the value at key when it is numeric.
func (d Document) Number(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

type BlacklistEntry struct {
	ID        string `json:"id"`
	IP        string `json:"ip" validate:"required,ip"`
	Label     string `json:"label" validate:"max=200"`
	CreatedAt int64  `json:"createdAt"`
}

type PushTemplate struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required,max=200"`
	Title     string `json:"title" validate:"required"`
	Body      string `json:"body" validate:"required"`
	Image     string `json:"image,omitempty"`
	URL       string `json:"url,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

type TheftAlert struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	URL       string `json:"url"`
	Referrer  string `json:"referrer"`
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
	CreatedAt int64  `json:"createdAt"`
}
