package models

import "encoding/json"

const (
	LeadStatusNew = "new"
	// LeadStatusTest leads stay in storage and listings but never reach analytics.
	LeadStatusTest = "test"
)

type Lead struct {
	LeadID          string          `json:"leadId"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Buyer           string          `json:"buyer"`
	Geo             string          `json:"geo"`
	DeviceInfo      json.RawMessage `json:"deviceInfo,omitempty"`
	GeoInfo         json.RawMessage `json:"geoInfo,omitempty"`
	UTM             json.RawMessage `json:"utm,omitempty"`
	IsPWA           bool            `json:"isPWA"`
	PageTime        int64           `json:"pageTime"`
	Referrer        string          `json:"referrer"`
	Landing         string          `json:"landing"`
	UserAgent       string          `json:"userAgent"`
	Status          string          `json:"status"`
	CreatedAt       int64           `json:"createdAt"`
	StatusUpdatedAt *int64          `json:"statusUpdatedAt,omitempty"`
}
