package models

// Well-known event names.
const (
	EventPageView         = "page_view"
	EventPageExit         = "page_exit"
	EventFunnelStep       = "funnel_step"
	EventInstallGateShown = "install_gate_shown"
	EventInstallClick     = "install_click"
	EventPWAInstalled     = "pwa_installed"
	EventPWAOpen          = "pwa_open"
	EventPWAResumed       = "pwa_resumed"
	EventVideoPlay        = "video_play"
	EventVideoComplete    = "video_complete"
)

// Event is one entry of the append-only behavioral log. Payload is the
// client body verbatim plus the resolved ip.
type Event struct {
	ID        string   `json:"id"`
	Event     string   `json:"event"`
	DeviceID  string   `json:"deviceId"`
	SessionID string   `json:"sessionId"`
	IsPWA     bool     `json:"isPWA"`
	Page      string   `json:"page"`
	Payload   Document `json:"payload"`
	UserAgent string   `json:"userAgent"`
	Screen    string   `json:"screen"`
	Lang      string   `json:"lang"`
	Referrer  string   `json:"referrer"`
	IP        string   `json:"ip"`
	Timestamp int64    `json:"timestamp"`
	CreatedAt int64    `json:"createdAt"`
}
