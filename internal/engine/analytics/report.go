package analytics

import (
	"math"
	"time"

	"pushr/internal/pkg/parser"
	"pushr/internal/platform/models"
)

// Funnel keys overridden by the non-test lead count.
const (
	FunnelNameFilled   = "name_filled"
	FunnelPhoneFilled  = "phone_filled"
	FunnelLeadComplete = "lead_complete"
)

var funnelEvents = []string{
	models.EventInstallGateShown,
	models.EventInstallClick,
	models.EventPWAInstalled,
	models.EventPWAOpen,
	models.EventVideoPlay,
	models.EventVideoComplete,
}

type Overview struct {
	TotalVisitors    int `json:"totalVisitors"`
	TotalSessions    int `json:"totalSessions"`
	PageViews        int `json:"pageViews"`
	InstallGateShown int `json:"installGateShown"`
	InstallClicks    int `json:"installClicks"`
	PWAInstalls      int `json:"pwaInstalls"`
	PWAOpens         int `json:"pwaOpens"`
	PWAResumed       int `json:"pwaResumed"`
	VideoPlays       int `json:"videoPlays"`
	VideoCompletes   int `json:"videoCompletes"`
	AvgTimeSpent     int `json:"avgTimeSpent"`
	TotalLeads       int `json:"totalLeads"`
	Subscribers      int `json:"subscribers"`
}

type TimelinePoint struct {
	Date     string `json:"date"`
	Views    int    `json:"views"`
	Installs int    `json:"installs"`
	Leads    int    `json:"leads"`
	PWAOpens int    `json:"pwa_opens"`
}

type Report struct {
	Period       string          `json:"period"`
	DateFrom     *time.Time      `json:"dateFrom"`
	DateTo       *time.Time      `json:"dateTo"`
	Overview     Overview        `json:"overview"`
	Funnel       map[string]int  `json:"funnel"`
	LeadStatuses map[string]int  `json:"leadStatuses"`
	Geo          map[string]int  `json:"geo"`
	Devices      map[string]int  `json:"devices"`
	Pages        map[string]int  `json:"pages"`
	Timeline     []TimelinePoint `json:"timeline"`
}

type set map[string]struct{}

func (s set) add(k string) {
	if k != "" {
		s[k] = struct{}{}
	}
}

// accumulator folds streamed rows into a Report without holding them.
type accumulator struct {
	rng Range

	visitors     set
	sessions     set
	eventCounts  map[string]int
	funnel       map[string]set
	pageViewUAs  map[string]string
	pages        map[string]int
	timeSpentSum float64
	timeSpentN   int

	leadsTotal   int
	leadStatuses map[string]int
	geo          map[string]int

	timeline []TimelinePoint
}

func newAccumulator(rng Range) *accumulator {
	a := &accumulator{
		rng:          rng,
		visitors:     set{},
		sessions:     set{},
		eventCounts:  map[string]int{},
		funnel:       map[string]set{},
		pageViewUAs:  map[string]string{},
		pages:        map[string]int{},
		leadStatuses: map[string]int{},
		geo:          map[string]int{},
		timeline:     make([]TimelinePoint, len(rng.Timeline)),
	}
	for _, name := range funnelEvents {
		a.funnel[name] = set{}
	}
	for i, b := range rng.Timeline {
		a.timeline[i].Date = b.Key
	}
	return a
}

type eventRow struct {
	event     string
	deviceID  string
	sessionID string
	page      string
	payload   models.Document
	userAgent string
	timestamp int64
}

func (a *accumulator) addEvent(e eventRow) {
	if a.rng.Overview.Contains(e.timestamp) {
		a.addOverviewEvent(e)
	}

	if i := a.rng.BucketFor(e.timestamp); i >= 0 {
		switch e.event {
		case models.EventPageView:
			a.timeline[i].Views++
		case models.EventPWAInstalled:
			a.timeline[i].Installs++
		case models.EventPWAOpen:
			a.timeline[i].PWAOpens++
		}
	}
}

func (a *accumulator) addOverviewEvent(e eventRow) {
	a.visitors.add(e.deviceID)
	a.sessions.add(e.sessionID)
	a.eventCounts[e.event]++

	if devices, ok := a.funnel[e.event]; ok {
		devices.add(e.deviceID)
	}

	switch e.event {
	case models.EventPageView:
		a.pages[e.page]++
		if e.deviceID != "" {
			if _, seen := a.pageViewUAs[e.deviceID]; !seen {
				a.pageViewUAs[e.deviceID] = e.userAgent
			}
		}
	case models.EventPageExit:
		if v, ok := e.payload.Number("timeSpent"); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			a.timeSpentSum += v
			a.timeSpentN++
		}
	case models.EventFunnelStep:
		if step := e.payload.String("step"); step != "" {
			if a.funnel[step] == nil {
				a.funnel[step] = set{}
			}
			a.funnel[step].add(e.deviceID)
		}
	}
}

type leadRow struct {
	status    string
	geo       string
	createdAt int64
}

func (a *accumulator) addLead(l leadRow) {
	isTest := l.status == models.LeadStatusTest

	if a.rng.Overview.Contains(l.createdAt) {
		a.leadStatuses[l.status]++
		if !isTest {
			a.leadsTotal++
			a.geo[l.geo]++
		}
	}

	if isTest {
		return
	}
	if i := a.rng.BucketFor(l.createdAt); i >= 0 {
		a.timeline[i].Leads++
	}
}

func (a *accumulator) report(subscribers int) *Report {
	r := &Report{
		Period: a.rng.Period,
		Overview: Overview{
			TotalVisitors:    len(a.visitors),
			TotalSessions:    len(a.sessions),
			PageViews:        a.eventCounts[models.EventPageView],
			InstallGateShown: a.eventCounts[models.EventInstallGateShown],
			InstallClicks:    a.eventCounts[models.EventInstallClick],
			PWAInstalls:      a.eventCounts[models.EventPWAInstalled],
			PWAOpens:         a.eventCounts[models.EventPWAOpen],
			PWAResumed:       a.eventCounts[models.EventPWAResumed],
			VideoPlays:       a.eventCounts[models.EventVideoPlay],
			VideoCompletes:   a.eventCounts[models.EventVideoComplete],
			TotalLeads:       a.leadsTotal,
			Subscribers:      subscribers,
		},
		Funnel:       make(map[string]int, len(a.funnel)+3),
		LeadStatuses: a.leadStatuses,
		Geo:          a.geo,
		Devices:      map[string]int{},
		Pages:        a.pages,
		Timeline:     a.timeline,
	}

	if a.timeSpentN > 0 {
		r.Overview.AvgTimeSpent = int(math.Round(a.timeSpentSum / float64(a.timeSpentN)))
	}

	for step, devices := range a.funnel {
		r.Funnel[step] = len(devices)
	}
	// a submitted lead completes all three form steps at once
	r.Funnel[FunnelNameFilled] = a.leadsTotal
	r.Funnel[FunnelPhoneFilled] = a.leadsTotal
	r.Funnel[FunnelLeadComplete] = a.leadsTotal

	for _, ua := range a.pageViewUAs {
		r.Devices[parser.DeviceClass(ua)]++
	}

	if !a.rng.Overview.Unbounded() {
		from := time.UnixMilli(a.rng.Overview.From).UTC()
		to := time.UnixMilli(a.rng.Overview.To).UTC()
		r.DateFrom, r.DateTo = &from, &to
	}
	return r
}
