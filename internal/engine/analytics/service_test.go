package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"pushr/internal/engine/events"
	"pushr/internal/engine/leads"
	"pushr/internal/engine/push"
	"pushr/internal/engine/registry"
	"pushr/internal/platform/config"
	"pushr/internal/platform/database"
	"pushr/internal/platform/models"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
)

type fixture struct {
	t      *testing.T
	db     *database.DB
	svc    *Service
	events *events.Repository
	leads  *leads.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{URL: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		t:      t,
		db:     db,
		svc:    svc,
		events: events.NewRepository(db),
		leads:  leads.NewRepository(db),
	}
}

func (f *fixture) event(name, device, ip string, at time.Time, payload models.Document) {
	f.t.Helper()
	if payload == nil {
		payload = models.Document{}
	}
	ev := &models.Event{
		ID:        uuid.New().String(),
		Event:     name,
		DeviceID:  device,
		SessionID: "s-" + device,
		Page:      payload.String("page"),
		Payload:   payload,
		UserAgent: payload.String("userAgent"),
		IP:        ip,
		Timestamp: at.UnixMilli(),
		CreatedAt: at.UnixMilli(),
	}
	if err := f.events.Insert(context.Background(), ev); err != nil {
		f.t.Fatalf("insert event: %v", err)
	}
}

func (f *fixture) lead(id, status, geo string, at time.Time) {
	f.t.Helper()
	_, err := f.leads.Insert(context.Background(), &models.Lead{
		LeadID:    id,
		Status:    status,
		Geo:       geo,
		CreatedAt: at.UnixMilli(),
	})
	if err != nil {
		f.t.Fatalf("insert lead: %v", err)
	}
}

func (f *fixture) report(period string) *Report {
	f.t.Helper()
	r, err := f.svc.Report(context.Background(), period)
	if err != nil {
		f.t.Fatalf("Report(%s) failed: %v", period, err)
	}
	return r
}

func TestReport_EmptyStores(t *testing.T) {
	f := newFixture(t)

	for _, period := range []string{"today", "yesterday", "7d", "30d", "month", "year", "all"} {
		r := f.report(period)
		if r.Overview != (Overview{}) {
			t.Errorf("%s: overview = %+v, want zeros", period, r.Overview)
		}
		for _, p := range r.Timeline {
			if p.Views+p.Installs+p.Leads+p.PWAOpens != 0 {
				t.Errorf("%s: non-empty bucket %+v", period, p)
			}
		}
	}

	if r := f.report("year"); len(r.Timeline) != 12 {
		t.Errorf("year timeline has %d buckets, want 12", len(r.Timeline))
	}
	if r := f.report("all"); r.DateFrom != nil || r.DateTo != nil {
		t.Error("all should report no date bounds")
	}
}

func TestReport_LeadTimelineOverSevenDays(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)

	f.lead("a", "new", "DE", base)
	f.lead("b", "new", "DE", base.AddDate(0, 0, 1))
	f.lead("c", "sold", "FR", base.AddDate(0, 0, 2))

	r := f.report("7d")
	if len(r.Timeline) != 7 {
		t.Fatalf("timeline has %d buckets, want 7", len(r.Timeline))
	}

	want := map[string]int{"2024-03-12": 1, "2024-03-13": 1, "2024-03-14": 1}
	sum := 0
	for _, p := range r.Timeline {
		sum += p.Leads
		if p.Leads != want[p.Date] {
			t.Errorf("bucket %s leads = %d, want %d", p.Date, p.Leads, want[p.Date])
		}
	}
	if sum != 3 {
		t.Errorf("timeline leads sum = %d, want 3", sum)
	}
	if r.Overview.TotalLeads != 3 {
		t.Errorf("TotalLeads = %d, want 3", r.Overview.TotalLeads)
	}
	if r.Geo["DE"] != 2 || r.Geo["FR"] != 1 {
		t.Errorf("geo = %v", r.Geo)
	}
}

func TestReport_TestLeadsExcluded(t *testing.T) {
	f := newFixture(t)
	now := fixedNow.Add(-time.Hour)

	f.lead("real", "new", "DE", now)
	f.lead("qa", models.LeadStatusTest, "DE", now)

	r := f.report("today")
	if r.Overview.TotalLeads != 1 {
		t.Errorf("TotalLeads = %d, want 1", r.Overview.TotalLeads)
	}
	if r.LeadStatuses["test"] != 1 || r.LeadStatuses["new"] != 1 {
		t.Errorf("status histogram should include test leads: %v", r.LeadStatuses)
	}
	if r.Geo["DE"] != 1 {
		t.Errorf("geo should skip test leads: %v", r.Geo)
	}
	if r.Timeline[0].Leads != 1 {
		t.Errorf("timeline leads = %d, want 1", r.Timeline[0].Leads)
	}
	for _, key := range []string{FunnelNameFilled, FunnelPhoneFilled, FunnelLeadComplete} {
		if r.Funnel[key] != 1 {
			t.Errorf("funnel[%s] = %d, want 1", key, r.Funnel[key])
		}
	}
}

func TestReport_RetroactiveBlacklistExclusion(t *testing.T) {
	f := newFixture(t)
	longAgo := fixedNow.AddDate(-1, 0, 0)
	recent := fixedNow.Add(-time.Hour)

	// d1 used the bad IP a year ago and a clean IP today
	f.event(models.EventPageView, "d1", "198.51.100.66", longAgo, nil)
	f.event(models.EventPageView, "d1", "203.0.113.1", recent, nil)
	f.event(models.EventPWAInstalled, "d1", "203.0.113.1", recent, nil)
	f.event(models.EventPageView, "d2", "203.0.113.2", recent, nil)

	if _, err := registry.NewBlacklist(f.db, 0).Add(context.Background(), "198.51.100.66", "fraud"); err != nil {
		t.Fatalf("blacklist add: %v", err)
	}

	r := f.report("today")
	if r.Overview.TotalVisitors != 1 {
		t.Errorf("TotalVisitors = %d, want 1", r.Overview.TotalVisitors)
	}
	if r.Overview.PageViews != 1 || r.Overview.PWAInstalls != 0 {
		t.Errorf("excluded device still counted: %+v", r.Overview)
	}
	if r.Timeline[0].Installs != 0 {
		t.Errorf("timeline installs = %d, want 0", r.Timeline[0].Installs)
	}

	all := f.report("all")
	if all.Overview.PageViews != 1 {
		t.Errorf("all-time PageViews = %d, want 1", all.Overview.PageViews)
	}
}

func TestReport_BlacklistedIPWithoutDevice(t *testing.T) {
	f := newFixture(t)
	recent := fixedNow.Add(-time.Hour)

	f.event(models.EventPageView, "", "198.51.100.7", recent, nil)
	f.event(models.EventPageView, "", "203.0.113.3", recent, nil)
	registry.NewBlacklist(f.db, 0).Add(context.Background(), "198.51.100.7", "")

	if r := f.report("today"); r.Overview.PageViews != 1 {
		t.Errorf("PageViews = %d, want 1", r.Overview.PageViews)
	}
}

func TestReport_OverviewFunnelAndHistograms(t *testing.T) {
	f := newFixture(t)
	at := fixedNow.Add(-2 * time.Hour)

	f.event(models.EventPageView, "d1", "", at, models.Document{"page": "/", "userAgent": iphoneUA})
	f.event(models.EventPageView, "d1", "", at, models.Document{"page": "/offer", "userAgent": iphoneUA})
	f.event(models.EventPageView, "d2", "", at, models.Document{"page": "/", "userAgent": androidUA})
	f.event(models.EventPageView, "d3", "", at, models.Document{"page": "/", "userAgent": desktopUA})
	f.event(models.EventInstallGateShown, "d1", "", at, nil)
	f.event(models.EventInstallGateShown, "d1", "", at, nil)
	f.event(models.EventInstallClick, "d1", "", at, nil)
	f.event(models.EventPWAOpen, "d2", "", at, nil)
	f.event(models.EventPageExit, "d1", "", at, models.Document{"timeSpent": 10})
	f.event(models.EventPageExit, "d2", "", at, models.Document{"timeSpent": 25})
	f.event(models.EventFunnelStep, "d1", "", at, models.Document{"step": "quiz_started"})
	f.event(models.EventFunnelStep, "d1", "", at, models.Document{"step": "quiz_started"})
	f.event(models.EventFunnelStep, "d2", "", at, models.Document{"step": "name_filled"})

	push.NewRepository(f.db).Upsert(context.Background(), &models.Subscription{Endpoint: "https://push.example/1"})

	r := f.report("today")

	o := r.Overview
	if o.TotalVisitors != 3 || o.TotalSessions != 3 {
		t.Errorf("visitors=%d sessions=%d, want 3/3", o.TotalVisitors, o.TotalSessions)
	}
	if o.PageViews != 4 || o.InstallGateShown != 2 || o.InstallClicks != 1 || o.PWAOpens != 1 {
		t.Errorf("event counts = %+v", o)
	}
	if o.AvgTimeSpent != 18 {
		t.Errorf("AvgTimeSpent = %d, want 18", o.AvgTimeSpent)
	}
	if o.Subscribers != 1 {
		t.Errorf("Subscribers = %d, want 1", o.Subscribers)
	}

	if r.Funnel[models.EventInstallGateShown] != 1 {
		t.Errorf("funnel gate = %d, want 1 distinct device", r.Funnel[models.EventInstallGateShown])
	}
	if r.Funnel["quiz_started"] != 1 {
		t.Errorf("funnel quiz_started = %d, want 1", r.Funnel["quiz_started"])
	}
	if r.Funnel[FunnelNameFilled] != 0 {
		t.Errorf("name_filled should follow the lead count, got %d", r.Funnel[FunnelNameFilled])
	}

	if r.Devices["iOS"] != 1 || r.Devices["Android"] != 1 || r.Devices["Desktop"] != 1 {
		t.Errorf("devices = %v", r.Devices)
	}
	if r.Pages["/"] != 3 || r.Pages["/offer"] != 1 {
		t.Errorf("pages = %v", r.Pages)
	}
	if r.Timeline[0].Views != 4 || r.Timeline[0].PWAOpens != 1 {
		t.Errorf("timeline = %+v", r.Timeline[0])
	}
}

func TestReport_MonthIsPreviousMonth(t *testing.T) {
	f := newFixture(t)

	f.event(models.EventPageView, "d1", "", time.Date(2024, time.February, 10, 8, 0, 0, 0, time.UTC), nil)
	f.event(models.EventPageView, "d2", "", time.Date(2024, time.March, 2, 8, 0, 0, 0, time.UTC), nil)

	r := f.report("month")
	if r.Overview.PageViews != 1 {
		t.Errorf("PageViews = %d, want 1", r.Overview.PageViews)
	}
	if len(r.Timeline) != 29 {
		t.Errorf("timeline = %d days, want 29", len(r.Timeline))
	}
}

func TestReport_YearBucketsByMonth(t *testing.T) {
	f := newFixture(t)

	f.event(models.EventPWAInstalled, "d1", "", time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), nil)
	f.event(models.EventPWAInstalled, "d2", "", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), nil)
	f.lead("x", "new", "", time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC))

	r := f.report("year")
	if len(r.Timeline) != 12 {
		t.Fatalf("timeline = %d buckets, want 12", len(r.Timeline))
	}
	if r.Timeline[0].Installs != 1 || r.Timeline[2].Installs != 1 || r.Timeline[1].Leads != 1 {
		t.Errorf("monthly buckets = %+v", r.Timeline[:3])
	}
}

func TestReport_UnknownPeriod(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Report(context.Background(), "decade"); err == nil {
		t.Error("expected error for unknown period")
	}
}
