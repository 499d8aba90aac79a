package leads

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/config"
	"pushr/internal/platform/database"
	"pushr/internal/platform/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{URL: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T) (*Service, *Repository) {
	repo := NewRepository(setupTestDB(t))
	return NewService(repo, nil, time.Second), repo
}

func TestService_SubmitIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	total, err := svc.Submit(ctx, &models.Lead{LeadID: "L1", FirstName: "Ann", Phone: "123"}, Submission{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}

	total, err = svc.Submit(ctx, &models.Lead{LeadID: "L1", FirstName: "Bob", Phone: "999"}, Submission{})
	if err != nil {
		t.Fatalf("duplicate Submit failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total after duplicate = %d, want 1", total)
	}

	stored, err := repo.GetByID(ctx, "L1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.FirstName != "Ann" || stored.Phone != "123" {
		t.Errorf("first write should win, got %+v", stored)
	}
	if stored.Status != models.LeadStatusNew {
		t.Errorf("Status = %q, want new", stored.Status)
	}
}

func TestService_SubmitGeneratesID(t *testing.T) {
	svc, _ := newTestService(t)
	lead := &models.Lead{FirstName: "Ann"}

	if _, err := svc.Submit(context.Background(), lead, Submission{UserAgent: "UA"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(lead.LeadID) < len("lead_")+36 || lead.LeadID[:5] != "lead_" {
		t.Errorf("generated id = %q", lead.LeadID)
	}
	if lead.UserAgent != "UA" {
		t.Errorf("UserAgent = %q, want request header fallback", lead.UserAgent)
	}
}

func TestService_SubmitRejectsBadEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), &models.Lead{Email: "not-an-email"}, Submission{})
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_SetStatus(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	svc.Submit(ctx, &models.Lead{LeadID: "L1"}, Submission{})

	if err := svc.SetStatus(ctx, "L1", "test"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	stored, _ := repo.GetByID(ctx, "L1")
	if stored.Status != "test" {
		t.Errorf("Status = %q, want test", stored.Status)
	}
	if stored.StatusUpdatedAt == nil || *stored.StatusUpdatedAt != 1700000000000 {
		t.Errorf("StatusUpdatedAt = %v", stored.StatusUpdatedAt)
	}

	if err := svc.SetStatus(ctx, "missing", "sold"); !errors.IsNotFound(err) {
		t.Errorf("unknown lead: got %v, want not found", err)
	}
	if err := svc.SetStatus(ctx, "L1", "  "); !errors.IsValidation(err) {
		t.Errorf("empty status: got %v, want validation error", err)
	}
}

func TestService_ListFiltersNewestFirst(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	leads := []*models.Lead{
		{LeadID: "a", Buyer: "acme", Geo: "DE", Status: "new", CreatedAt: 1000},
		{LeadID: "b", Buyer: "acme", Geo: "FR", Status: "test", CreatedAt: 2000},
		{LeadID: "c", Buyer: "other", Geo: "DE", Status: "new", CreatedAt: 3000},
	}
	for _, l := range leads {
		if _, err := repo.Insert(ctx, l); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		filter   Filter
		wantIDs  []string
		filtered int
	}{
		{"all", Filter{}, []string{"c", "b", "a"}, 3},
		{"buyer", Filter{Buyer: "acme"}, []string{"b", "a"}, 2},
		{"geo and status", Filter{Geo: "DE", Status: "new"}, []string{"c", "a"}, 2},
		{"test leads listed", Filter{Status: "test"}, []string{"b"}, 1},
		{"limit", Filter{Limit: 1}, []string{"c"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if res.Total != 3 {
				t.Errorf("Total = %d, want 3", res.Total)
			}
			if res.Filtered != tt.filtered {
				t.Errorf("Filtered = %d, want %d", res.Filtered, tt.filtered)
			}
			if len(res.Leads) != len(tt.wantIDs) {
				t.Fatalf("got %d leads, want %d", len(res.Leads), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if res.Leads[i].LeadID != id {
					t.Errorf("Leads[%d] = %s, want %s", i, res.Leads[i].LeadID, id)
				}
			}
		})
	}
}

func TestFilterLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-1, DefaultListLimit},
		{10, 10},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		if got := (Filter{Limit: tt.in}).limit(); got != tt.want {
			t.Errorf("limit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestService_SubmitStorageFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectExec("INSERT INTO leads").WillReturnError(stderrors.New("connection refused"))

	svc := NewService(NewRepository(database.Wrap(sqlDB, database.DialectSQLite)), nil, time.Second)
	_, err = svc.Submit(context.Background(), &models.Lead{LeadID: "L1"}, Submission{})
	if err == nil {
		t.Fatal("expected storage error")
	}
	if errors.IsValidation(err) || errors.IsNotFound(err) {
		t.Errorf("storage failure misclassified: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
