package audit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// storageFactories returns every backend under test. The cgo driver is
// skipped when the binary was built without cgo.
func storageFactories(t *testing.T) map[string]func(t *testing.T) Storage {
	return map[string]func(t *testing.T) Storage{
		"memory": func(t *testing.T) Storage {
			return NewMemoryStorage()
		},
		"sqlite-purego": func(t *testing.T) Storage {
			return openSQLite(t, DriverPureGo)
		},
		"sqlite-cgo": func(t *testing.T) Storage {
			return openSQLite(t, DriverCGO)
		},
	}
}

func openSQLite(t *testing.T, driver string) Storage {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")
	cfg.Driver = driver

	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "cgo") {
			t.Skipf("driver %s unavailable: %v", driver, err)
		}
		t.Fatalf("NewSQLiteStorage(%s) failed: %v", driver, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEvents(t *testing.T, s Storage, base time.Time) {
	t.Helper()
	events := []Event{
		{ID: "e1", Timestamp: base.Add(-72 * time.Hour), ReasonCode: "denied_identifier", Severity: SeverityCritical, Stage: "gate", Position: 0, SourcePreview: "eval(1)"},
		{ID: "e2", Timestamp: base.Add(-2 * time.Hour), ReasonCode: "assignment", Severity: SeverityHigh, Stage: "gate", Position: 2, SourcePreview: "x = 1"},
		{ID: "e3", Timestamp: base.Add(-1 * time.Hour), ReasonCode: "input_too_long", Severity: SeverityMedium, Stage: "gate", Position: 500, SourcePreview: "1+1+1..."},
		{ID: "e4", Timestamp: base, ReasonCode: "malformed_expression", Severity: SeverityLow, Stage: "structure", Position: 3, SourcePreview: "(1 +"},
	}
	for i := range events {
		if err := s.Store(context.Background(), &events[i]); err != nil {
			t.Fatalf("Store(%s) failed: %v", events[i].ID, err)
		}
	}
}

func ids(events []*Event) string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return strings.Join(out, ",")
}

func TestStorage_QueryOrderAndFilters(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Millisecond)
	since := base.Add(-3 * time.Hour)

	tests := []struct {
		name  string
		query *Query
		want  string
	}{
		{"all newest first", nil, "e4,e3,e2,e1"},
		{"empty query", &Query{}, "e4,e3,e2,e1"},
		{"since", &Query{Since: &since}, "e4,e3,e2"},
		{"reason code", &Query{ReasonCode: "assignment"}, "e2"},
		{"min severity high", &Query{MinSeverity: SeverityHigh}, "e2,e1"},
		{"limit", &Query{Limit: 2}, "e4,e3"},
		{"offset", &Query{Offset: 3}, "e1"},
		{"limit and offset", &Query{Limit: 1, Offset: 1}, "e3"},
		{"offset past end", &Query{Offset: 10}, ""},
	}

	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			seedEvents(t, s, base)

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.Query(context.Background(), tt.query)
					if err != nil {
						t.Fatalf("Query() failed: %v", err)
					}
					if ids(got) != tt.want {
						t.Errorf("Query() = %q, want %q", ids(got), tt.want)
					}
				})
			}
		})
	}
}

func TestStorage_RoundTripFields(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	want := Event{
		ID:            "round-trip",
		Timestamp:     ts,
		ReasonCode:    "member_access",
		Severity:      SeverityHigh,
		Stage:         "gate",
		Position:      6,
		SourcePreview: "window.location",
		Message:       "member access is not allowed",
	}

	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			if err := s.Store(context.Background(), &want); err != nil {
				t.Fatalf("Store() failed: %v", err)
			}
			got, err := s.Query(context.Background(), nil)
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Query() returned %d events, want 1", len(got))
			}
			g := got[0]
			if !g.Timestamp.Equal(want.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", g.Timestamp, want.Timestamp)
			}
			g.Timestamp = want.Timestamp
			if *g != want {
				t.Errorf("event = %+v, want %+v", *g, want)
			}
		})
	}
}

func TestStorage_Count(t *testing.T) {
	base := time.Now().UTC()
	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			seedEvents(t, s, base)

			n, err := s.Count(context.Background(), nil)
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if n != 4 {
				t.Errorf("Count(nil) = %d, want 4", n)
			}

			n, err = s.Count(context.Background(), &Query{MinSeverity: SeverityMedium, Limit: 1})
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if n != 3 {
				t.Errorf("Count(min medium) = %d, want 3", n)
			}
		})
	}
}

func TestStorage_DeleteBeforeAndTrim(t *testing.T) {
	base := time.Now().UTC()
	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			seedEvents(t, s, base)
			ctx := context.Background()

			deleted, err := s.DeleteBefore(ctx, base.Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("DeleteBefore() failed: %v", err)
			}
			if deleted != 1 {
				t.Errorf("DeleteBefore() = %d, want 1", deleted)
			}

			deleted, err = s.Trim(ctx, 2)
			if err != nil {
				t.Fatalf("Trim() failed: %v", err)
			}
			if deleted != 1 {
				t.Errorf("Trim(2) = %d, want 1", deleted)
			}

			got, _ := s.Query(ctx, nil)
			if ids(got) != "e4,e3" {
				t.Errorf("remaining = %q, want %q", ids(got), "e4,e3")
			}

			deleted, err = s.Trim(ctx, 10)
			if err != nil {
				t.Fatalf("Trim() failed: %v", err)
			}
			if deleted != 0 {
				t.Errorf("Trim(10) = %d, want 0", deleted)
			}
		})
	}
}

func TestStorage_Closed(t *testing.T) {
	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			if err := s.Close(); err != nil {
				t.Fatalf("Close() failed: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("second Close() = %v, want nil", err)
			}

			err := s.Store(context.Background(), &Event{ID: "late"})
			if !errors.Is(err, ErrStorageClosed) {
				t.Errorf("Store() after Close = %v, want ErrStorageClosed", err)
			}
			if _, err := s.Query(context.Background(), nil); !errors.Is(err, ErrStorageClosed) {
				t.Errorf("Query() after Close = %v, want ErrStorageClosed", err)
			}
		})
	}
}

func TestNewSQLiteStorage_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *SQLiteConfig
	}{
		{"empty path", &SQLiteConfig{Driver: DriverPureGo}},
		{"unknown driver", &SQLiteConfig{Path: ":memory:", Driver: "postgres"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSQLiteStorage(tt.cfg); err == nil {
				t.Error("NewSQLiteStorage() error = nil, want error")
			}
		})
	}
}

func TestNewSQLiteStorage_InMemory(t *testing.T) {
	s, err := NewSQLiteStorage(&SQLiteConfig{Path: ":memory:", Driver: DriverPureGo})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	defer s.Close()

	if err := s.Store(context.Background(), &Event{ID: "m1", Timestamp: time.Now(), Severity: SeverityLow}); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	n, err := s.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestNewSQLiteStorage_ReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	cfg := &SQLiteConfig{Path: path, Driver: DriverPureGo, WALMode: true}

	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	if err := s.Store(context.Background(), &Event{ID: "persisted", Timestamp: time.Now(), Severity: SeverityHigh}); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStorage(&SQLiteConfig{Path: path, Driver: DriverPureGo})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if ids(got) != "persisted" {
		t.Errorf("Query() = %q, want %q", ids(got), "persisted")
	}
}

func TestQuery_Matches(t *testing.T) {
	now := time.Now()
	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)
	e := &Event{Timestamp: now, ReasonCode: "assignment", Severity: SeverityHigh}

	tests := []struct {
		name  string
		query *Query
		want  bool
	}{
		{"nil query", nil, true},
		{"until before event", &Query{Until: &before}, false},
		{"since after event", &Query{Since: &after}, false},
		{"window", &Query{Since: &before, Until: &after}, true},
		{"severity above", &Query{MinSeverity: SeverityCritical}, false},
		{"severity equal", &Query{MinSeverity: SeverityHigh}, true},
		{"reason mismatch", &Query{ReasonCode: "block"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(e); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMultiSink(t *testing.T) {
	var a, b []string
	sink := MultiSink{
		SinkFunc(func(e Event) { a = append(a, e.ID) }),
		nil,
		NopSink{},
		SinkFunc(func(e Event) { b = append(b, e.ID) }),
	}
	sink.Record(Event{ID: "x"})

	if len(a) != 1 || len(b) != 1 {
		t.Errorf("MultiSink delivered a=%v b=%v, want one event each", a, b)
	}
}
