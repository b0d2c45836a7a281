package audit

import "testing"

func TestRecordAndQuery(t *testing.T) {
	l := New(0)
	l.Record("read-file", "/tmp/sandbox/a.txt", true, "")
	l.Record("read-file", "/etc/hosts", false, "OutsideSandbox")
	l.Record("log", "hello", true, "")

	if got := l.CountByFunction("read-file"); got != 2 {
		t.Fatalf("CountByFunction = %d, want 2", got)
	}
	if got := l.DeniedCount(); got != 1 {
		t.Fatalf("DeniedCount = %d, want 1", got)
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
}

func TestBoundedCapacityDropsOldest(t *testing.T) {
	l := New(2)
	l.Record("a", "", true, "")
	l.Record("b", "", true, "")
	l.Record("c", "", true, "")

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Function != "b" || entries[1].Function != "c" {
		t.Fatalf("expected oldest entry dropped, got %+v", entries)
	}
}

func TestParamsSummaryTruncated(t *testing.T) {
	l := New(0)
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	e := l.Record("f", string(long), true, "")
	if len(e.ParamsSummary) != 80 {
		t.Fatalf("ParamsSummary len = %d, want 80", len(e.ParamsSummary))
	}
}

func TestTimestampsMonotonicallyNonDecreasing(t *testing.T) {
	l := New(0)
	l.Record("a", "", true, "")
	l.Record("b", "", true, "")
	entries := l.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.Before(entries[i-1].CreatedAt) {
			t.Fatalf("entry %d CreatedAt precedes entry %d", i, i-1)
		}
	}
}

func TestAuditEntryHasIDAndDeniedCarriesError(t *testing.T) {
	l := New(0)
	e := l.Record("get-env", "AWS_SECRET_ACCESS_KEY", false, "hardcoded deny list")
	if e.ID == "" {
		t.Fatal("expected non-empty entry ID")
	}
	if e.Permitted {
		t.Fatal("expected Permitted = false")
	}
	if e.Error == "" {
		t.Fatal("expected denial to carry an error string")
	}
}
