package quota

import (
	"testing"

	"clipforge/internal/domain"
)

func TestApplyOptimisticThenRevertRestoresUsage(t *testing.T) {
	ledger := NewLedger()
	ledger.Reconcile("media_uploads_per_month", domain.UsageEntry{CurrentUsage: 5, Limit: 20, PlanName: "starter"})

	if !ledger.ApplyOptimistic("media_uploads_per_month", 1) {
		t.Fatalf("ApplyOptimistic should apply to a seeded metric")
	}
	entry, _ := ledger.Get("media_uploads_per_month")
	if entry.CurrentUsage != 6 {
		t.Fatalf("usage after optimistic apply = %d, want 6", entry.CurrentUsage)
	}
	if !entry.Provisional {
		t.Fatalf("entry should be marked provisional")
	}

	ledger.Revert("media_uploads_per_month", 1)
	entry, _ = ledger.Get("media_uploads_per_month")
	if entry.CurrentUsage != 5 {
		t.Fatalf("usage after revert = %d, want 5", entry.CurrentUsage)
	}
	if entry.Provisional {
		t.Fatalf("revert should clear the provisional marker")
	}
}

func TestReconcileIsAuthoritative(t *testing.T) {
	ledger := NewLedger()
	ledger.Reconcile("videos_per_month", domain.UsageEntry{CurrentUsage: 3, Limit: 10})
	ledger.ApplyOptimistic("videos_per_month", 1)

	// Server truth wins regardless of the outstanding optimistic value.
	ledger.Reconcile("videos_per_month", domain.UsageEntry{CurrentUsage: 7, Limit: 10})
	entry, _ := ledger.Get("videos_per_month")
	if entry.CurrentUsage != 7 {
		t.Fatalf("usage after reconcile = %d, want 7", entry.CurrentUsage)
	}
	if entry.Provisional {
		t.Fatalf("reconcile should clear the provisional marker")
	}

	ledger.Reconcile("videos_per_month", domain.UsageEntry{CurrentUsage: 7, Limit: 10})
	entry, _ = ledger.Get("videos_per_month")
	if entry.CurrentUsage != 7 {
		t.Fatalf("reconcile should be idempotent, usage = %d", entry.CurrentUsage)
	}
}

func TestApplyOptimisticRefusesStacking(t *testing.T) {
	ledger := NewLedger()
	ledger.Reconcile("videos_per_month", domain.UsageEntry{CurrentUsage: 3, Limit: 10})

	if !ledger.ApplyOptimistic("videos_per_month", 1) {
		t.Fatalf("first optimistic apply should succeed")
	}
	if ledger.ApplyOptimistic("videos_per_month", 1) {
		t.Fatalf("second optimistic apply should be refused while provisional")
	}
	entry, _ := ledger.Get("videos_per_month")
	if entry.CurrentUsage != 4 {
		t.Fatalf("usage = %d, want 4 (no stacked deltas)", entry.CurrentUsage)
	}
}

func TestApplyOptimisticNoopsOnUnseededMetric(t *testing.T) {
	ledger := NewLedger()
	if ledger.ApplyOptimistic("unknown_metric", 1) {
		t.Fatalf("ApplyOptimistic should no-op on an unseeded metric")
	}
	if _, ok := ledger.Get("unknown_metric"); ok {
		t.Fatalf("no entry should be created for an unseeded metric")
	}
}

func TestClampAtZero(t *testing.T) {
	ledger := NewLedger()
	ledger.Reconcile("videos_per_month", domain.UsageEntry{CurrentUsage: 0, Limit: 10})

	ledger.ApplyOptimistic("videos_per_month", -3)
	entry, _ := ledger.Get("videos_per_month")
	if entry.CurrentUsage != 0 {
		t.Fatalf("usage = %d, want clamp at 0", entry.CurrentUsage)
	}

	ledger.Revert("videos_per_month", 5)
	entry, _ = ledger.Get("videos_per_month")
	if entry.CurrentUsage != 0 {
		t.Fatalf("usage after revert = %d, want clamp at 0", entry.CurrentUsage)
	}
}

func TestListOrdersByMetric(t *testing.T) {
	ledger := NewLedger()
	ledger.Reconcile("videos_per_month", domain.UsageEntry{CurrentUsage: 1, Limit: 10})
	ledger.Reconcile("media_uploads_per_month", domain.UsageEntry{CurrentUsage: 2, Limit: 50})

	entries := ledger.List()
	if len(entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(entries))
	}
	if entries[0].MetricName != "media_uploads_per_month" || entries[1].MetricName != "videos_per_month" {
		t.Fatalf("entries out of order: %q, %q", entries[0].MetricName, entries[1].MetricName)
	}
}
