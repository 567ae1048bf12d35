package enums

import "testing"

func TestParseProductType(t *testing.T) {
	for _, raw := range []string{"blanket", "mpack"} {
		got, err := ParseProductType(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if !got.IsValid() || got.String() != raw {
			t.Fatalf("round trip failed for %q", raw)
		}
	}
	if _, err := ParseProductType("sheet"); err == nil {
		t.Fatal("expected error for unknown product type")
	}
}

func TestParseSyncState(t *testing.T) {
	for _, raw := range []string{"local", "syncing", "synced", "error"} {
		got, err := ParseSyncState(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if !got.IsValid() {
			t.Fatalf("expected %q to be valid", raw)
		}
	}
	if SyncState("stale").IsValid() {
		t.Fatal("unknown state should be invalid")
	}
}
