package metrics

import "testing"

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("js", "fs", "run-001")

	c.AddRecord(10)
	c.AddRecord(5)
	c.AddDroppedBytes(2)
	c.AddFrame(true, []string{"draw", "draw", "setCursor"})
	c.AddFrame(false, []string{"copy", "draw"})
	c.IncDiffErrors()
	c.AbsorbSampler(7, 2, 5)
	c.AbsorbPool(12, 3, 140)
	c.SetBytesOut(512)
	c.IncStoreWriteSuccess()
	c.IncStoreWriteFailure()
	c.IncAdapterPublish()
	c.IncAdapterFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"RecordsParsed", s.RecordsParsed, 2},
		{"BytesIn", s.BytesIn, 15},
		{"DroppedBytes", s.DroppedBytes, 2},
		{"Events", s.Events, 7},
		{"Samples", s.Samples, 2},
		{"Skipped", s.Skipped, 5},
		{"Frames", s.Frames, 2},
		{"Keyframes", s.Keyframes, 1},
		{"OpsByKind[draw]", s.OpsByKind["draw"], 3},
		{"OpsByKind[setCursor]", s.OpsByKind["setCursor"], 1},
		{"OpsByKind[copy]", s.OpsByKind["copy"], 1},
		{"DiffErrors", s.DiffErrors, 1},
		{"PoolCandidates", s.PoolCandidates, 12},
		{"PoolAccepted", s.PoolAccepted, 3},
		{"PoolSavedBytes", s.PoolSavedBytes, 140},
		{"BytesOut", s.BytesOut, 512},
		{"StoreWriteSuccess", s.StoreWriteSuccess, 1},
		{"StoreWriteFailure", s.StoreWriteFailure, 1},
		{"AdapterPublish", s.AdapterPublish, 1},
		{"AdapterFailure", s.AdapterFailure, 1},
	}
	for _, tt := range checks {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("msgpack", "s3", "run-42").Snapshot()

	if s.Format != "msgpack" {
		t.Errorf("Format = %q, want %q", s.Format, "msgpack")
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
	if s.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", s.RunID, "run-42")
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("js", "fs", "run-001")
	c.AddFrame(true, []string{"draw"})

	s1 := c.Snapshot()
	s1.OpsByKind["draw"] = 999
	c.AddFrame(false, []string{"draw"})

	if s1.Frames != 1 {
		t.Errorf("s1.Frames = %d, want 1 (snapshot should be frozen)", s1.Frames)
	}
	s2 := c.Snapshot()
	if s2.OpsByKind["draw"] != 2 {
		t.Errorf("OpsByKind[draw] = %d, want 2 (collector should be isolated from snapshot mutation)", s2.OpsByKind["draw"])
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.AddRecord(1)
	c.AddDroppedBytes(1)
	c.AddFrame(true, []string{"draw"})
	c.IncDiffErrors()
	c.AbsorbSampler(1, 1, 0)
	c.AbsorbPool(1, 1, 1)
	c.SetBytesOut(1)
	c.IncStoreWriteSuccess()
	c.IncStoreWriteFailure()
	c.IncAdapterPublish()
	c.IncAdapterFailure()

	s := c.Snapshot()
	if s.Frames != 0 {
		t.Errorf("nil collector snapshot Frames = %d, want 0", s.Frames)
	}
	if s.OpsByKind != nil {
		t.Errorf("nil collector snapshot OpsByKind should be nil, got %v", s.OpsByKind)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	s := NewCollector("js", "fs", "run-001").Snapshot()
	if s.RecordsParsed != 0 || s.Frames != 0 || s.BytesOut != 0 {
		t.Error("fresh collector should have zero counters")
	}
	if len(s.OpsByKind) != 0 {
		t.Errorf("fresh collector OpsByKind should be empty, got %v", s.OpsByKind)
	}
}
