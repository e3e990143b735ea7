package eventlog

import (
	"bytes"
	"testing"
)

func TestKeyOrderingEntries(t *testing.T) {
	a := KeyLogEntry("ns", "topic", 1, 10)
	b := KeyLogEntry("ns", "topic", 1, 11)
	meta := KeyLogMeta("ns", "topic", 1)
	if !bytes.HasPrefix(a, meta[:len(meta)-len(metaSuffix)]) {
		t.Fatalf("entry key should share partition prefix with meta")
	}
	if bytes.Compare(a, b) >= 0 {
		t.Fatalf("expected seq 10 < seq 11")
	}
	if bytes.Compare(KeyLogEntry("ns", "topic", 1, 255), KeyLogEntry("ns", "topic", 1, 256)) >= 0 {
		t.Fatalf("big-endian sequence must sort numerically")
	}
}

func TestKeysArePartitionScoped(t *testing.T) {
	a := KeyLogEntry("ns", "totals", 0, 1)
	b := KeyLogEntry("ns", "totals", 1, 1)
	if bytes.Equal(a, b) {
		t.Fatalf("partitions must not share entry keys")
	}
	if !bytes.HasPrefix(a, []byte("ns/ns/log/totals/")) {
		t.Fatalf("unexpected layout: %q", a)
	}
}
