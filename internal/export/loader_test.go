package export

import (
	"os"
	"path/filepath"
	"testing"
)

func writeShard(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write shard: %v", err)
	}
}

func TestLoadChannel_MergesAndSortsShards(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, "2023-01-02.json", `[
		{"ts": "200.000000", "user": "U2", "text": "second"},
		{"ts": "300.000000", "user": "U3", "text": "third"}
	]`)
	writeShard(t, dir, "2023-01-01.json", `[
		{"ts": "100.000000", "user": "U1", "text": "first", "subtype": "channel_join"}
	]`)

	msgs, err := LoadChannel(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].TS > msgs[i].TS {
			t.Fatalf("messages not sorted ascending: %v", msgs)
		}
	}
	if msgs[0].Text != "first" || msgs[0].Subtype != "channel_join" {
		t.Errorf("unexpected first message %+v", msgs[0])
	}
}

func TestLoadChannel_SkipsMalformedShardsAndMessages(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, "good.json", `[
		{"ts": "100.000000", "user": "U1", "text": "kept"},
		{"ts": "not-a-ts", "user": "U2", "text": "dropped"},
		{"user": "U3", "text": "no timestamp"}
	]`)
	writeShard(t, dir, "bad.json", `{not json`)

	msgs, err := LoadChannel(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Text != "kept" {
		t.Errorf("unexpected message %+v", msgs[0])
	}
}

func TestLoadChannel_EmptyDir(t *testing.T) {
	msgs, err := LoadChannel(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}
