package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIdentityHash(t *testing.T) {
	a := IdentityHash(10, 1, 5)
	if len(a) != 12 {
		t.Errorf("len = %d, want 12", len(a))
	}
	if a != IdentityHash(10, 1, 5) {
		t.Error("hash not deterministic")
	}
	if a == IdentityHash(11, 1, 5) {
		t.Error("hash ignores interactions")
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "akira.json")
	st := testState(t)

	snap, err := WriteSnapshot(path, st)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if snap.Session.SaveCount != 1 {
		t.Errorf("SaveCount = %d, want 1", snap.Session.SaveCount)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Error("first write should not create a backup")
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.Version != SnapshotVersion || got.Identity.Name != "Akira" {
		t.Errorf("snapshot = %s/%s", got.Version, got.Identity.Name)
	}
	back := got.State()
	if len(back.Memory.Records) != len(st.Memory.Records) || back.Interactions != 2 {
		t.Errorf("state = %d records, %d interactions", len(back.Memory.Records), back.Interactions)
	}
	if got.Identity.Hash != IdentityHash(2, 0, len(st.Memory.Records)) {
		t.Errorf("Hash = %q", got.Identity.Hash)
	}
}

func TestWriteSnapshotBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "akira.json")
	st := testState(t)

	if _, err := WriteSnapshot(path, st); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	st.Interactions = 3
	snap, err := WriteSnapshot(path, st)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Session.SaveCount != 2 {
		t.Errorf("SaveCount = %d, want 2", snap.Session.SaveCount)
	}
	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(bak) != string(first) {
		t.Error("backup does not match previous file")
	}
}

func TestReadSnapshotVersion(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"current", "1.0", false},
		{"minor bump", "1.3", false},
		{"unversioned", "", false},
		{"future major", "2.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			data, _ := json.Marshal(map[string]any{"version": tt.version})
			os.WriteFile(path, data, 0o644)

			_, err := ReadSnapshot(path)
			if tt.wantErr {
				if !errors.Is(err, ErrSnapshotVersion) {
					t.Errorf("err = %v, want ErrSnapshotVersion", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestReadSnapshotMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{"), 0o644)
	if _, err := ReadSnapshot(path); err == nil {
		t.Error("expected error")
	}
}
