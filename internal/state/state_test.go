package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_MissingFileIsFresh(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if p := s.Prefs(); p.APIKey != "" || p.LastSymbol != "" {
		t.Fatalf("fresh store not empty: %+v", p)
	}
}

func TestRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetAPIKey("secret"); err != nil {
		t.Fatalf("set key: %v", err)
	}
	if err := s.SetLastSymbol("AAPL"); err != nil {
		t.Fatalf("set symbol: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	p := reopened.Prefs()
	if p.APIKey != "secret" || p.LastSymbol != "AAPL" {
		t.Fatalf("roundtrip lost data: %+v", p)
	}
}

func TestSave_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetLastSymbol("MSFT"); err != nil {
		t.Fatalf("save into missing dirs: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not written: %v", err)
	}
}

func TestSave_FileModeKeepsCredentialPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetAPIKey("secret"); err != nil {
		t.Fatalf("set key: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("want 0600, got %o", perm)
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("want parse error for corrupt file")
	}
}

func TestDefaultPath(t *testing.T) {
	if DefaultPath() == "" {
		t.Fatalf("empty default path")
	}
}
