package bootstrap

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("bootstrap:loader_test - write seed: %v", err)
	}
	return p
}

func TestLoadSeedConfig_ExplicitPath(t *testing.T) {
	p := writeSeed(t, `{
		"users": [{"username": "admin", "password": "admin123", "role": "admin"}, {"username": "guard", "password": "guard123"}],
		"employees": [{"name": "Nguyen Van A", "department": "Purchasing"}],
		"suppliers": [{"name": "Acme Logistics"}]
	}`)

	cfg, err := LoadSeedConfig(filepath.Join(t.TempDir(), "missing.json"), p)
	if err != nil {
		t.Fatalf("bootstrap:loader_test - LoadSeedConfig: %v", err)
	}
	if len(cfg.Users) != 2 || len(cfg.Employees) != 1 || len(cfg.Suppliers) != 1 {
		t.Fatalf("bootstrap:loader_test - unexpected counts: %+v", cfg)
	}
	if cfg.Users[1].Role != "staff" {
		t.Errorf("bootstrap:loader_test - default role = %q, want staff", cfg.Users[1].Role)
	}
	if cfg.Empty() {
		t.Error("bootstrap:loader_test - Empty() = true for populated seed")
	}
}

func TestLoadSeedConfig_NoFile(t *testing.T) {
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("bootstrap:loader_test - chdir: %v", err)
	}

	_, err := LoadSeedConfig(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNoSeedFile) {
		t.Errorf("bootstrap:loader_test - err = %v, want ErrNoSeedFile", err)
	}
}

func TestLoadSeedConfig_InvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", `{users:`, "parse"},
		{"user without password", `{"users":[{"username":"x"}]}`, "username and password"},
		{"bad role", `{"users":[{"username":"x","password":"y","role":"root"}]}`, "admin or staff"},
		{"employee without department", `{"employees":[{"name":"A"}]}`, "name and department"},
		{"supplier without name", `{"suppliers":[{}]}`, "name is required"},
		{"supplier name too long", `{"suppliers":[{"name":"` + strings.Repeat("x", MaxSupplierNameLen+1) + `"}]}`, "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSeedConfig(writeSeed(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("bootstrap:loader_test - err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSeedConfig_Empty(t *testing.T) {
	cfg := &SeedConfig{}
	if !cfg.Empty() {
		t.Error("bootstrap:loader_test - Empty() = false for zero seed")
	}
}
