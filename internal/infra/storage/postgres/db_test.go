package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestConfig_Driver(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		want   string
	}{
		{"default", "", DriverPgx},
		{"pgx", "pgx", DriverPgx},
		{"lib/pq", "postgres", DriverPQ},
		{"unknown falls back", "mysql", DriverPgx},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Config{Driver: tt.driver}).driver(); got != tt.want {
				t.Errorf("driver() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(Config{URL: "postgres://localhost/fraudlens"}).Enabled() {
		t.Error("config with URL should be enabled")
	}
}

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}

	data, err := fs.ReadFile(migrationsFS, files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, table := range []string{"reports", "predictions", "abandoned_addresses"} {
		if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("migration missing table %s", table)
		}
	}
	if !strings.Contains(string(data), "-- +goose Down") {
		t.Error("migration missing down section")
	}
}
