package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/hsm/internal/config"
	"github.com/ehr/hsm/internal/domain/hospital"
	"github.com/ehr/hsm/internal/platform/db"
	"github.com/ehr/hsm/internal/platform/metrics"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:          "0",
		Env:           "test",
		StorageDriver: driver,
		DataDir:       dir,
		SQLitePath:    filepath.Join(dir, "hsm.db"),
		BoltPath:      filepath.Join(dir, "hsm.bolt"),
		DBMaxConns:    10,
		CORSOrigins:   []string{"*"},
		BodyLimit:     "1M",
	}
}

func TestOpenStorage_LocalDrivers(t *testing.T) {
	for _, driver := range []string{config.DriverFile, config.DriverSQLite, config.DriverBolt, config.DriverMemory} {
		t.Run(driver, func(t *testing.T) {
			cfg := testConfig(t, driver)
			st, err := openStorage(context.Background(), cfg)
			if err != nil {
				t.Fatalf("openStorage(%s): %v", driver, err)
			}
			defer st.Close()
			if st.pool != nil {
				t.Error("pool must only be set for postgres")
			}

			ctx := context.Background()
			if err := st.repo.Save(ctx, hospital.DefaultDoctors(), nil); err != nil {
				t.Fatalf("save: %v", err)
			}
			doctors, err := st.repo.LoadDoctors(ctx)
			if err != nil || len(doctors) != 3 {
				t.Errorf("expected 3 doctors back, got %d (%v)", len(doctors), err)
			}
		})
	}
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	if _, err := openStorage(context.Background(), testConfig(t, "mongo")); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestExportSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := hospital.NewMemoryRepository()

	snap, err := exportSnapshot(ctx, repo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Doctors == nil || snap.Patients == nil || len(snap.Doctors) != 0 {
		t.Errorf("expected empty collections before any save, got %+v", snap)
	}

	doctors := hospital.DefaultDoctors()
	doctors[0].Status = hospital.StatusAssigned
	repo.Save(ctx, doctors, []hospital.Patient{{ID: "P1", Doctor: "Dr. John Doe"}})

	snap, _ = exportSnapshot(ctx, repo)
	if snap.Doctors[0].Status != hospital.StatusAssigned {
		t.Error("export must show the stored status, not the startup reset")
	}
	if len(snap.Patients) != 1 {
		t.Errorf("expected 1 patient, got %d", len(snap.Patients))
	}
}

func TestExportCmd(t *testing.T) {
	dir := t.TempDir()
	repo, _ := hospital.NewFileRepository(dir)
	repo.Save(context.Background(), hospital.DefaultDoctors(), []hospital.Patient{
		{ID: "P1", Name: "Ann", Age: "54", Ailment: "cardiology", Doctor: "Dr. John Doe"},
	})

	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("DATA_DIR", dir)

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"export"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	var snap hospital.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("decode export: %v\n%s", err, out.String())
	}
	if len(snap.Doctors) != 3 || len(snap.Patients) != 1 || snap.Patients[0].ID != "P1" {
		t.Errorf("unexpected export: %+v", snap)
	}
	if !strings.Contains(out.String(), `"doctors": [`) {
		t.Errorf("expected indented output, got %s", out.String())
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "up"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printStatus(&out, []db.MigrationStatus{
		{Version: 1, Name: "001_hospital.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_next.sql"},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and two rows, got %q", out.String())
	}
	if !strings.Contains(lines[2], "applied") || !strings.Contains(lines[2], "2025-03-01 12:00:00") {
		t.Errorf("unexpected applied row %q", lines[2])
	}
	if !strings.Contains(lines[3], "pending") {
		t.Errorf("unexpected pending row %q", lines[3])
	}
}

func TestMigrationFS(t *testing.T) {
	if _, err := db.NewMigrator(nil, migrationFS("")).LoadMigrations(); err != nil {
		t.Errorf("embedded migrations: %v", err)
	}
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "005_extra.sql"), []byte("SELECT 1;"), 0o600)
	got, err := db.NewMigrator(nil, migrationFS(dir)).LoadMigrations()
	if err != nil || len(got) != 1 || got[0].Version != 5 {
		t.Errorf("expected 005_extra.sql from dir, got %+v (%v)", got, err)
	}
}

func newTestServer(t *testing.T) (http.Handler, *hospital.MemoryRepository) {
	t.Helper()
	cfg := testConfig(t, config.DriverMemory)
	repo := hospital.NewMemoryRepository()
	logger := zerolog.Nop()

	svc := hospital.NewService(hospital.Bootstrap(context.Background(), repo, logger), repo, logger)
	m := metrics.New()
	svc.SetObserver(m)

	e, err := newServer(cfg, logger, svc, m, nil)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e, repo
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"driver":"memory"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestServer_NoDBHealthWithoutPostgres(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_RegistrationFlow(t *testing.T) {
	srv, repo := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients",
		strings.NewReader(`{"id":"P1","name":"Ann","age":"54","ailment":"severe cardiology issue"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"outcome":"assigned"`) {
		t.Errorf("expected assigned, got %s", rec.Body.String())
	}

	saved, err := repo.LoadPatients(context.Background())
	if err != nil || len(saved) != 1 {
		t.Errorf("expected registration persisted, got %v (%v)", saved, err)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `hsm_patient_registrations_total{outcome="assigned"} 1`) {
		t.Errorf("expected registration counter in metrics")
	}
	if !strings.Contains(body, `hsm_doctors{status="Assigned"} 1`) {
		t.Errorf("expected assigned doctor gauge in metrics")
	}
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	cfg.BodyLimit = "16B"
	repo := hospital.NewMemoryRepository()
	svc := hospital.NewService(hospital.NewStore(nil, nil), repo, zerolog.Nop())
	e, err := newServer(cfg, zerolog.Nop(), svc, metrics.New(), nil)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors",
		strings.NewReader(`{"id":"D9","name":"Dr. Long Name","specialization":"Dermatology"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	prodLogger := newLogger("production", &buf)
	prodLogger.Info().Msg("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output in production, got %q", buf.String())
	}

	buf.Reset()
	devLogger := newLogger("development", &buf)
	devLogger.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected console output in development, got %q", buf.String())
	}
}
