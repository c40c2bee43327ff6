package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

const sampleConfig = `
database:
  url: postgres://bees@localhost/bees?sslmode=disable
source:
  token: secret
  max_history_limit: 5000
beep:
  token: beep-secret
  mappings:
    - entity_id: 30522
      hive_id: "4711"
      scale_key: ypx0zaf9wcfdsecm
      heart_key: f0bdcettzyyryegl
apiaries:
  - id: 1
    name: Rossstall
    hives: [30522, 30523]
hives:
  - id: 30522
    name: Rossstall 001
    apiary_id: 1
sensors:
  - id: 900
    name: Scale 900
    hive_id: 30522
    modules: [weight]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DSN() != "postgres://bees@localhost/bees?sslmode=disable" {
		t.Errorf("unexpected dsn %q", cfg.Database.DSN())
	}
	if cfg.Source.BaseURL != "https://main.beehivemonitoring.com" {
		t.Errorf("unexpected base url %q", cfg.Source.BaseURL)
	}
	if cfg.Source.Entity != models.EntityKindHives {
		t.Errorf("unexpected entity kind %q", cfg.Source.Entity)
	}
	if len(cfg.Source.Attributes) != len(models.Attributes) {
		t.Errorf("expected the full attribute vocabulary, got %d", len(cfg.Source.Attributes))
	}
	if cfg.Source.MaxHistoryLimit != 5000 {
		t.Errorf("max history limit = %d", cfg.Source.MaxHistoryLimit)
	}
	if cfg.Beep.Overlap != 15*time.Minute || cfg.Beep.DefaultLookback != 24*time.Hour {
		t.Errorf("unexpected beep windows %v %v", cfg.Beep.Overlap, cfg.Beep.DefaultLookback)
	}
	a, ok := cfg.ApiaryForHive(30523)
	if !ok || a.ID != 1 {
		t.Errorf("ApiaryForHive(30523) = %+v, %v", a, ok)
	}
	if _, ok := cfg.ApiaryForHive(1); ok {
		t.Error("hive 1 is not claimed by any apiary")
	}
	if s, ok := cfg.SensorByID(900); !ok || s.HiveID != 30522 {
		t.Errorf("SensorByID(900) = %+v, %v", s, ok)
	}
	if m, ok := cfg.MappingFor(30522); !ok || m.HeartKey != "f0bdcettzyyryegl" {
		t.Errorf("MappingFor(30522) = %+v, %v", m, ok)
	}
	if err := cfg.ValidateSync(); err != nil {
		t.Errorf("ValidateSync: %v", err)
	}
	if err := cfg.ValidateBeep(); err != nil {
		t.Errorf("ValidateBeep: %v", err)
	}
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://localhost/bees")
	t.Setenv("BEEHIVE_API_TOKEN", "token-from-env")
	t.Setenv("APIARIES", `[{"id": 3, "name": "Garten", "hives": [11, 12]}]`)

	cfg, err := Load(writeConfig(t, "source:\n  entity: hives\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "postgresql://localhost/bees" {
		t.Errorf("DATABASE_URL not honoured: %q", cfg.Database.URL)
	}
	if cfg.Source.Token != "token-from-env" {
		t.Errorf("BEEHIVE_API_TOKEN not honoured: %q", cfg.Source.Token)
	}
	if len(cfg.Apiaries) != 1 || cfg.Apiaries[0].Name != "Garten" || len(cfg.Apiaries[0].Hives) != 2 {
		t.Errorf("APIARIES not parsed: %+v", cfg.Apiaries)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"entity":    "source:\n  entity: gateways\n",
		"attribute": "source:\n  attributes: [weight, colour]\n",
		"lock":      "lock:\n  backend: etcd\n",
		"duplicate hive": `
apiaries:
  - {id: 1, name: A, hives: [5]}
  - {id: 2, name: B, hives: [5]}
`,
		"dangling hive": `
apiaries:
  - {id: 1, name: A}
hives:
  - {id: 5, name: H, apiary_id: 9}
`,
		"sensor in undeclared hive": `
apiaries:
  - {id: 1, name: A, hives: [5]}
sensors:
  - {id: 900, name: S, hive_id: 5}
`,
		"sensor in unknown hive": `
apiaries:
  - {id: 1, name: A}
sensors:
  - {id: 900, name: S, hive_id: 7}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if !errors.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoadAcceptsSensorInDeclaredHive(t *testing.T) {
	body := `
apiaries:
  - {id: 1, name: A, hives: [5]}
hives:
  - {id: 5, name: H, apiary_id: 1}
sensors:
  - {id: 900, name: S, hive_id: 5}
  - {id: 901, name: Spare}
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s, ok := cfg.SensorByID(901); !ok || s.HiveID != 0 {
		t.Errorf("SensorByID(901) = %+v, %v", s, ok)
	}
}

func TestValidateSyncRequiresToken(t *testing.T) {
	cfg, err := Load(writeConfig(t, "apiaries:\n  - {id: 1, name: A, hives: [2]}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Source.Token = ""
	if err := cfg.ValidateSync(); !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestValidateBeepRequiresDeviceKey(t *testing.T) {
	cfg := &Config{Beep: BeepConfig{
		BaseURL:  "https://api.beep.nl",
		Token:    "x",
		Mappings: []BeepMapping{{EntityID: 1}},
	}}
	if err := cfg.ValidateBeep(); !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestParseApiariesRejectsGarbage(t *testing.T) {
	if _, err := ParseApiaries("{not json"); !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
