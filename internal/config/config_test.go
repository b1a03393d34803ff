package config

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("org-1")
	if cfg.Org.ID != "org-1" {
		t.Fatalf("org id = %q", cfg.Org.ID)
	}
	if cfg.DefaultWeeklyHours() != 40 {
		t.Fatalf("weekly hours = %d", cfg.DefaultWeeklyHours())
	}
	if cfg.Snapshot.RefreshSeconds != 30 {
		t.Fatalf("refresh seconds = %d", cfg.Snapshot.RefreshSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	kind, ok := cfg.Categories.Catalog["general"]
	if !ok || kind.SelfAssigned {
		t.Fatalf("general catalog entry = %+v, ok=%v", kind, ok)
	}
}

func TestSelfAssignedKindsIncludeReserved(t *testing.T) {
	var cfg Config
	cfg.Org.ID = "org-1"
	cfg.Categories.Catalog = map[string]CategoryKind{
		"chores": {SelfAssigned: true},
		"build":  {SelfAssigned: false},
	}
	kinds := cfg.SelfAssignedKinds()
	for _, want := range []string{CategoryOperational, CategoryStrategic, "chores"} {
		if !kinds[want] {
			t.Fatalf("%s missing from %v", want, kinds)
		}
	}
	if kinds["build"] {
		t.Fatalf("build should not be self-assigned: %v", kinds)
	}
}

func TestDefaultWeeklyHoursFallback(t *testing.T) {
	var cfg Config
	if cfg.DefaultWeeklyHours() != 40 {
		t.Fatalf("fallback = %d", cfg.DefaultWeeklyHours())
	}
	cfg.Defaults.WeeklyHours = 32
	if cfg.DefaultWeeklyHours() != 32 {
		t.Fatalf("declared = %d", cfg.DefaultWeeklyHours())
	}
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
org:
  id: acme
  name: Acme Inc
defaults:
  weekly_hours: 36
categories:
  catalog:
    support:
      description: "Customer support rotation"
      self_assigned: true
webhooks:
  - url: https://example.com/hook
    events: [assignment.created]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Org.Name != "Acme Inc" || cfg.Defaults.WeeklyHours != 36 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].Events[0] != "assignment.created" {
		t.Fatalf("webhooks = %+v", cfg.Webhooks)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing org id",
			yaml: "defaults:\n  weekly_hours: 40\n",
			want: "org.id",
		},
		{
			name: "negative hours",
			yaml: "org:\n  id: x\ndefaults:\n  weekly_hours: -1\n",
			want: "weekly_hours",
		},
		{
			name: "reserved kind demoted",
			yaml: "org:\n  id: x\ncategories:\n  catalog:\n    operational:\n      self_assigned: false\n",
			want: "reserved",
		},
		{
			name: "webhook without url",
			yaml: "org:\n  id: x\nwebhooks:\n  - secret: s\n",
			want: "empty url",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}
