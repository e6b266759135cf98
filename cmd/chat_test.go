package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/spigell/navihire/internal/workflow"
)

func TestParseTravel(t *testing.T) {
	tests := []struct {
		in      string
		want    workflow.TravelRequest
		wantErr bool
	}{
		{in: "Delhi:Mumbai", want: workflow.TravelRequest{Origin: "Delhi", Destination: "Mumbai"}},
		{in: "Delhi: Goa :2026-06-01", want: workflow.TravelRequest{Origin: "Delhi", Destination: "Goa", Date: "2026-06-01"}},
		{in: "Delhi", wantErr: true},
		{in: ":Mumbai", wantErr: true},
		{in: "a:b:c:d", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseTravel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseTravel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("parseTravel(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestReadJobDescription(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"job.json": `{"title": "Go Engineer", "requirements": ["Go", "Redis"]}`,
		"job.yaml": "title: Go Engineer\nrequirements:\n  - Go\n  - Redis\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}

		job, err := readJobDescription(path)
		if err != nil {
			t.Fatalf("readJobDescription(%s) error: %v", name, err)
		}
		if job["title"] != "Go Engineer" {
			t.Fatalf("unexpected title in %s: %v", name, job["title"])
		}
		if reqs, ok := job["requirements"].([]any); !ok || len(reqs) != 2 {
			t.Fatalf("unexpected requirements in %s: %#v", name, job["requirements"])
		}
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}
	if _, err := readJobDescription(empty); err == nil {
		t.Fatal("expected error for empty job description")
	}
}

func TestConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		t.Fatalf("unmarshal defaults: %v", err)
	}
	if err := config.validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}

	if config.AI.Provider != "gemini" || config.AI.Gemini.Model != "gemini-2.5-flash" || config.AI.RequestsPerSecond != 2 {
		t.Fatalf("unexpected ai defaults: %+v", config.AI)
	}
	if config.Session.Backend != "memory" || config.Session.Redis.Prefix != "navihire:session:" || config.Session.Redis.TTL.Hours() != 24 {
		t.Fatalf("unexpected session defaults: %+v", config.Session)
	}
	if config.Server.Address != ":8000" || config.Flights.Currency != "INR" {
		t.Fatalf("unexpected defaults: %+v %+v", config.Server, config.Flights)
	}
}
