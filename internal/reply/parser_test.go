package reply

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseReturnsEmptyMapOnBadInput(t *testing.T) {
	p := NewParser(zap.NewNop(), 0)

	tests := map[string]string{
		"empty":            "",
		"whitespace":       "   \n\t ",
		"prose":            "I could not find any candidates for this role.",
		"bare fence":       "```\n{\"a\":1}\n```",
		"short fence":      "```",
		"truncated braces": "{\"a\": {\"b\": 1}",
		"missing close":    "result: {\"a\": 1",
		"reversed braces":  "} nothing here {",
		"invalid json":     "{not: json}",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			got := p.Parse(input)
			if got == nil {
				t.Fatalf("expected non-nil map")
			}
			if len(got) != 0 {
				t.Fatalf("expected empty map, got %#v", got)
			}
		})
	}
}

func TestParseExtractsObjectFromProse(t *testing.T) {
	p := NewParser(zap.NewNop(), 0)

	got := p.Parse(`Sure! Here is the analysis: {"match_score": 85, "strengths": ["go", "sql"], "recommendation": "hire"} Let me know.`)
	want := map[string]any{
		"match_score":    float64(85),
		"strengths":      []any{"go", "sql"},
		"recommendation": "hire",
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestParseJSONFence(t *testing.T) {
	p := NewParser(zap.NewNop(), 0)

	got := p.Parse("```json\n{\"total_years\": 4}\n```")
	if got["total_years"] != float64(4) {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestParseLogsFailureAtDebug(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	p := NewParser(zap.New(core), 10)

	p.Parse("no json in this rather long reply")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("expected debug level, got %s", entries[0].Level)
	}
	preview, _ := entries[0].ContextMap()["reply_preview"].(string)
	if preview != "no json in..." {
		t.Fatalf("unexpected preview: %q", preview)
	}
}

func TestNilParserStillParses(t *testing.T) {
	var p *Parser
	got := p.Parse(`{"ok": true}`)
	if got["ok"] != true {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestDecode(t *testing.T) {
	type experience struct {
		TotalYears   float64  `json:"total_years"`
		Industries   []string `json:"industries"`
		Leadership   bool     `json:"leadership_experience"`
		Achievements []string `json:"key_achievements"`
	}

	p := NewParser(zap.NewNop(), 0)

	var got experience
	if err := p.Decode(`{"total_years": "5", "industries": ["fintech"], "leadership_experience": true}`, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.TotalYears != 5 || !got.Leadership || len(got.Industries) != 1 {
		t.Fatalf("unexpected decode result: %+v", got)
	}
	if got.Achievements != nil {
		t.Fatalf("expected absent key to stay nil, got %v", got.Achievements)
	}

	var empty experience
	if err := p.Decode("garbage", &empty); err != nil {
		t.Fatalf("unexpected error for empty reply: %v", err)
	}
	if !reflect.DeepEqual(empty, experience{}) {
		t.Fatalf("expected zero value, got %+v", empty)
	}
}
