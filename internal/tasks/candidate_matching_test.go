package tasks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spigell/navihire/internal/workflow"
)

func analyzedState(t *testing.T, skills ...string) *workflow.State {
	t.Helper()

	state := workflow.NewState("u1", "s1", "", "match candidates")
	state.JobDescription = map[string]any{"title": "Backend Engineer", "requirements": []string{"Go"}}

	result := ResumeAnalysisResult{}
	for _, s := range skills {
		result.AnalyzedResumes = append(result.AnalyzedResumes, AnalyzedResume{
			Filename: s + ".txt",
			Status:   workflow.StatusAnalyzed,
			Skills:   &SkillsAnalysis{TechnicalSkills: []string{s}},
			Score:    75,
		})
	}
	result.AnalyzedResumes = append(result.AnalyzedResumes, AnalyzedResume{Filename: "broken.txt", Status: workflow.StatusFailed, Error: "boom"})
	result.TotalProcessed = len(result.AnalyzedResumes)

	state.SetProgress(string(workflow.RouteResumeAnalysis), workflow.Progress{Status: workflow.StatusCompleted, Result: result})
	return state
}

func matchingGenerator() *scriptedGenerator {
	return &scriptedGenerator{replies: []scriptedReply{
		{contains: "alpha", reply: `{"match_score": 40, "reasoning": "partial", "gaps": ["Go"]}`},
		{contains: "beta", reply: "Here you go:\n{\"match_score\": \"90\", \"strengths\": [\"Go\"], \"recommendation\": \"Interview\"}"},
		{contains: "gamma", reply: "I cannot rate this candidate."},
	}}
}

func TestCandidateMatchingRanksAndIsolatesFailures(t *testing.T) {
	node := NewCandidateMatching(matchingGenerator(), nil, 0)
	state := analyzedState(t, "alpha", "beta", "gamma")

	if err := node.Process(context.Background(), state); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(state.CandidateMatches) != 3 {
		t.Fatalf("expected three matches, got %+v", state.CandidateMatches)
	}

	want := []struct {
		filename   string
		score      float64
		rank       int
		percentile float64
		failed     bool
	}{
		{"beta.txt", 90, 1, 100, false},
		{"alpha.txt", 40, 2, 66.7, false},
		{"gamma.txt", 0, 3, 33.3, true},
	}
	for i, w := range want {
		got := state.CandidateMatches[i]
		if got.Filename != w.filename || got.MatchScore != w.score || got.Rank != w.rank || got.Percentile != w.percentile {
			t.Fatalf("match %d = %+v, want %+v", i, got, w)
		}
		if (got.Error != "") != w.failed {
			t.Fatalf("match %d error = %q, want failed=%v", i, got.Error, w.failed)
		}
	}
	if state.CandidateMatches[0].Recommendation != "Interview" {
		t.Fatalf("expected recommendation to be kept, got %+v", state.CandidateMatches[0])
	}

	p, _ := state.Progress(node.Name())
	result, ok := p.Result.(CandidateMatchingResult)
	if p.Status != workflow.StatusCompleted || !ok {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if result.TotalMatches != 3 || len(result.TopCandidates) != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCandidateMatchingTopCandidatesCapped(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{{contains: "", reply: `{"match_score": 50}`}}}
	node := NewCandidateMatching(gen, nil, 0)
	state := analyzedState(t, "a", "b", "c", "d", "e")

	if err := node.Process(context.Background(), state); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	p, _ := state.Progress(node.Name())
	result := p.Result.(CandidateMatchingResult)
	if result.TotalMatches != 5 || len(result.TopCandidates) != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TopCandidates[0].Filename != "a.txt" || result.TopCandidates[2].Filename != "c.txt" {
		t.Fatalf("ties must keep encounter order, got %+v", result.TopCandidates)
	}
}

func TestCandidateMatchingFromStoredSession(t *testing.T) {
	data, err := json.Marshal(analyzedState(t, "alpha", "beta"))
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	var state workflow.State
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}

	node := NewCandidateMatching(matchingGenerator(), nil, 0)
	if err := node.Process(context.Background(), &state); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(state.CandidateMatches) != 2 || state.CandidateMatches[0].Filename != "beta.txt" {
		t.Fatalf("unexpected matches: %+v", state.CandidateMatches)
	}
}

func TestCandidateMatchingMissingData(t *testing.T) {
	tests := []struct {
		name  string
		state func() *workflow.State
	}{
		{
			name: "no job description",
			state: func() *workflow.State {
				s := analyzedState(t, "alpha")
				s.JobDescription = nil
				return s
			},
		},
		{
			name: "no analysis",
			state: func() *workflow.State {
				s := workflow.NewState("u1", "s1", "", "match")
				s.JobDescription = map[string]any{"title": "Engineer"}
				return s
			},
		},
		{
			name: "only failed resumes",
			state: func() *workflow.State {
				return analyzedState(t)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := matchingGenerator()
			node := NewCandidateMatching(gen, nil, 0)
			state := tt.state()
			if err := node.Process(context.Background(), state); err != nil {
				t.Fatalf("Process returned error: %v", err)
			}
			p, _ := state.Progress(node.Name())
			if p.Status != workflow.StatusMissingData || p.Message != "Need job description and analyzed resumes for matching" {
				t.Fatalf("unexpected progress: %+v", p)
			}
			if len(gen.prompts) != 0 {
				t.Fatalf("expected no generator calls, got %d", len(gen.prompts))
			}
		})
	}
}

func TestRankMatches(t *testing.T) {
	matches := []workflow.CandidateMatch{
		{Filename: "a", MatchScore: 40},
		{Filename: "b", MatchScore: 90},
		{Filename: "c", MatchScore: 90},
		{Filename: "d", MatchScore: 10},
	}
	RankMatches(matches)

	want := []struct {
		filename   string
		rank       int
		percentile float64
	}{
		{"b", 1, 100},
		{"c", 2, 75},
		{"a", 3, 50},
		{"d", 4, 25},
	}
	for i, w := range want {
		if matches[i].Filename != w.filename || matches[i].Rank != w.rank || matches[i].Percentile != w.percentile {
			t.Fatalf("match %d = %+v, want %+v", i, matches[i], w)
		}
	}
}
