package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/reply"
	"github.com/spigell/navihire/internal/utils"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

const (
	topCandidates = 3

	matchingPrompt = `Analyze the match between this candidate and job:

Job Description: {{JOB}}

Candidate Profile:
- Skills: {{SKILLS}}
- Experience: {{EXPERIENCE}}
- Score: {{SCORE}}

Rate the match on a scale of 0-100 and provide reasoning.

Return JSON:
{
  "match_score": 85,
  "reasoning": "Strong technical skills match...",
  "strengths": ["Python", "Machine Learning"],
  "gaps": ["Leadership experience"],
  "recommendation": "Strong candidate for interview"
}`
)

var errNoMatchScore = errors.New("reply did not include a match score")

type CandidateMatchingResult struct {
	TotalMatches  int                       `json:"total_matches"`
	TopCandidates []workflow.CandidateMatch `json:"top_candidates"`
}

// CandidateMatching scores analyzed resumes against the job description.
type CandidateMatching struct {
	llm
}

func NewCandidateMatching(generator ai.Generator, logger *zap.Logger, maxLogLength int) *CandidateMatching {
	return &CandidateMatching{llm: newLLM(generator, logger, maxLogLength)}
}

func (n *CandidateMatching) Name() string { return string(workflow.RouteCandidateMatching) }

func (n *CandidateMatching) Process(ctx context.Context, state *workflow.State) error {
	resumes := analyzedResumes(state)
	if len(state.JobDescription) == 0 || len(resumes) == 0 {
		state.SetProgress(n.Name(), workflow.Progress{
			Status:  workflow.StatusMissingData,
			Message: "Need job description and analyzed resumes for matching",
		})
		return nil
	}

	job := toJSON(state.JobDescription)
	matches := make([]workflow.CandidateMatch, 0, len(resumes))
	for _, r := range resumes {
		match, err := n.match(ctx, job, r)
		if err != nil {
			n.logger.Warn("candidate matching failed", zap.String("filename", r.Filename), zap.Error(err))
			match = workflow.CandidateMatch{Filename: r.Filename, MatchScore: 0, Error: err.Error()}
		}
		matches = append(matches, match)
	}

	RankMatches(matches)
	state.CandidateMatches = matches

	top := matches
	if len(top) > topCandidates {
		top = top[:topCandidates]
	}

	state.SetProgress(n.Name(), workflow.Progress{
		Status: workflow.StatusCompleted,
		Result: CandidateMatchingResult{
			TotalMatches:  len(matches),
			TopCandidates: append([]workflow.CandidateMatch(nil), top...),
		},
	})
	return nil
}

func (n *CandidateMatching) match(ctx context.Context, job string, r AnalyzedResume) (workflow.CandidateMatch, error) {
	prompt := fill(matchingPrompt, map[string]string{
		"JOB":        job,
		"SKILLS":     toJSON(r.Skills),
		"EXPERIENCE": toJSON(r.Experience),
		"SCORE":      fmt.Sprintf("%g", r.Score),
	})

	data, err := n.structured(ctx, "candidate matching", prompt)
	if err != nil {
		return workflow.CandidateMatch{}, err
	}

	score, ok := reply.Float(data, "match_score")
	if !ok {
		return workflow.CandidateMatch{}, errNoMatchScore
	}

	match := workflow.CandidateMatch{Filename: r.Filename, MatchScore: score}
	match.Reasoning, _ = reply.String(data, "reasoning")
	match.Strengths, _ = reply.Strings(data, "strengths")
	match.Gaps, _ = reply.Strings(data, "gaps")
	match.Recommendation, _ = reply.String(data, "recommendation")
	return match, nil
}

// RankMatches orders matches by score, highest first, keeping encounter order
// for ties, and assigns 1-based ranks and percentiles.
func RankMatches(matches []workflow.CandidateMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	total := float64(len(matches))
	for i := range matches {
		rank := i + 1
		matches[i].Rank = rank
		matches[i].Percentile = utils.Round1((total - float64(rank) + 1) / total * 100)
	}
}

// analyzedResumes reads the resume analysis entry, which may be the typed
// result of this run or a decoded map from a stored session.
func analyzedResumes(state *workflow.State) []AnalyzedResume {
	p, ok := state.Progress(string(workflow.RouteResumeAnalysis))
	if !ok || p.Status != workflow.StatusCompleted {
		return nil
	}

	switch result := p.Result.(type) {
	case ResumeAnalysisResult:
		return result.Analyzed()
	case *ResumeAnalysisResult:
		if result == nil {
			return nil
		}
		return result.Analyzed()
	case map[string]any:
		var decoded ResumeAnalysisResult
		if err := reply.DecodeMap(result, &decoded); err != nil {
			return nil
		}
		return decoded.Analyzed()
	default:
		return nil
	}
}
