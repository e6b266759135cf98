package tasks

import (
	"context"
	"fmt"
	"math"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/reply"
	"github.com/spigell/navihire/internal/resume"
	"github.com/spigell/navihire/internal/utils"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

const (
	scoreContact    = 20
	scoreSkills     = 30
	scoreEducation  = 25
	scoreExperience = 25
	maxResumeScore  = 100

	skillsPrompt = `Extract and categorize skills from this resume:
{{TEXT}}

Return JSON format:
{
  "technical_skills": [],
  "soft_skills": [],
  "programming_languages": [],
  "tools_technologies": [],
  "certifications": []
}`

	experiencePrompt = `Analyze work experience from this resume:
{{TEXT}}

Return JSON format:
{
  "total_years": 0,
  "industries": [],
  "leadership_experience": false,
  "key_achievements": []
}`
)

type SkillsAnalysis struct {
	TechnicalSkills      []string `json:"technical_skills,omitempty"`
	SoftSkills           []string `json:"soft_skills,omitempty"`
	ProgrammingLanguages []string `json:"programming_languages,omitempty"`
	ToolsTechnologies    []string `json:"tools_technologies,omitempty"`
	Certifications       []string `json:"certifications,omitempty"`
}

type ExperienceAnalysis struct {
	TotalYears   float64  `json:"total_years"`
	Industries   []string `json:"industries,omitempty"`
	Leadership   bool     `json:"leadership_experience"`
	Achievements []string `json:"key_achievements,omitempty"`
}

type AnalyzedResume struct {
	Filename   string              `json:"filename"`
	Status     workflow.Status     `json:"status"`
	Document   *resume.Document    `json:"parsed_data,omitempty"`
	Skills     *SkillsAnalysis     `json:"skills,omitempty"`
	Experience *ExperienceAnalysis `json:"experience,omitempty"`
	Score      float64             `json:"score"`
	Error      string              `json:"error,omitempty"`
}

type ResumeAnalysisResult struct {
	AnalyzedResumes []AnalyzedResume `json:"analyzed_resumes"`
	TotalProcessed  int              `json:"total_processed"`
}

// Analyzed returns the entries that were processed successfully.
func (r ResumeAnalysisResult) Analyzed() []AnalyzedResume {
	var out []AnalyzedResume
	for _, a := range r.AnalyzedResumes {
		if a.Status == workflow.StatusAnalyzed {
			out = append(out, a)
		}
	}
	return out
}

// ResumeAnalysis extracts and scores every uploaded resume.
type ResumeAnalysis struct {
	llm
	extractor resume.Extractor
}

func NewResumeAnalysis(generator ai.Generator, extractor resume.Extractor, logger *zap.Logger, maxLogLength int) *ResumeAnalysis {
	if extractor == nil {
		extractor = resume.KeywordExtractor{}
	}
	return &ResumeAnalysis{
		llm:       newLLM(generator, logger, maxLogLength),
		extractor: extractor,
	}
}

func (n *ResumeAnalysis) Name() string { return string(workflow.RouteResumeAnalysis) }

func (n *ResumeAnalysis) Process(ctx context.Context, state *workflow.State) error {
	if len(state.UploadedResumes) == 0 {
		state.SetProgress(n.Name(), workflow.Progress{
			Status:  workflow.StatusNoResumes,
			Message: "Please upload resumes to analyze",
		})
		return nil
	}

	result := ResumeAnalysisResult{AnalyzedResumes: make([]AnalyzedResume, 0, len(state.UploadedResumes))}
	for _, upload := range state.UploadedResumes {
		analyzed, err := n.analyze(ctx, upload)
		if err != nil {
			n.logger.Warn("resume analysis failed", zap.String("filename", upload.Filename), zap.Error(err))
			analyzed = AnalyzedResume{
				Filename: upload.Filename,
				Status:   workflow.StatusFailed,
				Error:    err.Error(),
			}
		}
		result.AnalyzedResumes = append(result.AnalyzedResumes, analyzed)
	}
	result.TotalProcessed = len(result.AnalyzedResumes)

	state.SetProgress(n.Name(), workflow.Progress{Status: workflow.StatusCompleted, Result: result})
	return nil
}

func (n *ResumeAnalysis) analyze(ctx context.Context, upload resume.Upload) (AnalyzedResume, error) {
	doc, err := n.extractor.Extract(ctx, upload)
	if err != nil {
		return AnalyzedResume{}, fmt.Errorf("extract text: %w", err)
	}

	text := utils.Head(doc.Text, promptTextLimit)

	var skills SkillsAnalysis
	if err := n.decode(ctx, "skills extraction", fill(skillsPrompt, map[string]string{"TEXT": text}), &skills); err != nil {
		return AnalyzedResume{}, err
	}

	experience, err := n.experience(ctx, text)
	if err != nil {
		return AnalyzedResume{}, err
	}

	return AnalyzedResume{
		Filename:   upload.Filename,
		Status:     workflow.StatusAnalyzed,
		Document:   doc,
		Skills:     &skills,
		Experience: experience,
		Score:      scoreResume(doc, &skills),
	}, nil
}

func (n *ResumeAnalysis) experience(ctx context.Context, text string) (*ExperienceAnalysis, error) {
	data, err := n.structured(ctx, "experience analysis", fill(experiencePrompt, map[string]string{"TEXT": text}))
	if err != nil {
		return nil, err
	}

	// Models answer the leadership flag with "yes"/"no" as often as with booleans.
	var experience ExperienceAnalysis
	experience.Leadership, _ = reply.Bool(data, "leadership_experience")
	delete(data, "leadership_experience")

	if err := reply.DecodeMap(data, &experience); err != nil {
		return nil, fmt.Errorf("experience analysis: %w", err)
	}
	return &experience, nil
}

// scoreResume awards fixed points for contact details, technical skills,
// education and experience. Only skills reported by the model count.
func scoreResume(doc *resume.Document, skills *SkillsAnalysis) float64 {
	var score float64
	if !doc.Contact.Empty() {
		score += scoreContact
	}
	if len(skills.TechnicalSkills) > 0 {
		score += scoreSkills
	}
	if len(doc.Education) > 0 {
		score += scoreEducation
	}
	if len(doc.Experience) > 0 {
		score += scoreExperience
	}
	return math.Min(score, maxResumeScore)
}
