// Package resume turns uploaded resume files into plain text and basic fields.
package resume

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrUnsupportedFormat is returned for files the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported resume format")

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	educationKeywords     = []string{"education", "qualification", "degree", "university", "college"}
	educationStopKeywords = []string{"experience", "work", "employment"}

	experienceKeywords     = []string{"experience", "work", "employment", "career", "professional"}
	experienceStopKeywords = []string{"education", "skills", "projects"}

	commonSkills = []string{
		"python", "java", "javascript", "react", "node.js", "sql", "mongodb",
		"aws", "docker", "kubernetes", "git", "machine learning", "ai",
		"project management", "leadership", "communication", "teamwork",
	}
)

// Upload is a resume file as received from the user.
type Upload struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Empty reports whether no contact detail was found.
func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == ""
}

// Document is the keyword-level view of a resume.
type Document struct {
	Text       string   `json:"text"`
	Contact    Contact  `json:"contact_info"`
	Education  []string `json:"education"`
	Experience []string `json:"experience"`
	Skills     []string `json:"skills"`
}

type Extractor interface {
	Extract(ctx context.Context, upload Upload) (*Document, error)
}

// KeywordExtractor reads PDF, DOCX and plain-text resumes and pulls out
// sections by keyword.
type KeywordExtractor struct{}

func (KeywordExtractor) Extract(ctx context.Context, upload Upload) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := Text(upload)
	if err != nil {
		return nil, err
	}
	return Parse(text), nil
}

// Parse extracts contact details, sections and well-known skills from text.
func Parse(text string) *Document {
	return &Document{
		Text:       text,
		Contact:    extractContact(text),
		Education:  extractSection(text, educationKeywords, educationStopKeywords),
		Experience: extractSection(text, experienceKeywords, experienceStopKeywords),
		Skills:     extractSkills(text),
	}
}

func extractContact(text string) Contact {
	return Contact{
		Email: emailPattern.FindString(text),
		Phone: phonePattern.FindString(text),
	}
}

// extractSection collects lines from the first line mentioning a start
// keyword up to (not including) a later line mentioning a stop keyword.
func extractSection(text string, start, stop []string) []string {
	var (
		section strings.Builder
		inside  bool
	)

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if containsAny(lower, start) {
			inside = true
		} else if inside && containsAny(lower, stop) {
			break
		}

		if inside {
			section.WriteString(line)
			section.WriteString("\n")
		}
	}

	trimmed := strings.TrimSpace(section.String())
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}

func extractSkills(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, skill := range commonSkills {
		if strings.Contains(lower, skill) {
			found = append(found, skill)
		}
	}
	return found
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
