// Package reply extracts structured data from free-form text generation output.
package reply

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/navihire/internal/utils"
	"go.uber.org/zap"
)

const (
	fence = "```"
	// The fixed cut assumes a "```json" opener.
	fencePrefixLen = len("```json")
	fenceSuffixLen = len(fence)

	defaultMaxLogLength = 200
)

type Parser struct {
	logger    *zap.Logger
	maxLogLen int
}

func NewParser(logger *zap.Logger, maxLogLength int) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Parser{logger: logger, maxLogLen: maxLogLength}
}

// Parse returns the JSON object embedded in raw. It never fails: malformed or
// missing objects produce an empty, non-nil map.
func (p *Parser) Parse(raw string) map[string]any {
	if p == nil {
		p = NewParser(nil, 0)
	}

	data, err := extract(raw)
	if err != nil {
		p.logger.Debug("structured reply not parsed",
			zap.Error(err),
			zap.Int("reply_length", utf8.RuneCountInString(raw)),
			zap.String("reply_preview", utils.TruncateForLog(raw, p.maxLogLen)),
		)
		return map[string]any{}
	}

	return data
}

// Decode parses raw and maps the result onto target, which must be a pointer
// to a struct with json tags. Absent keys leave the target fields untouched.
func (p *Parser) Decode(raw string, target any) error {
	return DecodeMap(p.Parse(raw), target)
}

// DecodeMap maps a loose JSON object onto target.
func DecodeMap(data map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("decode structured reply: %w", err)
	}

	return nil
}

func extract(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("empty reply")
	}

	if strings.HasPrefix(text, fence) {
		if len(text) < fencePrefixLen+fenceSuffixLen {
			return nil, fmt.Errorf("fenced reply too short")
		}
		text = text[fencePrefixLen : len(text)-fenceSuffixLen]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no json object found")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return nil, fmt.Errorf("unmarshal json object: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}

	return data, nil
}
