package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type GenerationMode string

const (
	ModeFull     GenerationMode = "full"
	ModeSections GenerationMode = "sections"
)

type StyleMode string

const (
	StyleAI       StyleMode = "ai"
	StyleStandard StyleMode = "standard"
)

// ParseStyleMode maps anything other than "standard" to the free AI tone.
func ParseStyleMode(s string) StyleMode {
	if strings.TrimSpace(s) == string(StyleStandard) {
		return StyleStandard
	}
	return StyleAI
}

// GenerationRequest is a validated body-generation request.
type GenerationRequest struct {
	Topic               string
	Outline             []string
	Mode                GenerationMode
	TargetWordCount     int
	TemplateName        string
	StyleMode           StyleMode
	CoreContent         string
	ReferenceText       string
	KnowledgeDatasetIDs []string
	// SectionIndex is set only for per-section requests.
	SectionIndex *int
}

// SectionTitle returns the outline entry being written, or "" in full mode.
func (r *GenerationRequest) SectionTitle() string {
	if r.SectionIndex == nil {
		return ""
	}
	i := *r.SectionIndex
	if i < 0 || i >= len(r.Outline) {
		return ""
	}
	return r.Outline[i]
}

// KnowledgeQuery is the text sent to the knowledge base for this request.
func (r *GenerationRequest) KnowledgeQuery() string {
	return strings.TrimSpace(r.Topic + " " + r.SectionTitle())
}

// BodyRequest is the wire body of POST /api/body and /api/body-section.
type BodyRequest struct {
	Outline             []string    `json:"outline"`
	Topic               string      `json:"topic"`
	WordCount           FlexibleInt `json:"wordCount"`
	ReportTemplate      string      `json:"reportTemplate,omitempty"`
	CoreContent         string      `json:"coreContent,omitempty"`
	StyleMode           string      `json:"styleMode,omitempty"`
	ReferenceText       string      `json:"referenceText,omitempty"`
	KnowledgeDatasetIDs StringList  `json:"knowledgeDatasetIds,omitempty"`
	SectionIndex        *int        `json:"sectionIndex,omitempty"`
	WordCountPerSection FlexibleInt `json:"wordCountPerSection,omitempty"`
}

// FlexibleInt accepts a JSON number or a numeric string. Fractions are floored.
type FlexibleInt int

func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*f = 0
			return nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %q is not a number", ErrInvalidParameter, raw)
	}
	*f = FlexibleInt(math.Floor(v))
	return nil
}

func (f FlexibleInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

// StringList accepts either a JSON array of strings or one comma-separated string.
// Blank entries and non-string array members are dropped.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = splitNonEmpty(strings.Split(s, ","))
		return nil
	}

	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: expected string or array of strings", ErrInvalidParameter)
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	*l = splitNonEmpty(values)
	return nil
}

func splitNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type OutlineRequest struct {
	Topic         string `json:"topic"`
	CoreContent   string `json:"coreContent,omitempty"`
	StyleMode     string `json:"styleMode,omitempty"`
	ReferenceText string `json:"referenceText,omitempty"`
}

type OutlineResponse struct {
	Outline []string `json:"outline"`
}

type TransformAction string

const (
	ActionPolish   TransformAction = "polish"
	ActionSimplify TransformAction = "simplify"
	ActionExpand   TransformAction = "expand"
)

// ParseTransformAction falls back to polish for unknown actions.
func ParseTransformAction(s string) TransformAction {
	switch TransformAction(strings.TrimSpace(s)) {
	case ActionSimplify:
		return ActionSimplify
	case ActionExpand:
		return ActionExpand
	default:
		return ActionPolish
	}
}

type TransformRequest struct {
	Text   string `json:"text"`
	Action string `json:"action,omitempty"`
}

type TransformResponse struct {
	Text string `json:"text"`
}

type ReferenceExtractResponse struct {
	ReferenceText string   `json:"referenceText"`
	Errors        []string `json:"errors"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
