package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
)

// User-facing messages returned with 400 responses.
const (
	MsgEmptyBody      = "请求体为空"
	MsgInvalidJSON    = "请求体不是有效 JSON"
	MsgMissingBody    = "缺少报告主题或大纲"
	MsgMissingSection = "缺少报告主题、大纲或节序号"
	MsgSectionRange   = "节序号超出大纲范围"
	MsgInvalidWords   = "字数必须是数字"
	MsgMissingTopic   = "报告主题不能为空"
	MsgMissingText    = "未提供待处理文本"
	MsgInvalidFormat  = "不支持的导出格式"
	MsgMissingHTML    = "未提供导出内容"

	defaultDocTitle = "未命名文档"
)

// Validator turns wire requests into validated domain requests. Nothing it
// rejects ever reaches the model or the knowledge base.
type Validator struct {
	gen config.GenerationConfig
}

func New(gen config.GenerationConfig) *Validator {
	return &Validator{gen: gen}
}

// DecodeJSON unmarshals a raw request body into dst, rejecting empty and
// malformed bodies with distinct errors.
func DecodeJSON(raw []byte, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return entity.NewValidationError(entity.ErrEmptyBody, "body", MsgEmptyBody)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		if errors.Is(err, entity.ErrInvalidParameter) {
			return entity.NewValidationError(entity.ErrInvalidParameter, "wordCount", MsgInvalidWords)
		}
		return entity.NewValidationError(entity.ErrInvalidJSON, "body", MsgInvalidJSON)
	}
	return nil
}

// ValidateBody builds a full-mode generation request.
func (v *Validator) ValidateBody(req *entity.BodyRequest) (*entity.GenerationRequest, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" || len(req.Outline) == 0 {
		return nil, entity.NewValidationError(entity.ErrMissingField, "topic/outline", MsgMissingBody)
	}

	words := int(req.WordCount)
	if words <= 0 {
		words = v.gen.DefaultWordCount
	}

	return v.fill(req, topic, entity.ModeFull, words), nil
}

// ValidateSection builds a per-section generation request. The index must
// point into the outline.
func (v *Validator) ValidateSection(req *entity.BodyRequest) (*entity.GenerationRequest, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" || len(req.Outline) == 0 || req.SectionIndex == nil {
		return nil, entity.NewValidationError(entity.ErrMissingField, "topic/outline/sectionIndex", MsgMissingSection)
	}
	idx := *req.SectionIndex
	if idx < 0 || idx >= len(req.Outline) {
		return nil, entity.NewValidationError(
			entity.ErrInvalidParameter,
			"sectionIndex",
			fmt.Sprintf("%s: %d（共 %d 节）", MsgSectionRange, idx, len(req.Outline)),
		)
	}

	words := int(req.WordCountPerSection)
	if words <= 0 {
		words = v.gen.DefaultSectionWords
	}

	out := v.fill(req, topic, entity.ModeSections, words)
	out.SectionIndex = &idx
	return out, nil
}

func (v *Validator) fill(req *entity.BodyRequest, topic string, mode entity.GenerationMode, words int) *entity.GenerationRequest {
	template := strings.TrimSpace(req.ReportTemplate)
	if template == "" {
		template = v.gen.DefaultTemplate
	}

	return &entity.GenerationRequest{
		Topic:               topic,
		Outline:             req.Outline,
		Mode:                mode,
		TargetWordCount:     max(v.gen.MinWordCount, words),
		TemplateName:        template,
		StyleMode:           entity.ParseStyleMode(req.StyleMode),
		CoreContent:         strings.TrimSpace(req.CoreContent),
		ReferenceText:       strings.TrimSpace(req.ReferenceText),
		KnowledgeDatasetIDs: dedupe(req.KnowledgeDatasetIDs),
	}
}

func (v *Validator) ValidateOutline(req *entity.OutlineRequest) error {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return entity.NewValidationError(entity.ErrMissingField, "topic", MsgMissingTopic)
	}
	req.CoreContent = strings.TrimSpace(req.CoreContent)
	req.ReferenceText = strings.TrimSpace(req.ReferenceText)
	req.StyleMode = string(entity.ParseStyleMode(req.StyleMode))
	return nil
}

func (v *Validator) ValidateTransform(req *entity.TransformRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return entity.NewValidationError(entity.ErrMissingField, "text", MsgMissingText)
	}
	req.Action = string(entity.ParseTransformAction(req.Action))
	return nil
}

// ValidateExport checks the requested format and that there is something to
// export. An empty format means DOCX.
func (v *Validator) ValidateExport(format string, req *entity.ExportRequest) (entity.ResultFormat, error) {
	f := entity.ResultFormat(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = entity.FormatDOCX
	}
	if !f.IsValid() {
		return "", entity.NewValidationError(entity.ErrInvalidParameter, "format", MsgInvalidFormat)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return "", entity.NewValidationError(entity.ErrMissingField, "html", MsgMissingHTML)
	}
	return f, nil
}

// NormalizeSaveDocument trims the metadata fields; a blank title becomes a
// placeholder rather than an error.
func (v *Validator) NormalizeSaveDocument(req *entity.SaveDocumentRequest) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		req.Title = defaultDocTitle
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Outline == nil {
		req.Outline = []string{}
	}
	req.KnowledgeDatasetIDs = dedupe(req.KnowledgeDatasetIDs)
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
