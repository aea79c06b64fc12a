package validator

import (
	"errors"
	"testing"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		MinWordCount:        20,
		DefaultWordCount:    3000,
		DefaultSectionWords: 600,
		DefaultTemplate:     "公告模板",
	}
}

func validationReason(t *testing.T, err error) string {
	t.Helper()
	var vErr *entity.ValidationError
	require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
	return vErr.Reason
}

func TestDecodeJSON(t *testing.T) {
	var req entity.BodyRequest

	assert.Equal(t, MsgEmptyBody, validationReason(t, DecodeJSON([]byte("  \n"), &req)))
	assert.Equal(t, MsgInvalidJSON, validationReason(t, DecodeJSON([]byte("{topic:"), &req)))
	assert.Equal(t, MsgInvalidWords, validationReason(t, DecodeJSON([]byte(`{"wordCount":"三千"}`), &req)))

	require.NoError(t, DecodeJSON([]byte(`{"topic":"t","outline":["a"],"wordCount":"1500","knowledgeDatasetIds":"ds1, ds2,,"}`), &req))
	assert.Equal(t, entity.FlexibleInt(1500), req.WordCount)
	assert.Equal(t, entity.StringList{"ds1", "ds2"}, req.KnowledgeDatasetIDs)
}

func TestValidateBody(t *testing.T) {
	v := New(testGenerationConfig())

	t.Run("missing topic or outline", func(t *testing.T) {
		_, err := v.ValidateBody(&entity.BodyRequest{Topic: "  ", Outline: []string{"一"}})
		assert.Equal(t, MsgMissingBody, validationReason(t, err))

		_, err = v.ValidateBody(&entity.BodyRequest{Topic: "主题"})
		assert.Equal(t, MsgMissingBody, validationReason(t, err))
	})

	t.Run("defaults", func(t *testing.T) {
		got, err := v.ValidateBody(&entity.BodyRequest{
			Topic:               " 2025年新能源发展形势分析报告 ",
			Outline:             []string{"一、概述", "二、现状"},
			StyleMode:           "unknown",
			KnowledgeDatasetIDs: entity.StringList{"a", "b", "a"},
		})
		require.NoError(t, err)
		assert.Equal(t, "2025年新能源发展形势分析报告", got.Topic)
		assert.Equal(t, entity.ModeFull, got.Mode)
		assert.Equal(t, 3000, got.TargetWordCount)
		assert.Equal(t, "公告模板", got.TemplateName)
		assert.Equal(t, entity.StyleAI, got.StyleMode)
		assert.Equal(t, []string{"a", "b"}, got.KnowledgeDatasetIDs)
		assert.Nil(t, got.SectionIndex)
	})

	t.Run("word count floor", func(t *testing.T) {
		got, err := v.ValidateBody(&entity.BodyRequest{Topic: "t", Outline: []string{"a"}, WordCount: 5, StyleMode: "standard"})
		require.NoError(t, err)
		assert.Equal(t, 20, got.TargetWordCount)
		assert.Equal(t, entity.StyleStandard, got.StyleMode)
	})
}

func TestValidateSection(t *testing.T) {
	v := New(testGenerationConfig())
	outline := []string{"一、概述", "二、现状", "三、建议"}

	for _, idx := range []int{-1, 3, 10} {
		_, err := v.ValidateSection(&entity.BodyRequest{Topic: "t", Outline: outline, SectionIndex: &idx})
		var vErr *entity.ValidationError
		require.ErrorAs(t, err, &vErr, "index %d", idx)
		assert.ErrorIs(t, err, entity.ErrInvalidParameter)
		assert.Equal(t, "sectionIndex", vErr.Field)
	}

	_, err := v.ValidateSection(&entity.BodyRequest{Topic: "t", Outline: outline})
	assert.Equal(t, MsgMissingSection, validationReason(t, err))

	idx := 1
	got, err := v.ValidateSection(&entity.BodyRequest{Topic: "t", Outline: outline, SectionIndex: &idx})
	require.NoError(t, err)
	assert.Equal(t, entity.ModeSections, got.Mode)
	assert.Equal(t, 600, got.TargetWordCount)
	assert.Equal(t, "二、现状", got.SectionTitle())
	assert.Equal(t, "t 二、现状", got.KnowledgeQuery())

	got, err = v.ValidateSection(&entity.BodyRequest{Topic: "t", Outline: outline, SectionIndex: &idx, WordCountPerSection: 3})
	require.NoError(t, err)
	assert.Equal(t, 20, got.TargetWordCount)
}

func TestValidateExport(t *testing.T) {
	v := New(testGenerationConfig())

	f, err := v.ValidateExport("", &entity.ExportRequest{HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, entity.FormatDOCX, f)

	f, err = v.ValidateExport("PDF", &entity.ExportRequest{HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, entity.FormatPDF, f)

	_, err = v.ValidateExport("odt", &entity.ExportRequest{HTML: "<p>x</p>"})
	assert.Equal(t, MsgInvalidFormat, validationReason(t, err))

	_, err = v.ValidateExport("docx", &entity.ExportRequest{})
	assert.Equal(t, MsgMissingHTML, validationReason(t, err))
}

func TestNormalizeSaveDocument(t *testing.T) {
	v := New(testGenerationConfig())

	req := &entity.SaveDocumentRequest{Title: "  ", Topic: " 年度总结 ", KnowledgeDatasetIDs: entity.StringList{"x", "x"}}
	v.NormalizeSaveDocument(req)
	assert.Equal(t, "未命名文档", req.Title)
	assert.Equal(t, "年度总结", req.Topic)
	assert.Equal(t, []string{}, req.Outline)
	assert.Equal(t, entity.StringList{"x"}, req.KnowledgeDatasetIDs)
}

func TestValidateTransform(t *testing.T) {
	v := New(testGenerationConfig())

	req := &entity.TransformRequest{Text: "原文", Action: "shout"}
	require.NoError(t, v.ValidateTransform(req))
	assert.Equal(t, string(entity.ActionPolish), req.Action)

	assert.Equal(t, MsgMissingText, validationReason(t, v.ValidateTransform(&entity.TransformRequest{Text: " "})))
}
