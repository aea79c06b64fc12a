package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *DocumentFileStore {
	t.Helper()
	s := NewDocumentFileStore(config.StorageConfig{DataRoot: t.TempDir()}, zap.NewNop())

	clock := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ref := "第一行\n---\n\"引号\" 与冒号: 仍然保留"
	req := entity.SaveDocumentRequest{
		Title:               "2025年新能源: 形势分析",
		Topic:               "新能源",
		Outline:             []string{"一、概述", "二、现状: 数据", "三、\"建议\""},
		Body:                "\n<h2>一、概述</h2>\n---\n<p>正文</p>\n\n",
		ReferenceText:       &ref,
		KnowledgeDatasetIDs: entity.StringList{"ds-1", "ds-2"},
	}

	meta, err := s.Save(ctx, "user_01", "", req)
	require.NoError(t, err)
	require.NotEmpty(t, meta.ID)

	doc, err := s.Get(ctx, "user_01", meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, doc.ID)
	assert.Equal(t, req.Title, doc.Title)
	assert.Equal(t, req.Topic, doc.Topic)
	assert.Equal(t, req.Outline, doc.Outline)
	assert.Equal(t, req.Body, doc.Body)
	assert.Equal(t, ref, doc.ReferenceText)
	assert.Equal(t, []string{"ds-1", "ds-2"}, doc.KnowledgeDatasetIDs)
	assert.True(t, meta.UpdatedAt.Equal(doc.UpdatedAt))
}

func TestListNewestFirstAndUpdateMovesToFront(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "u", "", entity.SaveDocumentRequest{Title: "A", Outline: []string{}})
	require.NoError(t, err)
	second, err := s.Save(ctx, "u", "", entity.SaveDocumentRequest{Title: "B", Outline: []string{}})
	require.NoError(t, err)

	list, err := s.List(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = s.Save(ctx, "u", first.ID, entity.SaveDocumentRequest{Title: "A2", Outline: []string{}})
	require.NoError(t, err)

	list, err = s.List(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "A2", list[0].Title)
}

func TestUserIDSanitised(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta, err := s.Save(ctx, "../al ice!", "", entity.SaveDocumentRequest{Title: "x", Outline: []string{}})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(s.root, "alice", meta.ID+".md"))
	require.NoError(t, err)

	doc, err := s.Get(ctx, "alice", meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Title)

	_, err = s.List(ctx, "!!/..")
	assert.ErrorIs(t, err, entity.ErrInvalidUserID)
}

func TestGetMissingOrUnsafeID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "u", "nope")
	assert.ErrorIs(t, err, entity.ErrDocumentNotFound)

	_, err = s.Get(ctx, "u", "../manifest")
	assert.ErrorIs(t, err, entity.ErrDocumentNotFound)

	_, err = s.Save(ctx, "u", "../x", entity.SaveDocumentRequest{Title: "x"})
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestListEmptyUser(t *testing.T) {
	list, err := newTestStore(t).List(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDecodeDocumentUnquotedValues(t *testing.T) {
	raw := strings.Join([]string{
		"---",
		"title: 旧文档",
		"topic: 年度总结",
		`outline: ["一","二"]`,
		"updatedAt: 2024-12-01T10:00:00.000Z",
		"---",
		"",
		"<p>body</p>",
	}, "\n")

	doc := decodeDocument(raw)
	assert.Equal(t, "旧文档", doc.Title)
	assert.Equal(t, "年度总结", doc.Topic)
	assert.Equal(t, []string{"一", "二"}, doc.Outline)
	assert.Equal(t, "<p>body</p>", doc.Body)
	assert.Equal(t, 2024, doc.UpdatedAt.Year())
}

func TestDecodeDocumentWithoutFrontmatter(t *testing.T) {
	doc := decodeDocument("<p>plain</p>")
	assert.Equal(t, "未命名", doc.Title)
	assert.Equal(t, "<p>plain</p>", doc.Body)
	assert.Equal(t, []string{}, doc.Outline)
}
