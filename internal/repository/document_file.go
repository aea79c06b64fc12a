package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentRepository defines the interface for saved report persistence
type DocumentRepository interface {
	List(ctx context.Context, userID string) ([]entity.DocMeta, error)
	Get(ctx context.Context, userID, docID string) (*entity.Document, error)
	Save(ctx context.Context, userID, docID string, req entity.SaveDocumentRequest) (*entity.DocMeta, error)
}

var _ DocumentRepository = &DocumentFileStore{}

const (
	manifestName  = "manifest.json"
	docExtension  = ".md"
	fmDelimiter   = "---"
	untitledTitle = "未命名"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// DocumentFileStore keeps one directory per user under root. Each document is
// <id>.md: a frontmatter block of JSON-encoded values followed by the HTML
// body verbatim. manifest.json lists {id, title, updatedAt} for every document.
type DocumentFileStore struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewDocumentFileStore(cfg config.StorageConfig, logger *zap.Logger) *DocumentFileStore {
	return &DocumentFileStore{
		root:   cfg.DataRoot,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// SafeName strips everything outside [A-Za-z0-9_-].
func SafeName(s string) string {
	return unsafeNameChars.ReplaceAllString(s, "")
}

func (s *DocumentFileStore) userDir(userID string) (string, error) {
	safe := SafeName(userID)
	if safe == "" {
		return "", entity.NewValidationError(entity.ErrInvalidUserID, "userId", "用户 ID 无效")
	}
	return filepath.Join(s.root, safe), nil
}

func (s *DocumentFileStore) userLock(dir string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		s.locks[dir] = l
	}
	return l
}

// List returns the manifest newest first. A user with no documents gets an
// empty list.
func (s *DocumentFileStore) List(ctx context.Context, userID string) ([]entity.DocMeta, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}

	l := s.userLock(dir)
	l.Lock()
	defer l.Unlock()

	list, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	sortByUpdated(list)
	return list, nil
}

func (s *DocumentFileStore) Get(ctx context.Context, userID, docID string) (*entity.Document, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}
	id := SafeName(docID)
	if id == "" || id != docID {
		return nil, entity.ErrDocumentNotFound
	}

	raw, err := os.ReadFile(filepath.Join(dir, id+docExtension))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("read document %s: %w", id, err)
	}

	doc := decodeDocument(string(raw))
	doc.ID = id
	return doc, nil
}

// Save creates a document when docID is empty and otherwise overwrites it.
// The manifest entry moves to the front.
func (s *DocumentFileStore) Save(ctx context.Context, userID, docID string, req entity.SaveDocumentRequest) (*entity.DocMeta, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}

	id := docID
	if id == "" {
		id = s.newID()
	} else if SafeName(id) != id {
		return nil, entity.NewValidationError(entity.ErrInvalidParameter, "docId", "文档 ID 无效")
	}

	l := s.userLock(dir)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create user directory: %w", err)
	}

	meta := entity.DocMeta{
		ID:        id,
		Title:     req.Title,
		UpdatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	doc := &entity.Document{
		DocMeta:             meta,
		Topic:               req.Topic,
		Outline:             req.Outline,
		Body:                req.Body,
		KnowledgeDatasetIDs: req.KnowledgeDatasetIDs,
	}
	if req.ReferenceText != nil {
		doc.ReferenceText = *req.ReferenceText
	}

	content, err := encodeDocument(doc)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(filepath.Join(dir, id+docExtension), []byte(content)); err != nil {
		return nil, fmt.Errorf("write document %s: %w", id, err)
	}

	list, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	list = slices.DeleteFunc(list, func(m entity.DocMeta) bool { return m.ID == id })
	list = append([]entity.DocMeta{meta}, list...)
	sortByUpdated(list)

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, manifestName), data); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	s.logger.Debug("document saved",
		zap.String("user_dir", filepath.Base(dir)),
		zap.String("doc_id", id),
		zap.Int("body_bytes", len(req.Body)),
	)
	return &meta, nil
}

func readManifest(dir string) ([]entity.DocMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []entity.DocMeta{}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var list []entity.DocMeta
	if err := json.Unmarshal(data, &list); err != nil {
		// A corrupt manifest is rebuilt on the next save.
		return []entity.DocMeta{}, nil
	}
	return list, nil
}

func sortByUpdated(list []entity.DocMeta) {
	slices.SortStableFunc(list, func(a, b entity.DocMeta) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// encodeDocument writes every frontmatter value as one line of JSON, so
// values never contain a raw newline and the closing delimiter is unambiguous.
func encodeDocument(doc *entity.Document) (string, error) {
	fields := []struct {
		key   string
		value any
		skip  bool
	}{
		{"title", doc.Title, false},
		{"topic", doc.Topic, false},
		{"outline", doc.Outline, false},
		{"updatedAt", doc.UpdatedAt.Format(time.RFC3339Nano), false},
		{"referenceText", doc.ReferenceText, doc.ReferenceText == ""},
		{"knowledgeDatasetIds", doc.KnowledgeDatasetIDs, len(doc.KnowledgeDatasetIDs) == 0},
	}

	var sb strings.Builder
	sb.WriteString(fmDelimiter + "\n")
	for _, f := range fields {
		if f.skip {
			continue
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", f.key, err)
		}
		sb.WriteString(f.key + ": ")
		sb.Write(v)
		sb.WriteByte('\n')
	}
	sb.WriteString(fmDelimiter + "\n\n")
	sb.WriteString(doc.Body)
	return sb.String(), nil
}

// decodeDocument also reads files whose scalar values were written unquoted.
func decodeDocument(raw string) *entity.Document {
	doc := &entity.Document{DocMeta: entity.DocMeta{Title: untitledTitle}, Outline: []string{}}

	meta, body, ok := splitFrontmatter(raw)
	if !ok {
		doc.Body = raw
		return doc
	}
	doc.Body = body

	for _, line := range strings.Split(meta, "\n") {
		key, value, found := strings.Cut(strings.TrimRight(line, "\r"), ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "title":
			if t := scalarValue(value); t != "" {
				doc.Title = t
			}
		case "topic":
			doc.Topic = scalarValue(value)
		case "referenceText":
			doc.ReferenceText = scalarValue(value)
		case "updatedAt":
			if t, err := time.Parse(time.RFC3339Nano, scalarValue(value)); err == nil {
				doc.UpdatedAt = t
			}
		case "outline":
			var outline []string
			if json.Unmarshal([]byte(value), &outline) == nil && outline != nil {
				doc.Outline = outline
			}
		case "knowledgeDatasetIds":
			var ids []string
			if json.Unmarshal([]byte(value), &ids) == nil && len(ids) > 0 {
				doc.KnowledgeDatasetIDs = ids
			}
		}
	}
	return doc
}

func splitFrontmatter(raw string) (meta, body string, ok bool) {
	raw = strings.TrimPrefix(raw, "\ufeff")
	rest, found := strings.CutPrefix(raw, fmDelimiter+"\n")
	if !found {
		rest, found = strings.CutPrefix(raw, fmDelimiter+"\r\n")
	}
	if !found {
		return "", "", false
	}

	end := strings.Index(rest, "\n"+fmDelimiter+"\n")
	if end < 0 {
		return "", "", false
	}
	meta = rest[:end]
	body = rest[end+len(fmDelimiter)+2:]
	body = strings.TrimPrefix(body, "\n")
	return meta, body, true
}

func scalarValue(v string) string {
	var s string
	if json.Unmarshal([]byte(v), &s) == nil {
		return s
	}
	return strings.Trim(v, `"'`)
}
