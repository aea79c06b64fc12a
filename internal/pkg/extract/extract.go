// Package extract pulls plain text out of uploaded reference files.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/unidoc/unioffice/document"
)

var allowedExtensions = map[string]bool{
	".txt":  true,
	".doc":  true,
	".docx": true,
}

// File is one uploaded reference document.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FromMultipart adapts form file headers.
func FromMultipart(headers []*multipart.FileHeader) []File {
	files := make([]File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, File{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

type Extractor struct {
	cfg config.FileUploadConfig
}

func NewExtractor(cfg config.FileUploadConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract concatenates the text of every readable file, in upload order, up
// to the character limit. Files that cannot be used are reported in Errors
// and skipped; extraction never fails as a whole.
func (e *Extractor) Extract(files []File) entity.ReferenceExtractResponse {
	res := entity.ReferenceExtractResponse{Errors: []string{}}
	if len(files) == 0 {
		return res
	}

	if len(files) > e.cfg.MaxFileCount {
		res.Errors = append(res.Errors, fmt.Sprintf("最多处理 %d 个文件，已忽略多余文件。", e.cfg.MaxFileCount))
		files = files[:e.cfg.MaxFileCount]
	}

	var (
		parts []string
		total int
	)
	for _, f := range files {
		text, err := e.extractFile(f)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		if text == "" {
			continue
		}

		remaining := e.cfg.MaxReferenceChars - total
		if remaining <= 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("已达引用资料长度上限，已截断: %s", f.Name))
			break
		}
		text = truncateRunes(text, remaining)
		parts = append(parts, text)
		total += utf8.RuneCountInString(text)
		if total >= e.cfg.MaxReferenceChars {
			break
		}
	}

	res.ReferenceText = strings.TrimSpace(strings.Join(parts, entity.KnowledgeSeparator))
	return res
}

func (e *Extractor) extractFile(f File) (string, error) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("不支持的文件类型: %s", ext)
	}
	if f.Size > e.cfg.MaxFileSize {
		return "", fmt.Errorf("文件过大: %s", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %s", f.Name)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, e.cfg.MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %s", f.Name)
	}
	if int64(len(data)) > e.cfg.MaxFileSize {
		return "", fmt.Errorf("文件过大: %s", f.Name)
	}

	if ext == ".txt" {
		return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), nil
	}

	text, err := wordText(data)
	if err != nil {
		return "", fmt.Errorf("Word 解析失败: %s", f.Name)
	}
	return text, nil
}

// wordText reads the paragraphs of an Office Open XML document. Legacy
// binary .doc files are not zip archives and fail here.
func wordText(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	lines := make([]string, 0, len(doc.Paragraphs()))
	for _, p := range doc.Paragraphs() {
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		lines = append(lines, sb.String())
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
