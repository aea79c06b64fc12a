package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/futig/report-writer/internal/entity"
)

// recordListStrategy picks the record array out of a retrieve response.
type recordListStrategy struct {
	name    string
	extract func(resp entity.RetrieveResponse, raw json.RawMessage) json.RawMessage
}

// Tried in order; the first key that is present wins, as long as it holds an array.
var recordListStrategies = []recordListStrategy{
	{name: "records", extract: func(resp entity.RetrieveResponse, _ json.RawMessage) json.RawMessage { return resp.Records }},
	{name: "chunks", extract: func(resp entity.RetrieveResponse, _ json.RawMessage) json.RawMessage { return resp.Chunks }},
	{name: "data", extract: func(resp entity.RetrieveResponse, _ json.RawMessage) json.RawMessage { return resp.Data }},
	{name: "bare array", extract: func(_ entity.RetrieveResponse, raw json.RawMessage) json.RawMessage { return raw }},
}

// contentStrategy reads snippet text from one record.
type contentStrategy func(rec entity.KnowledgeRecord) string

var contentStrategies = []contentStrategy{
	func(rec entity.KnowledgeRecord) string {
		if rec.Segment == nil {
			return ""
		}
		return rec.Segment.Content
	},
	func(rec entity.KnowledgeRecord) string { return rec.Content },
	func(rec entity.KnowledgeRecord) string { return rec.Text },
}

// decodeRecords returns the raw records of a retrieve response, one per entry.
// Entries that are not objects decode to empty records.
func decodeRecords(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var resp entity.RetrieveResponse
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode retrieve response: %w", err)
		}
	}

	for _, strategy := range recordListStrategies {
		list := bytes.TrimSpace(strategy.extract(resp, raw))
		if len(list) == 0 || bytes.Equal(list, []byte("null")) {
			continue
		}
		if list[0] != '[' {
			continue
		}

		var records []json.RawMessage
		if err := json.Unmarshal(list, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", strategy.name, err)
		}
		return records, nil
	}

	return nil, nil
}

// extractSnippets applies the content strategies to every record and keeps
// the trimmed, non-empty results.
func extractSnippets(records []json.RawMessage) []string {
	snippets := make([]string, 0, len(records))
	for _, raw := range records {
		var rec entity.KnowledgeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		for _, strategy := range contentStrategies {
			if text := strings.TrimSpace(strategy(rec)); text != "" {
				snippets = append(snippets, text)
				break
			}
		}
	}
	return snippets
}
