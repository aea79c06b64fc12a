package knowledge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecords_StrategyOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "records preferred over chunks",
			body: `{"records":[{"content":"r"}],"chunks":[{"content":"c"}]}`,
			want: []string{"r"},
		},
		{
			name: "null records fall through",
			body: `{"records":null,"data":[{"text":"d"}]}`,
			want: []string{"d"},
		},
		{
			name: "segment content wins over flat content",
			body: `{"records":[{"segment":{"content":"seg"},"content":"flat","text":"txt"}]}`,
			want: []string{"seg"},
		},
		{
			name: "empty segment falls back to text",
			body: `{"records":[{"segment":{"content":""},"text":"txt"}]}`,
			want: []string{"txt"},
		},
		{
			name: "bare array",
			body: `[{"text":"a"},"not an object",{"content":"b"}]`,
			want: []string{"a", "b"},
		},
		{
			name: "unknown shape",
			body: `{"result":"nothing"}`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := decodeRecords(json.RawMessage(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, extractSnippets(records))
		})
	}
}

func TestDecodeRecords_Malformed(t *testing.T) {
	_, err := decodeRecords(json.RawMessage(`{"records":[`))
	assert.Error(t, err)
}
