package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "https://api.siliconflow.cn", cfg.LLMConnectorCfg.Url)
	assert.Equal(t, 120*time.Second, cfg.GenerationCfg.FullTimeout)
	assert.Equal(t, DisciplineCeiling, cfg.GenerationCfg.WordCountDiscipline)
	assert.Equal(t, "SimSun", cfg.ExportCfg.DOCXFont)
	assert.Len(t, cfg.ExportCfg.PDFFontPaths, 3)
	assert.Equal(t, 5, cfg.FileUploadCfg.MaxFileCount)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "https://llm.example.com/v1/")
	t.Setenv("KNOWLEDGE_BASE_URL", "kb.local:11014")
	t.Setenv("KNOWLEDGE_DATASET_IDS", "a,b")
	t.Setenv("GENERATION_WORD_COUNT_DISCIPLINE", " Floor ")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "https://llm.example.com", cfg.LLMConnectorCfg.Url)
	assert.Equal(t, "http://kb.local:11014", cfg.KnowledgeConnectorCfg.Url)
	assert.Equal(t, []string{"a", "b"}, cfg.KnowledgeConnectorCfg.DatasetIDs)
	assert.Equal(t, DisciplineFloor, cfg.GenerationCfg.WordCountDiscipline)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"GENERATION_WORD_COUNT_DISCIPLINE": "exact",
		"KNOWLEDGE_TOP_K":                  "50",
		"GENERATION_SECTION_TIMEOUT":       "10m",
		"REQUEST_TIMEOUT":                  "1s",
		"EXPORT_FONT_SIZE_PT":              "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
