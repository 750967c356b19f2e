package service

import (
	"strings"
	"testing"

	"lawcite-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatResults(t *testing.T) {
	results := []models.ScoredLawChunk{
		{Chunk: models.LawChunk{Text: "담보권은 등기로 설정한다.", Metadata: models.ChunkMetadata{LawName: "담보법", Jo: "3", Hang: "1"}}, Distance: 12.5},
		{Chunk: models.LawChunk{Text: "본문", Metadata: models.ChunkMetadata{}}, Distance: 40},
	}

	got := formatResults(results, LabelLocal, 500, false)
	assert.Equal(t, "[근거법령 1] 담보법 제3조 제1항\n담보권은 등기로 설정한다.\n\n[근거법령 2] Unknown\n본문", got)

	got = formatResults(results[:1], LabelStale, 500, true)
	assert.Equal(t, "[기존 근거법령 1] (점수: 12.500) 담보법 제3조 제1항\n담보권은 등기로 설정한다.", got)
}

func TestFormatResultsTruncatesByRune(t *testing.T) {
	text := strings.Repeat("가", 600)
	got := formatResults([]models.ScoredLawChunk{{Chunk: models.LawChunk{Text: text, Metadata: models.ChunkMetadata{LawName: "민법"}}}}, LabelLocal, 500, false)

	body := strings.SplitN(got, "\n", 2)[1]
	assert.Equal(t, strings.Repeat("가", 500), body)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "가나", truncateRunes("가나다", 2))
	assert.Equal(t, "가나다", truncateRunes("가나다", 3))
	assert.Equal(t, "가나다", truncateRunes("가나다", 10))
	assert.Equal(t, "", truncateRunes("", 5))
}
