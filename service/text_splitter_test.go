package service

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"lawcite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextSplitterRejectsInvalidSizes(t *testing.T) {
	_, err := NewTextSplitter(0, 0)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewTextSplitter(10, 10)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewTextSplitter(10, -1)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewTextSplitter(10, 9)
	assert.NoError(t, err)
}

func TestSplitTextShortDocumentIsOneChunk(t *testing.T) {
	s, err := NewTextSplitter(1024, 100)
	require.NoError(t, err)

	text := "조문번호: 제1조\n조문제목: 목적\n조문내용: 이 법은 담보권의 설정에 관한 사항을 정한다."
	assert.Equal(t, []string{text}, s.SplitText(text))
}

func TestSplitTextKeepsSeparatorsAttached(t *testing.T) {
	s, err := NewTextSplitter(5, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"abc\n\n", "def"}, s.SplitText("abc\n\ndef"))
}

func TestSplitTextHardCutCarriesOverlap(t *testing.T) {
	s, err := NewTextSplitter(4, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"가나다라", "라마바사", "사아자차"}, s.SplitText("가나다라마바사아자차"))
}

func TestSplitTextDropsWhitespaceOnly(t *testing.T) {
	s, err := NewTextSplitter(10, 0)
	require.NoError(t, err)

	assert.Empty(t, s.SplitText("   "))
	assert.Empty(t, s.SplitText(""))
}

var (
	statuteVocab   = []string{"담보", "채권자", "채무자", "설정", "등기", "권리", "의무", "이행", "법원", "계약", "손해배상", "소멸시효"}
	paragraphSeps  = []string{" ", " ", " ", ".", "\n", "\n\n"}
	singleLineSeps = []string{" ", " ", " ", ".", "\n"}
)

func randomStatuteText(rng *rand.Rand, words int, seps []string) string {
	vocab := statuteVocab

	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			b.WriteString(seps[rng.Intn(len(seps))])
		}
		b.WriteString(vocab[rng.Intn(len(vocab))])
	}
	return b.String()
}

func TestSplitTextProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		text := randomStatuteText(rng, 1+rng.Intn(400), paragraphSeps)
		size := 8 + rng.Intn(120)
		overlap := rng.Intn(size / 2)

		s, err := NewTextSplitter(size, overlap)
		require.NoError(t, err)

		chunks := s.SplitText(text)
		require.NotEmpty(t, chunks)
		assert.True(t, strings.HasPrefix(text, chunks[0]), "first chunk is a prefix")
		assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]), "last chunk is a suffix")

		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), size)
			assert.Contains(t, text, c)
			assert.NotEmpty(t, strings.TrimSpace(c))
		}

		assert.Equal(t, chunks, s.SplitText(text), "splitting is deterministic")

		if utf8.RuneCountInString(text) <= size {
			assert.Equal(t, []string{text}, chunks)
		}
	}
}

func TestSplitTextWithoutOverlapIsLossless(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		// a lone "\n" left over from splitting "\n\n" can form a blank span, so keep to single separators
		text := randomStatuteText(rng, 1+rng.Intn(400), singleLineSeps)
		s, err := NewTextSplitter(8+rng.Intn(120), 0)
		require.NoError(t, err)

		assert.Equal(t, text, strings.Join(s.SplitText(text), ""))
	}
}

func TestSplitDocumentsCopiesMetadata(t *testing.T) {
	s, err := NewTextSplitter(10, 0)
	require.NoError(t, err)

	meta := models.ChunkMetadata{Type: models.DocumentTypeLawArticle, LawID: "1", LawName: "민법", Jo: "3"}
	docs := []models.LawDocument{
		{Content: "짧은 문서", Metadata: models.ChunkMetadata{Type: models.DocumentTypeLawBasic, LawID: "1"}},
		{Content: "첫째 문장입니다. 둘째 문장입니다. 셋째 문장입니다.", Metadata: meta},
	}

	chunks := s.SplitDocuments(docs)
	require.Greater(t, len(chunks), 2)

	assert.Equal(t, "짧은 문서", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, models.DocumentTypeLawBasic, chunks[0].Metadata.Type)

	for i, c := range chunks[1:] {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, meta, c.Metadata)
	}
}
