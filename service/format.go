package service

import (
	"fmt"
	"strings"

	"lawcite-backend/models"
)

const unknownLawName = "Unknown"

// formatResults renders hits as "[{label} {i}] {citation}\n{preview}" blocks separated by
// blank lines
func formatResults(results []models.ScoredLawChunk, label string, preview int, showScores bool) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		meta := r.Chunk.Metadata

		lawName := meta.LawName
		if lawName == "" {
			lawName = unknownLawName
		}

		score := ""
		if showScores {
			score = fmt.Sprintf(" (점수: %.3f)", r.Distance)
		}

		blocks = append(blocks, fmt.Sprintf("[%s %d]%s %s\n%s",
			label, i+1, score, meta.Reference().Format(lawName), truncateRunes(r.Chunk.Text, preview)))
	}
	return strings.Join(blocks, "\n\n")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
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
