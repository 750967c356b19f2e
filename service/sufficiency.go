package service

import "lawcite-backend/models"

// IsSufficient reports whether local results can answer a query without a remote fetch:
// at least threshold results overall and at least threshold within maxDistance.
func IsSufficient(results []models.ScoredLawChunk, threshold int, maxDistance float64) bool {
	if len(results) < threshold {
		return false
	}

	relevant := 0
	for _, r := range results {
		if r.Distance <= maxDistance {
			relevant++
		}
	}
	return relevant >= threshold
}

// scoreSummary returns the best, worst and in-cutoff count of a result set for logging
func scoreSummary(results []models.ScoredLawChunk, maxDistance float64) (best, worst float64, relevant int) {
	for i, r := range results {
		if i == 0 || r.Distance < best {
			best = r.Distance
		}
		if i == 0 || r.Distance > worst {
			worst = r.Distance
		}
		if r.Distance <= maxDistance {
			relevant++
		}
	}
	return best, worst, relevant
}
