package similarity

import (
	"math"
	"sort"
	"strings"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/pkg/models"
)

// Defaults applied when callers pass no limit or threshold
const (
	DefaultLimit     = 10
	DefaultThreshold = 0.7

	tagWeight         = 0.7
	descriptionWeight = 0.3

	// absorbs float error so a score equal to the threshold is kept
	thresholdTolerance = 1e-9
)

// FindSimilar ranks candidates by weighted Jaccard similarity of tags and
// description words. The unrounded score is compared with threshold; scores
// are rounded to 3 decimals for reporting and ordering, and ties keep their
// input order. The source itself is never returned.
func FindSimilar(source models.ImageRecord, candidates []models.ImageRecord, limit int, threshold float64) ([]models.SimilarityCandidate, error) {
	if len(source.AITags) == 0 || strings.TrimSpace(source.Description()) == "" {
		return nil, apperrors.NewInsufficientDataError("image has not been analyzed yet")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	sourceTags := toSet(source.AITags)
	sourceWords := toSet(words(source.Description()))

	matches := make([]models.SimilarityCandidate, 0)
	for _, candidate := range candidates {
		if candidate.ID == source.ID {
			continue
		}

		tagScore := jaccard(sourceTags, toSet(candidate.AITags))
		descScore := jaccard(sourceWords, toSet(words(candidate.Description())))
		score := tagWeight*tagScore + descriptionWeight*descScore
		if score+thresholdTolerance < threshold {
			continue
		}

		matches = append(matches, models.SimilarityCandidate{
			ImageID:               candidate.ID,
			Filename:              candidate.Filename,
			ThumbnailURL:          candidate.ThumbnailURL,
			SimilarityScore:       round3(score),
			TagSimilarity:         round3(tagScore),
			DescriptionSimilarity: round3(descScore),
			AITags:                candidate.AITags,
			AIDescription:         candidate.Description(),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Jaccard returns |a ∩ b| / |a ∪ b| of two string lists, 0 when both are empty
func Jaccard(a, b []string) float64 {
	return jaccard(toSet(a), toSet(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func words(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
