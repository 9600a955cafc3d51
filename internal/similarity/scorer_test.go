package similarity

import (
	"testing"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(tags []string, description string) models.ImageRecord {
	r := models.ImageRecord{ID: uuid.New(), AITags: tags}
	if description != "" {
		r.AIDescription = &description
	}
	return r
}

func TestFindSimilar_WeightedScore(t *testing.T) {
	source := record([]string{"a", "b", "c"}, "a cat sat")
	candidate := record([]string{"b", "c", "d"}, "a cat ran")

	got, err := FindSimilar(source, []models.ImageRecord{candidate}, 10, 0.7)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = FindSimilar(source, []models.ImageRecord{candidate}, 10, 0.4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, candidate.ID, got[0].ImageID)
	assert.Equal(t, 0.5, got[0].SimilarityScore)
	assert.Equal(t, 0.5, got[0].TagSimilarity)
	assert.Equal(t, 0.5, got[0].DescriptionSimilarity)
}

func TestFindSimilar_ThresholdIsInclusive(t *testing.T) {
	source := record([]string{"a", "b", "c"}, "a cat sat")
	candidate := record([]string{"b", "c", "d"}, "a cat ran")

	tests := []struct {
		threshold float64
		want      int
	}{
		{0.7, 0},
		{0.5, 1},
		{0.4, 1},
	}
	for _, tt := range tests {
		got, err := FindSimilar(source, []models.ImageRecord{candidate}, 10, tt.threshold)
		require.NoError(t, err)
		assert.Len(t, got, tt.want, "threshold %v", tt.threshold)
	}
}

func TestFindSimilar_ThresholdUsesUnroundedScore(t *testing.T) {
	// one third: reported as 0.333
	source := record([]string{"a", "b"}, "x y")
	third := record([]string{"b", "c"}, "y z")

	got, err := FindSimilar(source, []models.ImageRecord{third}, 10, 0.3331)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.333, got[0].SimilarityScore)

	// 0.7 * 2/3: reported as 0.467 but below 0.4669
	source = record([]string{"a", "b", "c"}, "x")
	twoThirds := record([]string{"a", "b"}, "y")

	got, err = FindSimilar(source, []models.ImageRecord{twoThirds}, 10, 0.4669)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = FindSimilar(source, []models.ImageRecord{twoThirds}, 10, 0.4666)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.467, got[0].SimilarityScore)
}

func TestFindSimilar_RoundsToThreeDecimals(t *testing.T) {
	source := record([]string{"a", "b", "c"}, "x")
	candidate := record([]string{"a"}, "y")

	got, err := FindSimilar(source, []models.ImageRecord{candidate}, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.233, got[0].SimilarityScore)
	assert.Equal(t, 0.333, got[0].TagSimilarity)
	assert.Equal(t, 0.0, got[0].DescriptionSimilarity)
}

func TestFindSimilar_StableOrderAndLimit(t *testing.T) {
	source := record([]string{"cat", "sofa"}, "a cat on a sofa")
	exact1 := record([]string{"cat", "sofa"}, "a cat on a sofa")
	partial := record([]string{"cat"}, "a cat")
	exact2 := record([]string{"sofa", "cat"}, "A CAT ON A SOFA")
	exact3 := record([]string{"cat", "sofa"}, "a sofa on a cat")

	candidates := []models.ImageRecord{partial, exact1, exact2, exact3}

	got, err := FindSimilar(source, candidates, 2, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, exact1.ID, got[0].ImageID)
	assert.Equal(t, exact2.ID, got[1].ImageID)
	assert.Equal(t, 1.0, got[0].SimilarityScore)

	got, err = FindSimilar(source, candidates, 0, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []uuid.UUID{exact1.ID, exact2.ID, exact3.ID, partial.ID},
		[]uuid.UUID{got[0].ImageID, got[1].ImageID, got[2].ImageID, got[3].ImageID})
}

func TestFindSimilar_SkipsSource(t *testing.T) {
	source := record([]string{"cat"}, "a cat")
	got, err := FindSimilar(source, []models.ImageRecord{source}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindSimilar_InsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		source models.ImageRecord
	}{
		{"no tags", record(nil, "a cat")},
		{"no description", record([]string{"cat"}, "")},
		{"blank description", record([]string{"cat"}, "   ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindSimilar(tt.source, nil, 10, 0.7)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInsufficientData))
		})
	}
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard([]string{"a"}, nil))
	assert.Equal(t, 1.0, Jaccard([]string{"a", "a"}, []string{"a"}))
	assert.InDelta(t, 0.5, Jaccard([]string{"a", "b", "c"}, []string{"b", "c", "d"}), 1e-9)
}
