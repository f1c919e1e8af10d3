package wp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	ds := trainingPlays(t, 150)

	m := wp.New(wp.WithBootstrap(2), wp.WithSeed(1))
	require.NoError(t, m.Train(ds, []int{2014}, []string{"Regular"}), "Setup: Train should not fail")
	_, err := m.Validate(trainingPlays(t, 100), []int{2015}, []string{"Regular"})
	require.NoError(t, err, "Setup: Validate should not fail")

	path := filepath.Join(t.TempDir(), "models", "model.json")
	require.NoError(t, m.Save(path), "Save should not fail")

	got, err := wp.Load(path)
	require.NoError(t, err, "Load should not fail")

	assert.Equal(t, m.ID(), got.ID(), "The model ID should survive the round trip")
	assert.True(t, m.CreatedAt().Equal(got.CreatedAt()), "The creation time should survive the round trip")
	assert.Equal(t, m.TrainingSeasons(), got.TrainingSeasons(), "Training seasons should survive the round trip")
	assert.Equal(t, m.ValidationSeasons(), got.ValidationSeasons(), "Validation seasons should survive the round trip")
	require.NotNil(t, got.ValidationResult(), "The validation result should survive the round trip")
	assert.Equal(t, m.ValidationResult().PValue, got.ValidationResult().PValue, "The validation p-value should survive the round trip")
	assert.True(t, got.Fitted(), "A restored model should be fitted")
	assert.True(t, got.HasBootstrap(), "Bootstrap resamples should survive the round trip")

	want, err := m.Predict(ds)
	require.NoError(t, err, "Setup: the original model should predict")
	probs, err := got.Predict(ds)
	require.NoError(t, err, "A restored model should predict")
	require.Len(t, probs, len(want))
	for i := range want {
		assert.InDelta(t, want[i], probs[i], 1e-12, "Restored predictions should match the original at row %d", i)
	}

	_, stderr, err := got.PredictWithError(ds)
	require.NoError(t, err, "A restored model should predict with errors")
	assert.Len(t, stderr, ds.NumRows())
}

func TestSaveLoadGridSearch(t *testing.T) {
	t.Parallel()

	ds := trainingPlays(t, 150)

	m := wp.New(wp.WithGridSearch(), wp.WithSeed(1))
	require.NoError(t, m.Train(ds, nil, nil), "Setup: Train should not fail")

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, m.Save(path), "Save should not fail")

	got, err := wp.Load(path)
	require.NoError(t, err, "Load should not fail")

	want, err := m.Predict(ds)
	require.NoError(t, err, "Setup: the original model should predict")
	probs, err := got.Predict(ds)
	require.NoError(t, err, "A restored model should predict")
	for i := range want {
		assert.InDelta(t, want[i], probs[i], 1e-12, "Restored predictions should match the original at row %d", i)
	}
}

func TestSaveUnfitted(t *testing.T) {
	t.Parallel()

	m := wp.New()
	require.Error(t, m.Save(filepath.Join(t.TempDir(), "model.json")), "Save should fail on an untrained model")
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string

		missingFile bool
	}{
		"Error on missing file":   {missingFile: true},
		"Error on invalid JSON":   {content: "not json"},
		"Error on empty artifact": {content: "{}"},
		"Error on unsupported format version": {
			content: `{"format_version": 99, "id": "6cc36992-4bb8-46ca-be79-2b3e13b5f031", "created_at": "2026-01-02T15:04:05Z"}`,
		},
		"Error on bad model id": {
			content: `{"format_version": 1, "id": "nope", "created_at": "2026-01-02T15:04:05Z"}`,
		},
		"Error on unfitted pipeline": {
			content: `{"format_version": 1, "id": "6cc36992-4bb8-46ca-be79-2b3e13b5f031", "created_at": "2026-01-02T15:04:05Z", "pipeline": {}}`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "model.json")
			if !tc.missingFile {
				require.NoError(t, os.WriteFile(path, []byte(tc.content), 0600), "Setup: failed to write artifact")
			}

			_, err := wp.Load(path)
			require.Error(t, err, "Load should have failed")
		})
	}
}
