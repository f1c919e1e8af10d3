package wp_test

import (
	"math/rand"
	"testing"

	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainingPlays builds a synthetic labeled play set. The offense alternates
// between leading and trailing, and wins exactly when it leads, so the score
// differential fully determines the outcome and both classes appear in every
// contiguous slice.
func trainingPlays(t *testing.T, n int) *dataset.Dataset {
	t.Helper()

	rng := rand.New(rand.NewSource(7))
	ps := make([]plays.Play, n)
	for i := range ps {
		lead := 3 + rng.Intn(14)
		p := plays.Play{
			Quarter:        1 + i%4,
			SecondsElapsed: float64(rng.Intn(900)),
			Down:           i % 5, // includes down 0 plays
			YardsToGo:      1 + rng.Intn(10),
			Yardline:       float64(1 + rng.Intn(99)),
			OffenseTeam:    "NE",
			HomeTeam:       "NE",
		}
		if i%2 == 0 {
			p.HomeScore, p.AwayScore = lead, 0
			p.OffenseWon = true
		} else {
			p.HomeScore, p.AwayScore = 0, lead
		}
		ps[i] = p
	}

	ds, err := plays.ToDataset(ps, plays.DefaultColumns())
	require.NoError(t, err, "Setup: failed to build training dataset")
	return ds
}

func TestTrainAndPredict(t *testing.T) {
	t.Parallel()

	ds := trainingPlays(t, 200)

	m := wp.New(wp.WithSeed(1))
	require.False(t, m.Fitted(), "A new model should not be fitted")

	require.NoError(t, m.Train(ds, []int{2014}, []string{"Regular"}), "Train should not fail")
	assert.True(t, m.Fitted(), "A trained model should be fitted")
	assert.NotZero(t, m.ID(), "Training should assign a model ID")
	assert.False(t, m.CreatedAt().IsZero(), "Training should record the creation time")
	assert.Equal(t, []int{2014}, m.TrainingSeasons(), "Training seasons should be recorded")
	assert.Equal(t, []string{"Regular"}, m.TrainingSeasonTypes(), "Training season types should be recorded")

	probe, err := plays.ToDataset([]plays.Play{
		{Quarter: 4, SecondsElapsed: 800, Down: 1, YardsToGo: 10, Yardline: 50, OffenseTeam: "NE", HomeTeam: "NE", HomeScore: 14, AwayScore: 0},
		{Quarter: 4, SecondsElapsed: 800, Down: 1, YardsToGo: 10, Yardline: 50, OffenseTeam: "NE", HomeTeam: "NE", HomeScore: 0, AwayScore: 14},
	}, plays.DefaultColumns())
	require.NoError(t, err, "Setup: failed to build probe plays")

	probs, err := m.Predict(probe)
	require.NoError(t, err, "Predict should not fail")
	require.Len(t, probs, 2)

	assert.Greater(t, probs[0], probs[1], "A leading offense should have the higher win probability")
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0, "Probabilities should stay in [0, 1]")
		assert.LessOrEqual(t, p, 1.0, "Probabilities should stay in [0, 1]")
	}
}

func TestPredictUnfitted(t *testing.T) {
	t.Parallel()

	m := wp.New()
	_, err := m.Predict(trainingPlays(t, 10))
	require.Error(t, err, "Predict should fail before training")
}

func TestTrainRequiresOutcome(t *testing.T) {
	t.Parallel()

	ds := trainingPlays(t, 20).Drop("offense_won")

	m := wp.New()
	require.Error(t, m.Train(ds, nil, nil), "Train should fail without the outcome column")
}

func TestTrainRejectsSingleResample(t *testing.T) {
	t.Parallel()

	ds := trainingPlays(t, 40)

	m := wp.New(wp.WithBootstrap(1), wp.WithSeed(1))
	err := m.Train(ds, nil, nil)
	require.Error(t, err, "Train should fail with a single bootstrap resample")
	assert.False(t, m.Fitted(), "A failed Train should leave the model unfitted")
}

func TestTrainWithBootstrap(t *testing.T) {
	t.Parallel()

	ds := trainingPlays(t, 120)

	m := wp.New(wp.WithBootstrap(3), wp.WithSeed(1))
	require.NoError(t, m.Train(ds, nil, nil), "Train should not fail")
	assert.True(t, m.HasBootstrap(), "The model should carry bootstrap resamples")

	probs, stderr, err := m.PredictWithError(ds)
	require.NoError(t, err, "PredictWithError should not fail")
	require.Len(t, probs, ds.NumRows())
	require.Len(t, stderr, ds.NumRows())
	for i, se := range stderr {
		assert.GreaterOrEqual(t, se, 0.0, "Standard error %d should not be negative", i)
	}
}

func TestPredictWithErrorRequiresBootstrap(t *testing.T) {
	t.Parallel()

	ds := trainingPlays(t, 60)

	m := wp.New(wp.WithSeed(1))
	require.NoError(t, m.Train(ds, nil, nil), "Setup: Train should not fail")

	_, _, err := m.PredictWithError(ds)
	require.Error(t, err, "PredictWithError should fail without bootstrap resamples")
}

func TestValidateModel(t *testing.T) {
	t.Parallel()

	train := trainingPlays(t, 200)
	holdout := trainingPlays(t, 150)

	m := wp.New(wp.WithSeed(1))
	require.NoError(t, m.Train(train, []int{2014}, []string{"Regular"}), "Setup: Train should not fail")
	require.Nil(t, m.ValidationResult(), "A freshly trained model has no validation result")

	pvalue, err := m.Validate(holdout, []int{2015}, []string{"Regular"})
	require.NoError(t, err, "Validate should not fail")

	assert.GreaterOrEqual(t, pvalue, 0.0, "The p-value should be a probability")
	assert.LessOrEqual(t, pvalue, 1.0, "The p-value should be a probability")

	result := m.ValidationResult()
	require.NotNil(t, result, "Validation should store its result on the model")
	assert.Equal(t, pvalue, result.PValue, "The stored p-value should match the returned one")
	assert.Equal(t, []int{2015}, m.ValidationSeasons(), "Validation seasons should be recorded")
}

func TestValidateUnfitted(t *testing.T) {
	t.Parallel()

	m := wp.New()
	_, err := m.Validate(trainingPlays(t, 20), nil, nil)
	require.Error(t, err, "Validate should fail before training")
}
