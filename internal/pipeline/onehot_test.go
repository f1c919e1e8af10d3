package pipeline_test

import (
	"testing"

	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneHot(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fitValues       []float64
		transformValues []float64
		ignoreUnseen    bool

		wantColumns map[string][]float64
		wantErr     bool
	}{
		"Encodes all categories": {
			fitValues:       []float64{0, 1, 2, 3, 4, 2},
			transformValues: []float64{2, 0},

			wantColumns: map[string][]float64{
				"down_0": {0, 1},
				"down_1": {0, 0},
				"down_2": {1, 0},
				"down_3": {0, 0},
				"down_4": {0, 0},
			},
		},
		"Single category": {
			fitValues:       []float64{1, 1},
			transformValues: []float64{1},

			wantColumns: map[string][]float64{"down_1": {1}},
		},
		"Unseen value with IgnoreUnseen encodes to zeros": {
			fitValues:       []float64{1, 2},
			transformValues: []float64{3},
			ignoreUnseen:    true,

			wantColumns: map[string][]float64{
				"down_1": {0},
				"down_2": {0},
			},
		},

		"Error on unseen value": {
			fitValues:       []float64{1, 2},
			transformValues: []float64{3},
			wantErr:         true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fit := dataset.New()
			require.NoError(t, fit.AddFloats("down", tc.fitValues), "Setup: failed to add column")
			ds := dataset.New()
			require.NoError(t, ds.AddFloats("down", tc.transformValues), "Setup: failed to add column")

			s := &pipeline.OneHot{ColumnNames: []string{"down"}, IgnoreUnseen: tc.ignoreUnseen}
			require.NoError(t, s.Fit(fit), "Fit should not fail")

			got, err := s.Transform(ds)
			if tc.wantErr {
				require.Error(t, err, "Transform should have failed")
				return
			}
			require.NoError(t, err, "Transform should not fail")

			require.Equal(t, len(tc.wantColumns), got.NumColumns(), "Unexpected number of indicator columns")
			for col, want := range tc.wantColumns {
				vals, err := got.Floats(col)
				require.NoError(t, err, "Indicator column %s should exist", col)
				assert.Equal(t, want, vals, "Unexpected indicators in %s", col)
			}
		})
	}
}

func TestOneHotKeepsOtherColumns(t *testing.T) {
	t.Parallel()

	ds := dataset.New()
	require.NoError(t, ds.AddFloats("yardline", []float64{25, 50}), "Setup: failed to add column")
	require.NoError(t, ds.AddFloats("down", []float64{1, 2}), "Setup: failed to add column")

	s := &pipeline.OneHot{ColumnNames: []string{"down"}}
	require.NoError(t, s.Fit(ds), "Fit should not fail")
	got, err := s.Transform(ds)
	require.NoError(t, err, "Transform should not fail")

	assert.Equal(t, []string{"yardline", "down_1", "down_2"}, got.Columns(),
		"Indicator columns should replace the encoded column in place")
}

func TestOneHotUnfitted(t *testing.T) {
	t.Parallel()

	s := &pipeline.OneHot{ColumnNames: []string{"down"}}
	ds := dataset.New()
	require.NoError(t, ds.AddFloats("down", []float64{1}), "Setup: failed to add column")

	_, err := s.Transform(ds)
	require.Error(t, err, "Transform should fail before Fit")
}
