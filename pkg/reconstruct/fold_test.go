package reconstruct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
	"github.com/Sumatoshi-tech/topicdelta/pkg/reconstruct"
)

func TestReconstruct_SingleResetVersion(t *testing.T) {
	t.Parallel()

	states, err := reconstruct.Reconstruct(
		mustMatrix(t, "v1,5,0\n"),
		mustMatrix(t, "v1,0,0\n"),
		corpus.NewResetSet("v1"),
	)
	require.NoError(t, err)
	require.Len(t, states, 1)

	assert.Equal(t, []int64{5, 0}, states[0].Counts)
	assert.Equal(t, int64(5), states[0].Total)
	assert.Equal(t, []float64{1.0, 0.0}, states[0].Membership())
	assert.True(t, states[0].Reset)
	assert.False(t, states[0].Degenerate)
}

func TestReconstruct_CumulativeChaining(t *testing.T) {
	t.Parallel()

	states, err := reconstruct.Reconstruct(
		mustMatrix(t, "v1,5,0\nv2,0,3\n"),
		mustMatrix(t, "v1,0,0\nv2,2,0\n"),
		corpus.NewResetSet("v1"),
	)
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.Equal(t, []int64{3, 3}, states[1].Counts)
	assert.Equal(t, int64(6), states[1].Total)
	assert.Equal(t, []float64{0.5, 0.5}, states[1].Membership())
	assert.False(t, states[1].Reset)

	// The predecessor stays as it was finalized.
	assert.Equal(t, []int64{5, 0}, states[0].Counts)
}

func TestReconstruct_ClampsAtZero(t *testing.T) {
	t.Parallel()

	states, err := reconstruct.Reconstruct(
		mustMatrix(t, "v0,2,1\nv1,0,0\n"),
		mustMatrix(t, "v0,0,0\nv1,5,0\n"),
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1}, states[1].Counts)
	assert.Equal(t, int64(1), states[1].Total)
	assert.Equal(t, 1, states[1].Clamped)
}

func TestReconstruct_ResetMidSequence(t *testing.T) {
	t.Parallel()

	states, err := reconstruct.Reconstruct(
		mustMatrix(t, "00,4,4\n01,1,0\n07,2,1\n08,1,1\n"),
		mustMatrix(t, "00,0,0\n01,0,2\n07,0,0\n08,1,0\n"),
		corpus.NewResetSet("00", "07"),
	)
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 2}, states[1].Counts)
	assert.Equal(t, []int64{2, 1}, states[2].Counts)
	assert.Equal(t, []int64{2, 2}, states[3].Counts)
}

func TestReconstruct_FirstRowRestartsWithoutReset(t *testing.T) {
	t.Parallel()

	states, err := reconstruct.Reconstruct(mustMatrix(t, "v1,1,0\n"), mustMatrix(t, "v1,3,0\n"), nil)
	require.NoError(t, err)

	assert.True(t, states[0].Reset)
	assert.Equal(t, []int64{0, 0}, states[0].Counts)
}

func TestReconstruct_DegenerateVersion(t *testing.T) {
	t.Parallel()

	states, err := reconstruct.Reconstruct(
		mustMatrix(t, "v1,2,0\nv2,0,0\n"),
		mustMatrix(t, "v1,0,0\nv2,3,0\n"),
		nil,
	)
	require.NoError(t, err)

	assert.True(t, states[1].Degenerate)
	assert.Zero(t, states[1].Total)
	assert.Equal(t, []float64{0, 0}, states[1].Membership())
}

func TestReconstruct_ShapeMismatchBeforeAccumulation(t *testing.T) {
	t.Parallel()

	states, err := reconstruct.Reconstruct(mustMatrix(t, "v1,1,2\n"), mustMatrix(t, "v1,1\n"), nil)
	require.ErrorIs(t, err, reconstruct.ErrShapeMismatch)
	assert.Nil(t, states)
}

func TestReconstruct_Idempotent(t *testing.T) {
	t.Parallel()

	add := mustMatrix(t, "v1,5,1\nv2,0,3\nv3,1,1\n")
	del := mustMatrix(t, "v1,0,0\nv2,6,0\nv3,0,2\n")
	resets := corpus.NewResetSet("v1")

	first, err := reconstruct.Reconstruct(add, del, resets)
	require.NoError(t, err)

	second, err := reconstruct.Reconstruct(add, del, resets)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCheckOrder(t *testing.T) {
	t.Parallel()

	order := []string{"00", "01", "02", "07"}

	require.NoError(t, reconstruct.CheckOrder([]string{"00", "01", "02", "07"}, order))
	require.NoError(t, reconstruct.CheckOrder([]string{"00", "07"}, order))
	require.ErrorIs(t, reconstruct.CheckOrder([]string{"01", "00"}, order), reconstruct.ErrManifestMismatch)
	require.ErrorIs(t, reconstruct.CheckOrder([]string{"00", "99"}, order), reconstruct.ErrManifestMismatch)
	require.ErrorIs(t, reconstruct.CheckOrder([]string{"00", "00"}, order), reconstruct.ErrManifestMismatch)
}

func TestCarryResets(t *testing.T) {
	t.Parallel()

	order := []string{"00", "01", "02", "03", "04"}

	tests := []struct {
		name   string
		labels []string
		resets []string
		want   []string
	}{
		{name: "nothing skipped", labels: order, resets: []string{"00", "02"}, want: []string{"00", "02"}},
		{name: "skipped reset moves forward", labels: []string{"00", "01", "03"}, resets: []string{"00", "02"}, want: []string{"00", "02", "03"}},
		{name: "skipped delta ignored", labels: []string{"00", "02"}, resets: []string{"00"}, want: []string{"00"}},
		{name: "trailing reset not carried", labels: []string{"00", "01"}, resets: []string{"00", "04"}, want: []string{"00", "04"}},
		{name: "adjacent skipped resets", labels: []string{"00", "04"}, resets: []string{"00", "02", "03"}, want: []string{"00", "02", "03", "04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resets := corpus.NewResetSet(tt.resets...)
			reconstruct.CarryResets(tt.labels, order, resets)

			assert.ElementsMatch(t, tt.want, resets.Labels())
		})
	}
}

func TestReconstruct_SkippedResetRestartsNextVersion(t *testing.T) {
	t.Parallel()

	add := mustMatrix(t, "00,5,5\n02,1,0\n")
	del := mustMatrix(t, "00,0,0\n02,0,0\n")

	resets := corpus.NewResetSet("00", "01")
	reconstruct.CarryResets(add.Labels(), []string{"00", "01", "02"}, resets)

	states, err := reconstruct.Reconstruct(add, del, resets)
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.True(t, states[1].Reset)
	assert.Equal(t, []int64{1, 0}, states[1].Counts)
}
