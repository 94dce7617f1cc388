package shapefile

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointsSHP(n int) []byte {
	records := make([][]byte, n)
	for i := range records {
		records[i] = pointRecord(float64(i), float64(i))
	}
	return buildSHP([4]float64{0, 0, float64(n - 1), float64(n - 1)}, records...)
}

func idTable(n int) []byte {
	cols := []dbfColumn{{"ID", 'N', 4}}
	rows := make([]string, n)
	for i := range rows {
		rows[i] = "   " + string(rune('1'+i))
	}
	return buildDBF(n, cols, rows)
}

func TestStitchPairsProperties(t *testing.T) {
	features, err := collect(t, BytesChunks(pointsSHP(2)), BytesChunks(idTable(2)), nil)
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, 1.0, features[0].Properties["ID"])
	assert.Equal(t, 2.0, features[1].Properties["ID"])
	assert.Equal(t, orb.Point{1, 1}, features[1].Geometry)
}

func TestStitchPairingMismatch(t *testing.T) {
	features, err := collect(t, BytesChunks(pointsSHP(3)), BytesChunks(idTable(2)), nil)

	require.Len(t, features, 2, "the first two pairs must be yielded before the mismatch")
	var perr *PairingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Paired)
	assert.True(t, perr.RecordsEnded)
	assert.False(t, perr.ShapesEnded)
}

func TestStitchWithoutAttributes(t *testing.T) {
	features, err := collect(t, BytesChunks(pointsSHP(2)), nil, nil)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Nil(t, features[0].Properties)
}

// countingChunks wraps a chunk source and records how many chunks were
// actually pulled.
func countingChunks(inner ChunkSeq, pulled *int) ChunkSeq {
	return func(yield func([]byte, error) bool) {
		for chunk, err := range inner {
			*pulled++
			if !yield(chunk, err) {
				return
			}
		}
	}
}

func TestStitchStopsUpstreamOnBreak(t *testing.T) {
	data := pointsSHP(50)
	pulled := 0
	chunks := countingChunks(byteAtATime(data), &pulled)

	for f, err := range Features(chunks, nil, nil) {
		require.NoError(t, err)
		require.NotNil(t, f)
		break
	}

	assert.Less(t, pulled, len(data), "abandoning the sequence must stop upstream chunk consumption")
}
