package shapefile

import (
	"math/rand"
	"testing"
)

// generatePointRecords creates n random point records within the bounds.
func generatePointRecords(r *rand.Rand, n int, minX, maxX, minY, maxY float64) [][]byte {
	records := make([][]byte, n)
	for i := 0; i < n; i++ {
		x := minX + r.Float64()*(maxX-minX)
		y := minY + r.Float64()*(maxY-minY)
		records[i] = pointRecord(x, y)
	}
	return records
}

// generatePolygonRecords creates n square polygon records, each with one hole.
func generatePolygonRecords(r *rand.Rand, n int) [][]byte {
	records := make([][]byte, n)
	for i := 0; i < n; i++ {
		x := r.Float64() * 1000
		y := r.Float64() * 1000
		records[i] = polyRecord(shapePolygon, cwSquare(x, y, 10), ccwSquare(x+2, y+2, 3))
	}
	return records
}

func benchmarkDecode(b *testing.B, data []byte) {
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, err := range Features(BytesChunks(data), nil, nil) {
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkDecodePoints(b *testing.B) {
	r := rand.New(rand.NewSource(42))
	data := buildSHP([4]float64{-180, -90, 180, 90},
		generatePointRecords(r, 10000, -180, 180, -90, 90)...)
	benchmarkDecode(b, data)
}

func BenchmarkDecodePolygons(b *testing.B) {
	r := rand.New(rand.NewSource(42))
	data := buildSHP([4]float64{0, 0, 1010, 1010}, generatePolygonRecords(r, 1000)...)
	benchmarkDecode(b, data)
}

func BenchmarkDecodePointsChunked(b *testing.B) {
	r := rand.New(rand.NewSource(42))
	data := buildSHP([4]float64{-180, -90, 180, 90},
		generatePointRecords(r, 10000, -180, 180, -90, 90)...)
	chunked := func() ChunkSeq {
		return func(yield func([]byte, error) bool) {
			const size = 4096
			for off := 0; off < len(data); off += size {
				end := off + size
				if end > len(data) {
					end = len(data)
				}
				if !yield(data[off:end], nil) {
					return
				}
			}
		}
	}
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, err := range Features(chunked(), nil, nil) {
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}
