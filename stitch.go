package shapefile

import (
	"iter"

	"github.com/paulmach/orb/geojson"
)

// Features decodes a geometry stream and an attribute stream in lockstep,
// pairing them positionally into geojson.Feature values. Both streams must
// carry the same record count; one ending before the other is a fatal
// PairingError. A nil dbf sequence yields features with absent properties.
//
// The sequence is lazy: input chunks are pulled only as the consumer demands
// features, and breaking out of the loop stops all upstream reads.
func Features(shp, dbf ChunkSeq, opts *Options) iter.Seq2[*geojson.Feature, error] {
	if opts == nil {
		opts = &Options{}
	}
	if dbf == nil {
		return Shapes(shp, opts)
	}
	return func(yield func(*geojson.Feature, error) bool) {
		nextShape, stopShapes := iter.Pull2(newShpDecoder(opts).sequence(shp))
		defer stopShapes()
		nextRow, stopRows := iter.Pull2(newDbfDecoder().sequence(dbf))
		defer stopRows()

		paired := 0
		for {
			s, serr, sok := nextShape()
			row, rerr, rok := nextRow()
			if serr != nil {
				yield(nil, serr)
				return
			}
			if rerr != nil {
				yield(nil, rerr)
				return
			}
			if !sok && !rok {
				return
			}
			if sok != rok {
				yield(nil, &PairingError{Paired: paired, ShapesEnded: !sok, RecordsEnded: !rok})
				return
			}
			paired++
			if !yield(feature(s, row), nil) {
				return
			}
		}
	}
}

// Shapes decodes a geometry stream alone; every feature has nil properties.
func Shapes(shp ChunkSeq, opts *Options) iter.Seq2[*geojson.Feature, error] {
	if opts == nil {
		opts = &Options{}
	}
	return func(yield func(*geojson.Feature, error) bool) {
		for s, err := range newShpDecoder(opts).sequence(shp) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(feature(s, nil), nil) {
				return
			}
		}
	}
}

func feature(s shape, props geojson.Properties) *geojson.Feature {
	f := &geojson.Feature{
		Type:       "Feature",
		Geometry:   s.geom,
		BBox:       s.bbox,
		Properties: props,
	}
	return f
}
