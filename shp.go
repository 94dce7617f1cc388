package shapefile

import (
	"encoding/binary"
	"iter"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Shapefile main-file constants.
const (
	shpMagic      = 9994
	shpHeaderSize = 100
	shpRecHdrSize = 8
)

// Shape type codes from the main-file record header. Z/M variants are
// deliberately not listed; they are rejected as unsupported.
const (
	shapeNull       = 0
	shapePoint      = 1
	shapePolyline   = 3
	shapePolygon    = 5
	shapeMultiPoint = 8
)

// shape is one decoded geometry record. geom is nil for null shapes. bbox is
// the record's own projected envelope, present for non-point geometry.
type shape struct {
	geom orb.Geometry
	bbox geojson.BBox
}

type shpState int

const (
	shpHeader shpState = iota
	shpRecordHeader
	shpRecordBody
)

// shpDecoder is a resumable state machine over chunked main-file bytes. It
// consumes as many complete steps as the buffer allows per chunk and returns
// control the moment a step is under-supplied.
type shpDecoder struct {
	buf     buffer
	state   shpState
	needed  int
	project Projection
	bbox    *[4]float64
	opts    *Options

	headerSeen bool
	remaining  int64 // payload bytes still owed per the declared file length
}

func newShpDecoder(opts *Options) *shpDecoder {
	return &shpDecoder{
		state:   shpHeader,
		needed:  shpHeaderSize,
		project: opts.projection(),
		bbox:    opts.BBox,
		opts:    opts,
	}
}

// feed accepts one chunk and returns every record completed by it.
func (d *shpDecoder) feed(chunk []byte) ([]shape, error) {
	d.buf.push(chunk)

	var out []shape
	for d.buf.has(d.needed) {
		switch d.state {
		case shpHeader:
			if err := d.decodeHeader(d.buf.next(shpHeaderSize)); err != nil {
				return out, err
			}
			d.state = shpRecordHeader
			d.needed = shpRecHdrSize

		case shpRecordHeader:
			b := d.buf.next(shpRecHdrSize)
			// Content length is declared in 16-bit words.
			contentLen := int(binary.BigEndian.Uint32(b[4:8])) * 2
			d.remaining -= shpRecHdrSize
			d.state = shpRecordBody
			d.needed = contentLen

		case shpRecordBody:
			s, err := d.decodeRecord(d.buf.next(d.needed))
			if err != nil {
				return out, err
			}
			d.remaining -= int64(d.needed)
			out = append(out, s)
			d.state = shpRecordHeader
			d.needed = shpRecHdrSize
		}
	}
	return out, nil
}

// flush verifies the stream ended exactly where the header said it would.
func (d *shpDecoder) flush() error {
	if !d.headerSeen {
		return &TruncationError{Stage: "header", Remaining: int64(d.needed)}
	}
	if d.remaining != 0 {
		return &TruncationError{Stage: "record", Remaining: d.remaining}
	}
	return nil
}

func (d *shpDecoder) decodeHeader(b []byte) error {
	if magic := binary.BigEndian.Uint32(b[0:4]); magic != shpMagic {
		return formatErr("header", "bad magic number %d", magic)
	}
	fileLen := int64(binary.BigEndian.Uint32(b[24:28])) * 2
	d.remaining = fileLen - shpHeaderSize
	d.headerSeen = true

	min := d.project(orb.Point{f64(b, 36), f64(b, 44)})
	max := d.project(orb.Point{f64(b, 52), f64(b, 60)})
	if d.bbox != nil {
		*d.bbox = [4]float64{min[0], min[1], max[0], max[1]}
	}
	return nil
}

func (d *shpDecoder) decodeRecord(b []byte) (shape, error) {
	if len(b) < 4 {
		return shape{}, formatErr("record", "content too short (%d bytes)", len(b))
	}
	switch typ := int32(binary.LittleEndian.Uint32(b[0:4])); typ {
	case shapeNull:
		return shape{}, nil
	case shapePoint:
		return d.decodePoint(b)
	case shapePolyline, shapePolygon:
		return d.decodePoly(b, typ)
	case shapeMultiPoint:
		return d.decodeMultiPoint(b)
	default:
		return shape{}, formatErr("record", "unsupported shape type %d", typ)
	}
}

func (d *shpDecoder) decodePoint(b []byte) (shape, error) {
	if len(b) < 20 {
		return shape{}, formatErr("record", "point record too short (%d bytes)", len(b))
	}
	p := d.project(orb.Point{f64(b, 4), f64(b, 12)})
	return shape{geom: p}, nil
}

func (d *shpDecoder) decodeMultiPoint(b []byte) (shape, error) {
	if len(b) < 40 {
		return shape{}, formatErr("record", "multipoint record too short (%d bytes)", len(b))
	}
	n := int(int32(binary.LittleEndian.Uint32(b[36:40])))
	if n < 0 || len(b) < 40+16*n {
		return shape{}, formatErr("record", "multipoint record declares %d points but holds %d bytes", n, len(b))
	}
	mp := make(orb.MultiPoint, n)
	for i := 0; i < n; i++ {
		mp[i] = d.project(orb.Point{f64(b, 40+16*i), f64(b, 48+16*i)})
	}
	return shape{geom: mp, bbox: d.recordBBox(b)}, nil
}

// decodePoly handles the shared polyline/polygon layout: envelope, part
// offset array, flat point array. Parts are sliced by consecutive offsets,
// the last part running to the end of the point array.
func (d *shpDecoder) decodePoly(b []byte, typ int32) (shape, error) {
	if len(b) < 44 {
		return shape{}, formatErr("record", "poly record too short (%d bytes)", len(b))
	}
	numParts := int(int32(binary.LittleEndian.Uint32(b[36:40])))
	numPoints := int(int32(binary.LittleEndian.Uint32(b[40:44])))
	pointsBase := 44 + 4*numParts
	if numParts <= 0 || numPoints < 0 || len(b) < pointsBase+16*numPoints {
		return shape{}, formatErr("record", "poly record declares %d parts / %d points but holds %d bytes",
			numParts, numPoints, len(b))
	}

	points := make([]orb.Point, numPoints)
	for i := 0; i < numPoints; i++ {
		points[i] = d.project(orb.Point{f64(b, pointsBase+16*i), f64(b, pointsBase+16*i+8)})
	}

	parts := make([][]orb.Point, numParts)
	for i := 0; i < numParts; i++ {
		start := int(int32(binary.LittleEndian.Uint32(b[44+4*i : 48+4*i])))
		end := numPoints
		if i+1 < numParts {
			end = int(int32(binary.LittleEndian.Uint32(b[48+4*i : 52+4*i])))
		}
		if start < 0 || end < start || end > numPoints {
			return shape{}, formatErr("record", "poly part %d has bad offsets [%d,%d)", i, start, end)
		}
		parts[i] = points[start:end]
	}

	bbox := d.recordBBox(b)

	if typ == shapePolyline {
		if numParts == 1 {
			return shape{geom: orb.LineString(parts[0]), bbox: bbox}, nil
		}
		mls := make(orb.MultiLineString, numParts)
		for i, part := range parts {
			mls[i] = orb.LineString(part)
		}
		return shape{geom: mls, bbox: bbox}, nil
	}

	rings := make([]orb.Ring, numParts)
	for i, part := range parts {
		rings[i] = orb.Ring(part)
	}
	geom, err := assembleRings(rings, d.opts.logger())
	if err != nil {
		return shape{}, err
	}
	return shape{geom: geom, bbox: bbox}, nil
}

// recordBBox projects the record's own envelope at bytes 4..36.
func (d *shpDecoder) recordBBox(b []byte) geojson.BBox {
	min := d.project(orb.Point{f64(b, 4), f64(b, 12)})
	max := d.project(orb.Point{f64(b, 20), f64(b, 28)})
	return geojson.BBox{min[0], min[1], max[0], max[1]}
}

// sequence drives the decoder from a chunk source, yielding records as they
// complete. A new chunk is pulled only once everything the previous one
// completed has been consumed downstream.
func (d *shpDecoder) sequence(chunks ChunkSeq) iter.Seq2[shape, error] {
	return func(yield func(shape, error) bool) {
		for chunk, err := range chunks {
			if err != nil {
				yield(shape{}, err)
				return
			}
			shapes, err := d.feed(chunk)
			for _, s := range shapes {
				if !yield(s, nil) {
					return
				}
			}
			if err != nil {
				yield(shape{}, err)
				return
			}
		}
		if err := d.flush(); err != nil {
			yield(shape{}, err)
		}
	}
}

func f64(b []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
}
