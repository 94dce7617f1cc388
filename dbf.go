package shapefile

import (
	"bytes"
	"encoding/binary"
	"iter"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// dBASE level-5 constants.
const (
	dbfVersion       = 0x03
	dbfHeaderSize    = 32
	dbfFieldDescSize = 32
	dbfFieldEnd      = 0x0D // terminates the field descriptor array
	dbfRowActive     = 0x20
	dbfRowDeleted    = 0x2A
)

// field is one column of the attribute table. The descriptor order defines
// the byte layout of every row.
type field struct {
	name   string
	typ    byte
	length int
}

type dbfState int

const (
	dbfHeader dbfState = iota
	dbfFields
	dbfRecords
)

// dbfDecoder incrementally decodes a chunked dBASE attribute table into
// ordered name→value rows.
type dbfDecoder struct {
	buf    buffer
	state  dbfState
	needed int

	fields     []field
	recLen     int
	headerSeen bool
	remaining  int64 // rows still expected per the header record count
}

func newDbfDecoder() *dbfDecoder {
	return &dbfDecoder{state: dbfHeader, needed: dbfHeaderSize}
}

func (d *dbfDecoder) feed(chunk []byte) ([]geojson.Properties, error) {
	d.buf.push(chunk)

	var out []geojson.Properties
	for d.buf.has(d.needed) {
		switch d.state {
		case dbfHeader:
			if err := d.decodeHeader(d.buf.next(dbfHeaderSize)); err != nil {
				return out, err
			}
			d.state = dbfFields
			d.needed = 1

		case dbfFields:
			if d.buf.peek() == dbfFieldEnd {
				d.buf.skip(1)
				width := 1
				for _, f := range d.fields {
					width += f.length
				}
				if width > d.recLen {
					return out, formatErr("field", "field widths total %d bytes but records hold %d", width, d.recLen)
				}
				d.state = dbfRecords
				d.needed = d.recLen
				continue
			}
			if !d.buf.has(dbfFieldDescSize) {
				d.needed = dbfFieldDescSize
				continue
			}
			if err := d.decodeField(d.buf.next(dbfFieldDescSize)); err != nil {
				return out, err
			}
			d.needed = 1

		case dbfRecords:
			b := d.buf.next(d.recLen)
			switch b[0] {
			case dbfRowDeleted:
				d.remaining--
			case dbfRowActive:
				d.remaining--
				out = append(out, d.decodeRow(b[1:]))
			default:
				return out, formatErr("record", "bad deletion flag 0x%02x", b[0])
			}
		}
	}
	return out, nil
}

func (d *dbfDecoder) flush() error {
	if !d.headerSeen {
		return &TruncationError{Stage: "attribute header", Remaining: int64(d.needed)}
	}
	if d.remaining != 0 {
		return &TruncationError{Stage: "attribute record", Remaining: d.remaining}
	}
	return nil
}

func (d *dbfDecoder) decodeHeader(b []byte) error {
	if b[0] != dbfVersion {
		return formatErr("attribute header", "unsupported dBASE version 0x%02x", b[0])
	}
	d.remaining = int64(binary.LittleEndian.Uint32(b[4:8]))
	d.recLen = int(binary.LittleEndian.Uint16(b[10:12]))
	if d.recLen < 1 {
		return formatErr("attribute header", "record length %d", d.recLen)
	}
	d.headerSeen = true
	return nil
}

func (d *dbfDecoder) decodeField(b []byte) error {
	name := b[0:11]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	typ := b[11]
	switch typ {
	case 'C', 'N', 'F', 'D', 'L':
	default:
		return formatErr("field", "unsupported field type %q", typ)
	}
	d.fields = append(d.fields, field{
		name:   strings.TrimRight(string(name), " "),
		typ:    typ,
		length: int(b[16]),
	})
	return nil
}

// decodeRow maps one active row (deletion flag already stripped) to
// properties in field order. Unparsable numeric and boolean content decodes
// to nil, never to an error.
func (d *dbfDecoder) decodeRow(b []byte) geojson.Properties {
	props := make(geojson.Properties, len(d.fields))
	off := 0
	for _, f := range d.fields {
		raw := b[off : off+f.length]
		off += f.length
		switch f.typ {
		case 'C', 'D':
			props[f.name] = trimText(raw)
		case 'N', 'F':
			s := strings.TrimSpace(string(raw))
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				props[f.name] = v
			} else {
				props[f.name] = nil
			}
		case 'L':
			props[f.name] = parseLogical(raw)
		}
	}
	return props
}

// trimText cuts the value at the first NUL and drops trailing padding.
func trimText(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(string(raw), " ")
}

func parseLogical(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case 'Y', 'y', 'T', 't':
		return true
	case 'N', 'n', 'F', 'f':
		return false
	default:
		return nil
	}
}

func (d *dbfDecoder) sequence(chunks ChunkSeq) iter.Seq2[geojson.Properties, error] {
	return func(yield func(geojson.Properties, error) bool) {
		for chunk, err := range chunks {
			if err != nil {
				yield(nil, err)
				return
			}
			rows, err := d.feed(chunk)
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
		if err := d.flush(); err != nil {
			yield(nil, err)
		}
	}
}
