// Command shp2geojson converts a Shapefile (plus optional attribute table
// and projection file) to GeoJSON on stdout or a file.
//
// Usage:
//
//	shp2geojson [flags] input.shp
//
// The sibling .dbf and .prj files are picked up automatically when present;
// --dbf and --prj override the paths explicitly.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/pflag"

	shapefile "github.com/tingold/orb-shapefile"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("shp2geojson: ")

	var (
		dbfPath   = pflag.String("dbf", "", "attribute table path (default: sibling .dbf if present)")
		prjPath   = pflag.String("prj", "", "projection file path (default: sibling .prj if present)")
		outPath   = pflag.StringP("out", "o", "", "output path (default: stdout)")
		ndjson    = pflag.Bool("ndjson", false, "write newline-delimited features instead of a FeatureCollection")
		precision = pflag.Int("precision", -1, "decimal places for coordinates (-1 keeps full precision)")
		skip      = pflag.Int("skip", 0, "number of leading records to skip")
		limit     = pflag.Int("limit", -1, "maximum number of records to write (-1 for all)")
	)
	pflag.Parse()

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: shp2geojson [flags] input.shp")
		pflag.PrintDefaults()
		os.Exit(2)
	}
	shpPath := pflag.Arg(0)

	if err := run(shpPath, *dbfPath, *prjPath, *outPath, *ndjson, *precision, *skip, *limit); err != nil {
		log.Fatal(err)
	}
}

func run(shpPath, dbfPath, prjPath, outPath string, ndjson bool, precision, skip, limit int) error {
	shpFile, err := os.Open(shpPath)
	if err != nil {
		return err
	}
	defer shpFile.Close()

	var dbf shapefile.ChunkSeq
	if p := sibling(shpPath, dbfPath, ".dbf"); p != "" {
		dbfFile, err := os.Open(p)
		if err != nil {
			return err
		}
		defer dbfFile.Close()
		dbf = shapefile.ReaderChunks(dbfFile, 0)
	}

	var projection shapefile.Projection
	if p := sibling(shpPath, prjPath, ".prj"); p != "" {
		wkt, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		projection, err = shapefile.ParseProjection(string(wkt))
		if err != nil {
			return err
		}
	}

	out := os.Stdout
	if outPath != "" {
		out, err = os.Create(outPath)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)

	var bbox [4]float64
	opts := &shapefile.Options{Projection: projection, BBox: &bbox}
	features := shapefile.Features(shapefile.ReaderChunks(shpFile, 0), dbf, opts)

	if !ndjson {
		if _, err := w.WriteString(`{"type":"FeatureCollection","features":[`); err != nil {
			return err
		}
	}

	written := 0
	seen := 0
	for f, err := range features {
		if err != nil {
			return err
		}
		seen++
		if seen <= skip {
			continue
		}
		if limit >= 0 && written >= limit {
			break
		}
		if precision >= 0 && f.Geometry != nil {
			f.Geometry = roundGeometry(f.Geometry, precision)
			f.BBox = roundBBox(f.BBox, precision)
		}
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if ndjson {
			w.Write(data)
			w.WriteByte('\n')
		} else {
			if written > 0 {
				w.WriteByte(',')
			}
			w.Write(data)
		}
		written++
	}

	if !ndjson {
		boxJSON, err := json.Marshal(bbox[:])
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `],"bbox":%s}`, boxJSON); err != nil {
			return err
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

// sibling resolves a companion file path: an explicit override wins, else the
// input path with its extension swapped, if that file exists.
func sibling(shpPath, override, ext string) string {
	if override != "" {
		return override
	}
	p := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ext
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func roundGeometry(g orb.Geometry, precision int) orb.Geometry {
	factor := math.Pow10(precision)
	round := func(p orb.Point) orb.Point {
		return orb.Point{
			math.Round(p[0]*factor) / factor,
			math.Round(p[1]*factor) / factor,
		}
	}
	switch v := g.(type) {
	case orb.Point:
		return round(v)
	case orb.MultiPoint:
		for i := range v {
			v[i] = round(v[i])
		}
		return v
	case orb.LineString:
		for i := range v {
			v[i] = round(v[i])
		}
		return v
	case orb.MultiLineString:
		for _, ls := range v {
			for i := range ls {
				ls[i] = round(ls[i])
			}
		}
		return v
	case orb.Polygon:
		for _, ring := range v {
			for i := range ring {
				ring[i] = round(ring[i])
			}
		}
		return v
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, ring := range poly {
				for i := range ring {
					ring[i] = round(ring[i])
				}
			}
		}
		return v
	default:
		return g
	}
}

func roundBBox(b geojson.BBox, precision int) geojson.BBox {
	factor := math.Pow10(precision)
	for i := range b {
		b[i] = math.Round(b[i]*factor) / factor
	}
	return b
}
