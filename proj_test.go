package shapefile

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const webMercatorWKT = `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],UNIT["Meter",1.0]]`

const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

func TestParseProjectionIdentity(t *testing.T) {
	for _, desc := range []string{"", "EPSG:4326", "WGS84", wgs84WKT} {
		proj, err := ParseProjection(desc)
		if err != nil {
			t.Errorf("ParseProjection(%.30q): %v", desc, err)
		}
		if proj != nil {
			t.Errorf("ParseProjection(%.30q): expected identity (nil)", desc)
		}
	}
}

func TestParseProjectionMercator(t *testing.T) {
	for _, desc := range []string{"EPSG:3857", webMercatorWKT} {
		proj, err := ParseProjection(desc)
		if err != nil {
			t.Fatalf("ParseProjection(%.30q): %v", desc, err)
		}
		if proj == nil {
			t.Fatalf("ParseProjection(%.30q): expected mercator inverse", desc)
		}

		src := orb.Point{13.405, 52.52}
		got := proj(project.WGS84.ToMercator(src))
		if math.Abs(got[0]-src[0]) > 1e-9 || math.Abs(got[1]-src[1]) > 1e-9 {
			t.Errorf("mercator inverse of %v: got %v", src, got)
		}
	}
}

func TestParseProjectionUnknown(t *testing.T) {
	_, err := ParseProjection(`PROJCS["NAD_1983_StatePlane_Texas"]`)
	if err == nil {
		t.Fatal("expected error for unrecognized spatial reference")
	}
}
