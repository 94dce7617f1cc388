package shapefile

import (
	"strings"

	"github.com/paulmach/orb/project"
)

// ParseProjection builds the inverse projection for a source spatial
// reference described by desc, which may be ESRI/OGC WKT (the content of a
// .prj file) or a well-known identifier such as "EPSG:3857". The returned
// function maps source coordinates to WGS84 longitude/latitude.
//
// An empty descriptor, and any WGS84 geographic descriptor, yields a nil
// (identity) Projection. Unrecognized descriptors are an error; the decoder
// itself is projection-agnostic, so callers may always supply their own
// Projection instead.
func ParseProjection(desc string) (Projection, error) {
	s := strings.ToLower(strings.TrimSpace(desc))
	if s == "" {
		return nil, nil
	}
	switch {
	case strings.Contains(s, "epsg:4326"),
		strings.Contains(s, "gcs_wgs_1984"),
		strings.Contains(s, `geogcs["wgs 84"`),
		s == "wgs84", s == "wgs 84":
		return nil, nil

	case strings.Contains(s, "epsg:3857"),
		strings.Contains(s, "epsg:3785"),
		strings.Contains(s, "900913"),
		strings.Contains(s, "web_mercator"),
		strings.Contains(s, "pseudo-mercator"),
		strings.Contains(s, "pseudo_mercator"),
		strings.Contains(s, "mercator_auxiliary_sphere"):
		return Projection(project.Mercator.ToWGS84), nil
	}
	return nil, formatErr("projection", "unrecognized spatial reference %.60q", desc)
}
