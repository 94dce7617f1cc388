package shapefile

import (
	"log/slog"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// ringInfo is one ring of a polygon record as a plain value: its points, its
// signed Shoelace area and its envelope. Nesting is resolved through indices
// into a flat slice of these, never through pointers inside the ring.
type ringInfo struct {
	ring  orb.Ring
	area  float64
	bound orb.Bound
}

// assembleRings reconstructs polygon nesting from the flat ring list of one
// polygon record. Source convention is clockwise outers (negative signed
// area) and counter-clockwise holes; output follows the GeoJSON right-hand
// rule, counter-clockwise outers and clockwise holes.
//
// Hole matching is heuristic: rings are sorted by signed area so the tightest
// enclosing outer is tried first, candidates are pruned by bounding box, and
// containment is decided by crossing-number tests over sampled ring points.
// It can misjudge touching rings; that is an accepted limitation of the
// format's winding conventions, not something this package second-guesses.
func assembleRings(rings []orb.Ring, logger *slog.Logger) (orb.Geometry, error) {
	infos := make([]ringInfo, len(rings))
	for i, r := range rings {
		if !r.Closed() {
			return nil, formatErr("ring", "ring %d is not closed", i)
		}
		area := signedArea(r)
		if area == 0 {
			return nil, formatErr("ring", "ring %d has zero area", i)
		}
		infos[i] = ringInfo{ring: r, area: area, bound: r.Bound()}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].area < infos[j].area })

	var outers, inners []int
	for i := range infos {
		if infos[i].area < 0 {
			outers = append(outers, i)
		} else {
			inners = append(inners, i)
		}
	}

	// Holes per outer, keyed by position in outers.
	holes := make([][]orb.Ring, len(outers))
	var orphans []int
	for _, in := range inners {
		inner := &infos[in]
		matched := false
		// Walk outers smallest-first so the tightest enclosing ring wins.
		for k := len(outers) - 1; k >= 0; k-- {
			outer := &infos[outers[k]]
			if math.Abs(outer.area) <= inner.area {
				continue
			}
			if ringEncloses(outer, inner) {
				holes[k] = append(holes[k], inner.ring)
				matched = true
				break
			}
		}
		if !matched {
			orphans = append(orphans, in)
		}
	}

	// Recoverable data-quality anomaly: promote orphan holes to outer
	// rings of their own.
	for _, in := range orphans {
		inner := &infos[in]
		logger.Warn("shapefile: hole ring has no enclosing ring, promoting to outer",
			"area", inner.area)
		reverseRing(inner.ring)
		inner.area = -inner.area
		outers = append(outers, in)
		holes = append(holes, nil)
	}

	if len(outers) == 0 {
		return nil, formatErr("ring", "polygon record has no outer ring")
	}

	polys := make(orb.MultiPolygon, len(outers))
	for k, idx := range outers {
		outer := infos[idx].ring
		reverseRing(outer)
		poly := make(orb.Polygon, 0, 1+len(holes[k]))
		poly = append(poly, outer)
		for _, h := range holes[k] {
			reverseRing(h)
			poly = append(poly, h)
		}
		polys[k] = poly
	}
	if len(polys) == 1 {
		return polys[0], nil
	}
	return polys, nil
}

// ringEncloses reports whether inner lies within outer. Sampled inner points
// inside the intersected bounding box are tested against the outer ring; if
// no sample lands inside the box the test is retried with the roles swapped.
func ringEncloses(outer, inner *ringInfo) bool {
	if !outer.bound.Intersects(inner.bound) {
		return false
	}
	box := intersectBound(outer.bound, inner.bound)
	sampled := false
	for _, p := range inner.ring {
		if !box.Contains(p) {
			continue
		}
		sampled = true
		if crossings(p, outer.ring)%2 == 1 {
			return true
		}
	}
	if !sampled {
		for _, p := range outer.ring {
			if box.Contains(p) && crossings(p, inner.ring)%2 == 1 {
				return true
			}
		}
	}
	return false
}

// crossings counts ray-edge intersections for a rightward ray from p.
func crossings(p orb.Point, r orb.Ring) int {
	n := 0
	for i := 0; i+1 < len(r); i++ {
		a, b := r[i], r[i+1]
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := a[0] + (p[1]-a[1])/(b[1]-a[1])*(b[0]-a[0])
			if x > p[0] {
				n++
			}
		}
	}
	return n
}

// signedArea is the Shoelace formula: positive for counter-clockwise rings,
// negative for clockwise.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

func reverseRing(r orb.Ring) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

func intersectBound(a, b orb.Bound) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Max(a.Min[0], b.Min[0]), math.Max(a.Min[1], b.Min[1])},
		Max: orb.Point{math.Min(a.Max[0], b.Max[0]), math.Min(a.Max[1], b.Max[1])},
	}
}
