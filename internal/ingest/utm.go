package ingest

import "math"

// UTM zone 33N -> WGS84 inverse projection (Karney/Krüger series), the zone
// N50 source data ships in (spec.md §4.1, §6).
//
// Grounded on the teacher's approach to coordinate-system bookkeeping
// (internal/parser/dataset.go convertCoordinate, which turns integer COMF
// fixed-point values into decimal degrees): like that function, this one is
// a small, self-contained numeric conversion with no external geodesy
// dependency, since no projection library appears anywhere in the example
// corpus.
const (
	utmZone33CentralMeridian = 15.0 // degrees east
	utmFalseEasting          = 500000.0
	utmScaleFactor           = 0.9996

	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
)

// UTM33NToWGS84 converts an easting/northing pair (metres, UTM zone 33N,
// northern hemisphere) to WGS84 (lon, lat) in decimal degrees.
func UTM33NToWGS84(easting, northing float64) (lon, lat float64) {
	a := wgs84A
	f := wgs84F
	n := f / (2 - f)

	// Series coefficients for the Krüger transverse Mercator inverse, to
	// third order in n; this matches the precision GDAL/PROJ use for UTM.
	n2 := n * n
	n3 := n2 * n
	beta1 := n/2 - 2*n2/3 + 37*n3/96
	beta2 := n2/48 + n3/15
	beta3 := 17 * n3 / 480

	a_ := a / (1 + n) * (1 + n2/4 + n3*n/64)

	xi := northing / (a_ * utmScaleFactor)
	eta := (easting - utmFalseEasting) / (a_ * utmScaleFactor)

	xiPrime := xi
	etaPrime := eta
	for j, beta := range []float64{beta1, beta2, beta3} {
		k := float64(j + 1)
		xiPrime -= beta * math.Sin(2*k*xi) * math.Cosh(2*k*eta)
		etaPrime -= beta * math.Cos(2*k*xi) * math.Sinh(2*k*eta)
	}

	chi := math.Asin(math.Sin(xiPrime) / math.Cosh(etaPrime))
	e2 := f * (2 - f)
	e4 := e2 * e2
	e6 := e4 * e2
	// Conformal latitude series inverse.
	phi := chi +
		(e2/2+5*e4/24+e6/12)*math.Sin(2*chi) +
		(7*e4/48+29*e6/240)*math.Sin(4*chi) +
		(7 * e6 / 120 * math.Sin(6*chi))

	lambda := math.Atan2(math.Sinh(etaPrime), math.Cos(xiPrime))

	lat = phi * 180 / math.Pi
	lon = utmZone33CentralMeridian + lambda*180/math.Pi
	return lon, lat
}
