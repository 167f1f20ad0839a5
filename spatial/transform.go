// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial provides geographic primitives and the coordinate-system
// transforms used by Chinese mapping vendors.
//
// Three reference systems are involved: WGS84 (GPS), GCJ02 (the mandated
// "Mars" offset spoken natively by Amap and Baidu), and BD09 (Baidu's
// additional offset on top of GCJ02). The GCJ02 distortion model below is the
// published reference algorithm; every vendor assumes the exact same
// constants, so they must not be re-derived.
package spatial

import "math"

const (
	pi  = 3.1415926535897932384626
	xPi = 3.14159265358979324 * 3000.0 / 180.0

	// Krasovsky 1940 ellipsoid, as used by the GCJ02 reference model.
	semiMajorAxis = 6378245.0
	eccentricity2 = 0.00669342162296594323
)

// System identifies a coordinate reference system.
type System string

// Supported coordinate systems.
const (
	WGS84 System = "WGS84"
	GCJ02 System = "GCJ02"
	BD09  System = "BD09"
)

// OutOfChina reports whether a point lies outside the mainland-China bounding
// box. Outside the box all transforms are identities.
func OutOfChina(lng, lat float64) bool {
	return !(lng > 73.66 && lng < 135.05 && lat > 3.86 && lat < 53.55)
}

func transformLat(lng, lat float64) float64 {
	ret := -100.0 + 2.0*lng + 3.0*lat + 0.2*lat*lat +
		0.1*lng*lat + 0.2*math.Sqrt(math.Abs(lng))
	ret += (20.0*math.Sin(6.0*lng*pi) + 20.0*math.Sin(2.0*lng*pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(lat*pi) + 40.0*math.Sin(lat/3.0*pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(lat/12.0*pi) + 320*math.Sin(lat*pi/30.0)) * 2.0 / 3.0

	return ret
}

func transformLng(lng, lat float64) float64 {
	ret := 300.0 + lng + 2.0*lat + 0.1*lng*lng +
		0.1*lng*lat + 0.1*math.Sqrt(math.Abs(lng))
	ret += (20.0*math.Sin(6.0*lng*pi) + 20.0*math.Sin(2.0*lng*pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(lng*pi) + 40.0*math.Sin(lng/3.0*pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(lng/12.0*pi) + 300.0*math.Sin(lng/30.0*pi)) * 2.0 / 3.0

	return ret
}

// delta returns the GCJ02 distortion for a WGS84 point.
func delta(lng, lat float64) (dLng, dLat float64) {
	dLat = transformLat(lng-105.0, lat-35.0)
	dLng = transformLng(lng-105.0, lat-35.0)
	radLat := lat / 180.0 * pi
	magic := math.Sin(radLat)
	magic = 1 - eccentricity2*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((semiMajorAxis * (1 - eccentricity2)) / (magic * sqrtMagic) * pi)
	dLng = (dLng * 180.0) / (semiMajorAxis / sqrtMagic * math.Cos(radLat) * pi)

	return dLng, dLat
}

// WGS84ToGCJ02 converts a GPS coordinate to the GCJ02 system.
func WGS84ToGCJ02(lng, lat float64) (float64, float64) {
	if OutOfChina(lng, lat) {
		return lng, lat
	}

	dLng, dLat := delta(lng, lat)

	return lng + dLng, lat + dLat
}

// GCJ02ToWGS84 converts a GCJ02 coordinate back to GPS. The reference model
// approximates the inverse by applying the forward distortion at the GCJ02
// point and subtracting it twice.
func GCJ02ToWGS84(lng, lat float64) (float64, float64) {
	if OutOfChina(lng, lat) {
		return lng, lat
	}

	dLng, dLat := delta(lng, lat)

	return lng*2 - (lng + dLng), lat*2 - (lat + dLat)
}

// GCJ02ToBD09 applies Baidu's polar offset on top of a GCJ02 coordinate.
func GCJ02ToBD09(lng, lat float64) (float64, float64) {
	z := math.Sqrt(lng*lng+lat*lat) + 0.00002*math.Sin(lat*xPi)
	theta := math.Atan2(lat, lng) + 0.000003*math.Cos(lng*xPi)

	return z*math.Cos(theta) + 0.0065, z*math.Sin(theta) + 0.006
}

// BD09ToGCJ02 removes Baidu's polar offset.
func BD09ToGCJ02(lng, lat float64) (float64, float64) {
	x := lng - 0.0065
	y := lat - 0.006
	z := math.Sqrt(x*x+y*y) - 0.00002*math.Sin(y*xPi)
	theta := math.Atan2(y, x) - 0.000003*math.Cos(x*xPi)

	return z * math.Cos(theta), z * math.Sin(theta)
}

// BD09ToWGS84 composes BD09→GCJ02→WGS84.
func BD09ToWGS84(lng, lat float64) (float64, float64) {
	gLng, gLat := BD09ToGCJ02(lng, lat)

	return GCJ02ToWGS84(gLng, gLat)
}

// WGS84ToBD09 composes WGS84→GCJ02→BD09.
func WGS84ToBD09(lng, lat float64) (float64, float64) {
	gLng, gLat := WGS84ToGCJ02(lng, lat)

	return GCJ02ToBD09(gLng, gLat)
}

// Convert transforms a coordinate between any two supported systems. The
// conversion is total: unknown pairs degrade to identity rather than error,
// and points outside China are never offset.
func Convert(lng, lat float64, from, to System) (float64, float64) {
	if from == to {
		return lng, lat
	}

	switch {
	case from == WGS84 && to == GCJ02:
		return WGS84ToGCJ02(lng, lat)
	case from == GCJ02 && to == WGS84:
		return GCJ02ToWGS84(lng, lat)
	case from == GCJ02 && to == BD09:
		return GCJ02ToBD09(lng, lat)
	case from == BD09 && to == GCJ02:
		return BD09ToGCJ02(lng, lat)
	case from == WGS84 && to == BD09:
		return WGS84ToBD09(lng, lat)
	case from == BD09 && to == WGS84:
		return BD09ToWGS84(lng, lat)
	}

	return lng, lat
}
