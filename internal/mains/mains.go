// Package mains works out the local electrical mains frequency and builds the
// notch filter that strips mains hum from recordings.
package mains

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Fallback is used when the timezone cannot be tied to a country
const Fallback = 50

// Source says where a frequency came from
type Source string

const (
	SourceConfigured Source = "configured"
	SourceTimezone   Source = "timezone"
	SourceFallback   Source = "fallback"
)

// Detection is a mains frequency and how it was found
type Detection struct {
	Hz       int
	Source   Source
	Timezone string // empty when configured
	Country  string // set when the timezone mapped to a country
	Mixed    bool   // the country runs both 50 and 60 Hz grids
}

// Resolve keeps hz when it is 50 or 60 and detects from the local timezone otherwise
func Resolve(hz int) Detection {
	if hz == 50 || hz == 60 {
		return Detection{Hz: hz, Source: SourceConfigured}
	}
	return Detect()
}

// Detect looks up the system timezone's country
func Detect() Detection {
	zone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return Detection{Hz: Fallback, Source: SourceFallback}
	}
	return DetectForTimezone(zone)
}

// DetectForTimezone maps an IANA timezone to its country's mains frequency
func DetectForTimezone(zone string) Detection {
	d := Detection{Hz: Fallback, Source: SourceFallback, Timezone: zone}

	// UTC and Etc/* zones carry no country
	if zone == "UTC" || zone == "GMT" || strings.HasPrefix(zone, "Etc/") {
		return d
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return d
	}
	country, err := tzMap.GetCountry(zone)
	if err != nil {
		return d
	}

	d.Country = country
	d.Source = SourceTimezone
	d.Hz, d.Mixed = countryFrequency(country)
	return d
}

func countryFrequency(country string) (int, bool) {
	if hz, ok := mixedGrids[country]; ok {
		return hz, true
	}
	if hz60Countries[country] {
		return 60, false
	}
	return 50, false
}

// mixedGrids holds countries split between 50 and 60 Hz, mapped to the grid
// serving most of the population.
var mixedGrids = map[string]int{
	"Japan":  50, // east of the Fuji river, Tokyo included
	"Brazil": 60,
}

// hz60Countries lists countries on 60 Hz mains; everything else is 50 Hz.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var hz60Countries = map[string]bool{
	// North and Central America
	"United States": true, "Canada": true, "Mexico": true,
	"Belize": true, "Costa Rica": true, "El Salvador": true, "Guatemala": true,
	"Honduras": true, "Nicaragua": true, "Panama": true,

	// Caribbean
	"Bahamas": true, "Barbados": true, "Cayman Islands": true, "Cuba": true,
	"Dominican Republic": true, "Haiti": true, "Jamaica": true, "Puerto Rico": true,
	"Trinidad and Tobago": true, "U.S. Virgin Islands": true,

	// South America
	"Colombia": true, "Ecuador": true, "Guyana": true, "Peru": true,
	"Suriname": true, "Venezuela": true,

	// Asia
	"South Korea": true, "Taiwan": true, "Philippines": true, "Saudi Arabia": true,

	// Pacific
	"Guam": true, "American Samoa": true, "Marshall Islands": true,
	"Micronesia": true, "Palau": true,
}
