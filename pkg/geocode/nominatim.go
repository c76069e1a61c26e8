package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const nominatimSearchURL = "https://nominatim.openstreetmap.org/search"

// nominatimPlace is one entry of the JSON array returned by Nominatim search.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
}

// geocodeNominatim geocodes a single address using the Nominatim search API.
func (g *geocoder) geocodeNominatim(ctx context.Context, addr AddressInput) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	oneLine := formatOneLine(addr)
	if oneLine == "" {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	params := url.Values{
		"q":      {oneLine},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	var places []nominatimPlace
	if err := g.fetchJSON(ctx, "nominatim", g.nominatimURL+"?"+params.Encode(), &places); err != nil {
		return nil, err
	}

	if len(places) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lat")
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lon")
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "nominatim",
		Quality:   nominatimQuality(place.Class, place.Type),
		Matched:   true,
	}, nil
}

// nominatimQuality maps Nominatim place class/type to our quality taxonomy.
func nominatimQuality(class, typ string) string {
	switch {
	case class == "building" || typ == "house":
		return "rooftop"
	case class == "place" || class == "boundary":
		return "centroid"
	default:
		return "approximate"
	}
}

// formatOneLine formats an address as a single query line.
func formatOneLine(addr AddressInput) string {
	parts := []string{addr.Street, addr.City, addr.State, addr.ZipCode}
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
