// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
	"github.com/cppypanda/geocoding/spatial"
)

const amapBaseURL = "https://restapi.amap.com"

// Amap adapts the Gaode REST API. It is the text-similarity provider: when
// the vendor returns several geocodes, each is scored against the query and
// only the single best one surfaces into the cascade.
type Amap struct {
	client
	scorer  *resolve.Scorer
	baseURL string
}

// NewAmap creates the Amap adapter.
func NewAmap(manager *keys.Manager, scorer *resolve.Scorer, opts *Options) *Amap {
	baseURL := amapBaseURL
	if opts != nil && opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	return &Amap{
		client:  newClient("amap", manager, opts),
		scorer:  scorer,
		baseURL: baseURL,
	}
}

// ID implements resolve.Geocoder.
func (a *Amap) ID() string { return "amap" }

type amapGeocodeResponse struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	Infocode string `json:"infocode"`
	Geocodes []struct {
		Location         string     `json:"location"`
		FormattedAddress flexString `json:"formatted_address"`
		Province         flexString `json:"province"`
		City             flexString `json:"city"`
		District         flexString `json:"district"`
		Level            flexString `json:"level"`
		Adcode           flexString `json:"adcode"`
	} `json:"geocodes"`
}

// Geocode implements resolve.Geocoder.
func (a *Amap) Geocode(ctx context.Context, q resolve.Query) ([]resolve.Candidate, error) {
	params := url.Values{}
	params.Set("address", q.Text())
	params.Set("output", "json")

	var resp amapGeocodeResponse

	keyValue, err := a.get(ctx, q.UserID, a.baseURL+"/v3/geocode/geo", "key", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != "1" {
		return nil, a.reject(keyValue, resp.Infocode, resp.Info, amapFailureReason(resp.Info))
	}

	a.reportSuccess(keyValue)

	if len(resp.Geocodes) == 0 {
		return nil, resolve.ErrNoCandidates
	}

	// Internal selection: never leak more than the best candidate upward.
	var (
		best      resolve.Candidate
		bestScore = -1.0
	)

	for _, g := range resp.Geocodes {
		lng, lat, err := parseLngLat(g.Location)
		if err != nil {
			continue
		}

		c := resolve.Candidate{
			Provider:         a.ID(),
			FormattedAddress: string(g.FormattedAddress),
			Province:         string(g.Province),
			City:             string(g.City),
			District:         string(g.District),
			GCJ02:            &spatial.Point{Lat: lat, Lng: lng},
			Strategy:         resolve.StrategyTextSimilarity,
		}

		if score := a.scorer.Score(q, c, resolve.ModeGeocoding); score > bestScore {
			best = c
			bestScore = score
		}
	}

	if bestScore < 0 {
		return nil, resolve.ErrNoCandidates
	}

	return []resolve.Candidate{best}, nil
}

type amapReverseResponse struct {
	Status    string `json:"status"`
	Info      string `json:"info"`
	Infocode  string `json:"infocode"`
	Regeocode struct {
		FormattedAddress flexString `json:"formatted_address"`
		AddressComponent struct {
			Province flexString `json:"province"`
			City     flexString `json:"city"`
			District flexString `json:"district"`
		} `json:"addressComponent"`
	} `json:"regeocode"`
}

// ReverseGeocode implements resolve.Geocoder.
func (a *Amap) ReverseGeocode(ctx context.Context, lat, lng float64) (*resolve.ReverseResult, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lng, lat))
	params.Set("output", "json")
	params.Set("extensions", "all")

	var resp amapReverseResponse

	keyValue, err := a.get(ctx, 0, a.baseURL+"/v3/geocode/regeo", "key", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != "1" {
		return nil, a.reject(keyValue, resp.Infocode, resp.Info, amapFailureReason(resp.Info))
	}

	a.reportSuccess(keyValue)

	return &resolve.ReverseResult{
		FormattedAddress: string(resp.Regeocode.FormattedAddress),
		Province:         string(resp.Regeocode.AddressComponent.Province),
		City:             string(resp.Regeocode.AddressComponent.City),
		District:         string(resp.Regeocode.AddressComponent.District),
	}, nil
}

type amapPOIResponse struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	Infocode string `json:"infocode"`
	POIs     []struct {
		Name     flexString `json:"name"`
		Address  flexString `json:"address"`
		PName    flexString `json:"pname"`
		CityName flexString `json:"cityname"`
		AdName   flexString `json:"adname"`
		Location string     `json:"location"`
	} `json:"pois"`
}

// SearchPOI implements resolve.Geocoder.
func (a *Amap) SearchPOI(ctx context.Context, q resolve.Query) ([]resolve.Candidate, error) {
	params := url.Values{}
	params.Set("keywords", q.Text())
	params.Set("offset", "20")
	params.Set("page", "1")
	params.Set("extensions", "all")

	if q.Admin.City != "" {
		params.Set("city", q.Admin.City)
	}

	var resp amapPOIResponse

	keyValue, err := a.get(ctx, q.UserID, a.baseURL+"/v3/place/text", "key", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != "1" {
		return nil, a.reject(keyValue, resp.Infocode, resp.Info, amapFailureReason(resp.Info))
	}

	a.reportSuccess(keyValue)

	var out []resolve.Candidate

	for _, p := range resp.POIs {
		lng, lat, err := parseLngLat(p.Location)
		if err != nil {
			continue
		}

		out = append(out, resolve.Candidate{
			Provider:         a.ID(),
			Name:             string(p.Name),
			FormattedAddress: string(p.Address),
			Province:         string(p.PName),
			City:             string(p.CityName),
			District:         string(p.AdName),
			GCJ02:            &spatial.Point{Lat: lat, Lng: lng},
			Strategy:         resolve.StrategyTextSimilarity,
		})
	}

	return out, nil
}

func amapFailureReason(info string) keys.FailureReason {
	switch {
	case strings.Contains(info, "INVALID_USER_KEY") || strings.Contains(info, "KEY_INVALID"):
		return keys.ReasonInvalid
	case strings.Contains(info, "DAILY_QUERY_OVER_LIMIT"):
		return keys.ReasonQuotaExceeded
	case strings.Contains(info, "CUQPS_HAS_EXCEEDED_THE_LIMIT"):
		return keys.ReasonRateLimited
	default:
		return keys.ReasonOther
	}
}
