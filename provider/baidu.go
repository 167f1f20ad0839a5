// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
	"github.com/cppypanda/geocoding/spatial"
)

const baiduBaseURL = "https://api.map.baidu.com"

// Baidu adapts the Baidu Maps REST API. Geocoding answers carry the vendor's
// confidence and comprehension metrics, so candidates score by native score
// rather than text similarity; POI search speaks BD09 coordinates that are
// converted on the way in.
type Baidu struct {
	client
	baseURL string
}

// NewBaidu creates the Baidu adapter.
func NewBaidu(manager *keys.Manager, opts *Options) *Baidu {
	baseURL := baiduBaseURL
	if opts != nil && opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	return &Baidu{
		client:  newClient("baidu", manager, opts),
		baseURL: baseURL,
	}
}

// ID implements resolve.Geocoder.
func (b *Baidu) ID() string { return "baidu" }

type baiduGeocodeResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  struct {
		Location struct {
			Lng float64 `json:"lng"`
			Lat float64 `json:"lat"`
		} `json:"location"`
		FormattedAddress flexString `json:"formatted_address"`
		AddressComponent struct {
			Province flexString `json:"province"`
			City     flexString `json:"city"`
			District flexString `json:"district"`
		} `json:"addressComponent"`
		Level         flexString `json:"level"`
		Confidence    flexFloat  `json:"confidence"`
		Comprehension flexFloat  `json:"comprehension"`
	} `json:"result"`
}

// Geocode implements resolve.Geocoder.
func (b *Baidu) Geocode(ctx context.Context, q resolve.Query) ([]resolve.Candidate, error) {
	params := url.Values{}
	params.Set("address", q.Text())
	params.Set("output", "json")
	params.Set("ret_coordtype", "gcj02ll")

	var resp baiduGeocodeResponse

	keyValue, err := b.get(ctx, q.UserID, b.baseURL+"/geocoding/v3/", "ak", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != 0 {
		return nil, b.reject(keyValue, fmt.Sprint(resp.Status), resp.Message, baiduFailureReason(resp.Status))
	}

	b.reportSuccess(keyValue)

	if resp.Result.Location.Lng == 0 && resp.Result.Location.Lat == 0 {
		return nil, resolve.ErrNoCandidates
	}

	return []resolve.Candidate{{
		Provider:         b.ID(),
		FormattedAddress: string(resp.Result.FormattedAddress),
		Province:         string(resp.Result.AddressComponent.Province),
		City:             string(resp.Result.AddressComponent.City),
		District:         string(resp.Result.AddressComponent.District),
		GCJ02: &spatial.Point{
			Lat: resp.Result.Location.Lat,
			Lng: resp.Result.Location.Lng,
		},
		NativeScores: []float64{
			float64(resp.Result.Confidence),
			float64(resp.Result.Comprehension),
		},
		Strategy: resolve.StrategyNativeScore,
	}}, nil
}

type baiduReverseResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  struct {
		FormattedAddress flexString `json:"formatted_address"`
		AddressComponent struct {
			Province flexString `json:"province"`
			City     flexString `json:"city"`
			District flexString `json:"district"`
		} `json:"addressComponent"`
	} `json:"result"`
}

// ReverseGeocode implements resolve.Geocoder.
func (b *Baidu) ReverseGeocode(ctx context.Context, lat, lng float64) (*resolve.ReverseResult, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("coordtype", "wgs84ll")
	params.Set("ret_coordtype", "gcj02ll")
	params.Set("output", "json")

	var resp baiduReverseResponse

	keyValue, err := b.get(ctx, 0, b.baseURL+"/reverse_geocoding/v3/", "ak", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != 0 {
		return nil, b.reject(keyValue, fmt.Sprint(resp.Status), resp.Message, baiduFailureReason(resp.Status))
	}

	b.reportSuccess(keyValue)

	return &resolve.ReverseResult{
		FormattedAddress: string(resp.Result.FormattedAddress),
		Province:         string(resp.Result.AddressComponent.Province),
		City:             string(resp.Result.AddressComponent.City),
		District:         string(resp.Result.AddressComponent.District),
	}, nil
}

type baiduPOIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Results []struct {
		Name     flexString `json:"name"`
		Address  flexString `json:"address"`
		Province flexString `json:"province"`
		City     flexString `json:"city"`
		Area     flexString `json:"area"`
		Location struct {
			Lng float64 `json:"lng"`
			Lat float64 `json:"lat"`
		} `json:"location"`
	} `json:"results"`
}

// SearchPOI implements resolve.Geocoder.
func (b *Baidu) SearchPOI(ctx context.Context, q resolve.Query) ([]resolve.Candidate, error) {
	region := q.Admin.City
	if region == "" {
		region = q.Admin.Province
	}

	if region == "" {
		region = "全国"
	}

	params := url.Values{}
	params.Set("query", q.Text())
	params.Set("region", region)
	params.Set("output", "json")
	params.Set("scope", "2")
	params.Set("page_size", "20")
	params.Set("ret_coordtype", "bd09ll")

	var resp baiduPOIResponse

	keyValue, err := b.get(ctx, q.UserID, b.baseURL+"/place/v2/search", "ak", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != 0 {
		return nil, b.reject(keyValue, fmt.Sprint(resp.Status), resp.Message, baiduFailureReason(resp.Status))
	}

	b.reportSuccess(keyValue)

	var out []resolve.Candidate

	for _, p := range resp.Results {
		if p.Location.Lng == 0 && p.Location.Lat == 0 {
			continue
		}

		wgsLng, wgsLat := spatial.BD09ToWGS84(p.Location.Lng, p.Location.Lat)

		out = append(out, resolve.Candidate{
			Provider:         b.ID(),
			Name:             string(p.Name),
			FormattedAddress: string(p.Address),
			Province:         string(p.Province),
			City:             string(p.City),
			District:         string(p.Area),
			WGS84:            &spatial.Point{Lat: wgsLat, Lng: wgsLng},
			Strategy:         resolve.StrategyTextSimilarity,
		})
	}

	return out, nil
}

func baiduFailureReason(status int) keys.FailureReason {
	switch status {
	case 301, 302:
		return keys.ReasonQuotaExceeded
	case 401, 402:
		return keys.ReasonInvalid
	default:
		return keys.ReasonOther
	}
}
