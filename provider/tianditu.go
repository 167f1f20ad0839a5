// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
	"github.com/cppypanda/geocoding/spatial"
)

const tiandituBaseURL = "https://api.tianditu.gov.cn"

// chinaMapBound is the rough national bounding box required by the Tianditu
// POI search when no administrative area narrows the query.
const chinaMapBound = "73,3,136,54"

// Tianditu adapts the national Tianditu service. It speaks WGS84 (CGCS2000)
// natively and its geocoding answers carry no administrative fields at all:
// post-processing fills those in. Candidates score by the vendor's native
// score metric.
type Tianditu struct {
	client
	baseURL string
}

// NewTianditu creates the Tianditu adapter.
func NewTianditu(manager *keys.Manager, opts *Options) *Tianditu {
	baseURL := tiandituBaseURL
	if opts != nil && opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	return &Tianditu{
		client:  newClient("tianditu", manager, opts),
		baseURL: baseURL,
	}
}

// ID implements resolve.Geocoder.
func (t *Tianditu) ID() string { return "tianditu" }

type tiandituGeocodeResponse struct {
	Status   string `json:"status"`
	Msg      string `json:"msg"`
	Location *struct {
		Lon     flexFloat  `json:"lon"`
		Lat     flexFloat  `json:"lat"`
		Score   flexFloat  `json:"score"`
		Level   flexString `json:"level"`
		KeyWord flexString `json:"keyWord"`
	} `json:"location"`
}

// Geocode implements resolve.Geocoder.
func (t *Tianditu) Geocode(ctx context.Context, q resolve.Query) ([]resolve.Candidate, error) {
	ds, err := json.Marshal(map[string]string{"keyWord": q.Text()})
	if err != nil {
		return nil, fmt.Errorf("encoding tianditu query: %w", err)
	}

	params := url.Values{}
	params.Set("ds", string(ds))

	var resp tiandituGeocodeResponse

	keyValue, err := t.get(ctx, q.UserID, t.baseURL+"/geocoder", "tk", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != "0" {
		return nil, t.reject(keyValue, resp.Status, resp.Msg, tiandituFailureReason(resp.Msg))
	}

	t.reportSuccess(keyValue)

	if resp.Location == nil {
		return nil, resolve.ErrNoCandidates
	}

	return []resolve.Candidate{{
		Provider:         t.ID(),
		FormattedAddress: string(resp.Location.KeyWord),
		// Administrative fields stay empty: the deferred reverse geocode
		// and the parser fill them during post-processing.
		WGS84: &spatial.Point{
			Lat: float64(resp.Location.Lat),
			Lng: float64(resp.Location.Lon),
		},
		NativeScores: []float64{float64(resp.Location.Score)},
		Strategy:     resolve.StrategyNativeScore,
	}}, nil
}

type tiandituReverseResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Result struct {
		FormattedAddress flexString `json:"formatted_address"`
		AddressComponent struct {
			Province flexString `json:"province"`
			City     flexString `json:"city"`
			District flexString `json:"district"`
		} `json:"addressComponent"`
	} `json:"result"`
}

// ReverseGeocode implements resolve.Geocoder.
func (t *Tianditu) ReverseGeocode(ctx context.Context, lat, lng float64) (*resolve.ReverseResult, error) {
	postStr, err := json.Marshal(map[string]any{"lon": lng, "lat": lat, "ver": "1"})
	if err != nil {
		return nil, fmt.Errorf("encoding tianditu query: %w", err)
	}

	params := url.Values{}
	params.Set("postStr", string(postStr))
	params.Set("type", "geocode")

	var resp tiandituReverseResponse

	keyValue, err := t.get(ctx, 0, t.baseURL+"/geocoder", "tk", params, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != "0" {
		return nil, t.reject(keyValue, resp.Status, resp.Msg, tiandituFailureReason(resp.Msg))
	}

	t.reportSuccess(keyValue)

	comp := resp.Result.AddressComponent

	formatted := string(resp.Result.FormattedAddress)
	if formatted == "" {
		// Assemble a readable address from the administrative levels so
		// enrichment never falls back to the raw input.
		formatted = strings.TrimSpace(string(comp.Province) + string(comp.City) + string(comp.District))
	}

	return &resolve.ReverseResult{
		FormattedAddress: formatted,
		Province:         string(comp.Province),
		City:             string(comp.City),
		District:         string(comp.District),
	}, nil
}

type tiandituPOIResponse struct {
	Status struct {
		InfoCode int        `json:"infocode"`
		Cndesc   flexString `json:"cndesc"`
	} `json:"status"`
	ResultType int `json:"resultType"`
	POIs       []struct {
		Name     flexString `json:"name"`
		Address  flexString `json:"address"`
		LonLat   string     `json:"lonlat"`
		Province flexString `json:"province"`
		City     flexString `json:"city"`
		County   flexString `json:"county"`
	} `json:"pois"`
}

// SearchPOI implements resolve.Geocoder.
func (t *Tianditu) SearchPOI(ctx context.Context, q resolve.Query) ([]resolve.Candidate, error) {
	post := map[string]string{
		"keyWord":   q.Text(),
		"queryType": "1",
		"start":     "0",
		"count":     "20",
	}

	// Narrow by administrative area when the parser knows one; otherwise a
	// nationwide bound is mandatory for queryType 1.
	specify := q.Admin.City
	if specify == "" {
		specify = q.Admin.Province
	}

	if specify != "" {
		post["specify"] = specify
		post["level"] = "10"
	} else {
		post["level"] = "18"
		post["mapBound"] = chinaMapBound
	}

	postStr, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("encoding tianditu query: %w", err)
	}

	params := url.Values{}
	params.Set("postStr", string(postStr))
	params.Set("type", "query")
	params.Set("show", "2")

	var resp tiandituPOIResponse

	keyValue, err := t.get(ctx, q.UserID, t.baseURL+"/v2/search", "tk", params, &resp)
	if err != nil {
		return nil, err
	}

	// The v2 search wraps rejections in its own status object; 1000 is the
	// success code, and it is omitted entirely on some answers.
	if code := resp.Status.InfoCode; code != 0 && code != 1000 {
		desc := string(resp.Status.Cndesc)

		return nil, t.reject(keyValue, strconv.Itoa(code), desc, tiandituFailureReason(desc))
	}

	t.reportSuccess(keyValue)

	// Other result types carry statistics, administrative areas or
	// suggestions, never POIs.
	if resp.ResultType != 1 {
		return nil, nil
	}

	var out []resolve.Candidate

	for _, p := range resp.POIs {
		lng, lat, err := parseLngLat(p.LonLat)
		if err != nil {
			continue
		}

		province := string(p.Province)
		city := string(p.City)

		out = append(out, resolve.Candidate{
			Provider:         t.ID(),
			Name:             string(p.Name),
			FormattedAddress: string(p.Address),
			Province:         province,
			City:             city,
			District:         normalizeAdminName(string(p.County), province, city),
			WGS84:            &spatial.Point{Lat: lat, Lng: lng},
			Strategy:         resolve.StrategyTextSimilarity,
		})
	}

	return out, nil
}

var districtRe = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,}?(?:区|县|旗)`)

// normalizeAdminName trims redundant province/city prefixes off a district
// name and cuts it down to the county level where possible, so that the
// administrative filter compares like with like.
func normalizeAdminName(name, province, city string) string {
	if name == "" {
		return name
	}

	for _, prefix := range []string{province, city} {
		if prefix != "" {
			name = strings.TrimPrefix(name, prefix)
		}
	}

	if m := districtRe.FindString(name); m != "" {
		return m
	}

	return name
}

func tiandituFailureReason(msg string) keys.FailureReason {
	if strings.Contains(strings.ToLower(msg), "key") || strings.Contains(msg, "非法") {
		return keys.ReasonInvalid
	}

	return keys.ReasonOther
}
