// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
)

func TestTiandituGeocode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoder", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("tk"))

		var ds map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("ds")), &ds))
		assert.NotEmpty(t, ds["keyWord"])

		// Tianditu quotes its numbers.
		fmt.Fprint(w, `{
			"status": "0", "msg": "ok",
			"location": {
				"lon": "116.3154", "lat": "39.9822",
				"score": "85", "level": "门址", "keyWord": "北京市海淀区中关村1号"
			}
		}`)
	}))
	defer ts.Close()

	tianditu := NewTianditu(testKeyManager(t, "tianditu"), testOptions(ts))

	cands, err := tianditu.Geocode(context.Background(), beijingQuery())
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "tianditu", c.Provider)
	assert.Equal(t, resolve.StrategyNativeScore, c.Strategy)
	assert.Equal(t, []float64{85}, c.NativeScores)

	// Native coordinates are WGS84; admin fields stay empty for
	// post-processing to fill.
	require.NotNil(t, c.WGS84)
	assert.Nil(t, c.GCJ02)
	assert.InDelta(t, 116.3154, c.WGS84.Lng, 1e-9)
	assert.Empty(t, c.Province)
	assert.Empty(t, c.City)
	assert.Empty(t, c.District)
}

func TestTiandituGeocodeNoLocation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "0", "msg": "ok"}`)
	}))
	defer ts.Close()

	tianditu := NewTianditu(testKeyManager(t, "tianditu"), testOptions(ts))

	_, err := tianditu.Geocode(context.Background(), beijingQuery())
	assert.ErrorIs(t, err, resolve.ErrNoCandidates)
}

func TestTiandituGeocodeIllegalKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "404", "msg": "非法Key"}`)
	}))
	defer ts.Close()

	manager := testKeyManager(t, "tianditu")
	tianditu := NewTianditu(manager, testOptions(ts))

	_, err := tianditu.Geocode(context.Background(), beijingQuery())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, keys.ReasonInvalid, apiErr.Reason)

	requireKeyBenched(t, manager, "tianditu")
}

func TestTiandituReverseGeocodeAssemblesFallbackAddress(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geocode", r.URL.Query().Get("type"))

		var post map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("postStr")), &post))
		assert.InDelta(t, 116.318, post["lon"].(float64), 1e-9)

		fmt.Fprint(w, `{
			"status": "0", "msg": "ok",
			"result": {
				"formatted_address": "",
				"addressComponent": {"province": "北京市", "city": "北京市", "district": "海淀区"}
			}
		}`)
	}))
	defer ts.Close()

	tianditu := NewTianditu(testKeyManager(t, "tianditu"), testOptions(ts))

	result, err := tianditu.ReverseGeocode(context.Background(), 39.984, 116.318)
	require.NoError(t, err)
	// Empty formatted address falls back to the joined administrative levels.
	assert.Equal(t, "北京市北京市海淀区", result.FormattedAddress)
	assert.Equal(t, "海淀区", result.District)
}

func TestTiandituSearchPOIWithSpecify(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/search", r.URL.Path)

		var post map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("postStr")), &post))
		assert.Equal(t, "北京市", post["specify"])
		assert.Empty(t, post["mapBound"])

		fmt.Fprint(w, `{
			"resultType": 1,
			"pois": [
				{
					"name": "星巴克(望京店)", "address": "望京街10号",
					"lonlat": "116.480,39.996",
					"province": "北京市", "city": "北京市", "county": "北京市朝阳区"
				}
			]
		}`)
	}))
	defer ts.Close()

	tianditu := NewTianditu(testKeyManager(t, "tianditu"), testOptions(ts))

	q := beijingQuery()
	q.RawText = "星巴克"

	cands, err := tianditu.SearchPOI(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	// The county name is normalized down to the district level.
	assert.Equal(t, "朝阳区", cands[0].District)
	require.NotNil(t, cands[0].WGS84)
}

func TestTiandituSearchPOINationwideBound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var post map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("postStr")), &post))
		assert.Equal(t, chinaMapBound, post["mapBound"])
		assert.Equal(t, "18", post["level"])

		fmt.Fprint(w, `{"resultType": 2}`)
	}))
	defer ts.Close()

	tianditu := NewTianditu(testKeyManager(t, "tianditu"), testOptions(ts))

	cands, err := tianditu.SearchPOI(context.Background(), resolve.Query{RawText: "星巴克"})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestTiandituSearchPOIIllegalKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": {"infocode": 10001, "cndesc": "非法Key"}, "resultType": 1}`)
	}))
	defer ts.Close()

	manager := testKeyManager(t, "tianditu")
	tianditu := NewTianditu(manager, testOptions(ts))

	_, err := tianditu.SearchPOI(context.Background(), resolve.Query{RawText: "星巴克"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, keys.ReasonInvalid, apiErr.Reason)

	requireKeyBenched(t, manager, "tianditu")
}

func TestNormalizeAdminName(t *testing.T) {
	for _, tc := range []struct {
		name, admin, province, city, want string
	}{
		{"plain district", "朝阳区", "北京市", "北京市", "朝阳区"},
		{"city prefix stripped", "北京市朝阳区", "北京市", "北京市", "朝阳区"},
		{"county level extracted", "来宾市兴宾区迁江镇", "广西壮族自治区", "来宾市", "兴宾区"},
		{"no district marker", "某个地方", "", "", "某个地方"},
		{"empty", "", "北京市", "北京市", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeAdminName(tc.admin, tc.province, tc.city))
		})
	}
}
