// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppypanda/geocoding/address"
	"github.com/cppypanda/geocoding/keys"
	"github.com/cppypanda/geocoding/resolve"
)

func beijingQuery() resolve.Query {
	admin := address.Parsed{
		Province: "北京市",
		City:     "北京市",
		County:   "海淀区",
		Detail:   "中关村1号",
	}

	return resolve.Query{
		RawText:       "北京市海淀区中关村1号",
		Admin:         admin,
		CompletedText: address.Complete(admin),
	}
}

func TestAmapGeocodeSelectsBestCandidate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/geocode/geo", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.NotEmpty(t, r.URL.Query().Get("address"))

		fmt.Fprint(w, `{
			"status": "1", "info": "OK", "infocode": "10000",
			"geocodes": [
				{
					"location": "121.48,31.22",
					"formatted_address": "上海市浦东新区中关村1号",
					"province": "上海市", "city": "上海市", "district": "浦东新区",
					"level": "门牌号"
				},
				{
					"location": "116.318,39.984",
					"formatted_address": "北京市海淀区中关村1号",
					"province": "北京市", "city": [], "district": "海淀区",
					"level": "门牌号"
				}
			]
		}`)
	}))
	defer ts.Close()

	manager := testKeyManager(t, "amap")
	amap := NewAmap(manager, resolve.NewScorer(nil), testOptions(ts))

	cands, err := amap.Geocode(context.Background(), beijingQuery())
	require.NoError(t, err)

	// Internal selection surfaces exactly one candidate: the wrong-city one
	// is filtered to zero by the administrative gate.
	require.Len(t, cands, 1)
	assert.Equal(t, "北京市海淀区中关村1号", cands[0].FormattedAddress)
	assert.Equal(t, "北京市", cands[0].Province)
	require.NotNil(t, cands[0].GCJ02)
	assert.InDelta(t, 116.318, cands[0].GCJ02.Lng, 1e-9)
	assert.Equal(t, resolve.StrategyTextSimilarity, cands[0].Strategy)
}

func TestAmapGeocodeInvalidKeyRetiresIt(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","info":"INVALID_USER_KEY","infocode":"10001"}`)
	}))
	defer ts.Close()

	manager := testKeyManager(t, "amap")
	amap := NewAmap(manager, resolve.NewScorer(nil), testOptions(ts))

	_, err := amap.Geocode(context.Background(), beijingQuery())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, keys.ReasonInvalid, apiErr.Reason)

	requireKeyBenched(t, manager, "amap")
}

func TestAmapGeocodeQuotaExceeded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","info":"DAILY_QUERY_OVER_LIMIT","infocode":"10044"}`)
	}))
	defer ts.Close()

	manager := testKeyManager(t, "amap")
	amap := NewAmap(manager, resolve.NewScorer(nil), testOptions(ts))

	_, err := amap.Geocode(context.Background(), beijingQuery())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, keys.ReasonQuotaExceeded, apiErr.Reason)
}

func TestAmapGeocodeNoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"1","info":"OK","infocode":"10000","geocodes":[]}`)
	}))
	defer ts.Close()

	amap := NewAmap(testKeyManager(t, "amap"), resolve.NewScorer(nil), testOptions(ts))

	_, err := amap.Geocode(context.Background(), beijingQuery())
	assert.ErrorIs(t, err, resolve.ErrNoCandidates)
}

func TestAmapGeocodeNoAvailableKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be issued without a key")
	}))
	defer ts.Close()

	manager := keys.NewManager(keys.NewMemoryStore())
	amap := NewAmap(manager, resolve.NewScorer(nil), testOptions(ts))

	_, err := amap.Geocode(context.Background(), beijingQuery())
	assert.ErrorIs(t, err, keys.ErrNoAvailableKey)
}

func TestAmapReverseGeocode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/geocode/regeo", r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("extensions"))

		fmt.Fprint(w, `{
			"status": "1", "info": "OK", "infocode": "10000",
			"regeocode": {
				"formatted_address": "北京市海淀区中关村大街1号",
				"addressComponent": {"province": "北京市", "city": [], "district": "海淀区"}
			}
		}`)
	}))
	defer ts.Close()

	amap := NewAmap(testKeyManager(t, "amap"), resolve.NewScorer(nil), testOptions(ts))

	result, err := amap.ReverseGeocode(context.Background(), 39.984, 116.318)
	require.NoError(t, err)
	assert.Equal(t, "北京市海淀区中关村大街1号", result.FormattedAddress)
	assert.Equal(t, "海淀区", result.District)
}

func TestAmapSearchPOI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/place/text", r.URL.Path)
		assert.Equal(t, "星巴克", r.URL.Query().Get("keywords"))

		fmt.Fprint(w, `{
			"status": "1", "info": "OK", "infocode": "10000",
			"pois": [
				{
					"name": "星巴克(望京店)", "address": "望京街10号",
					"pname": "北京市", "cityname": "北京市", "adname": "朝阳区",
					"location": "116.480,39.996"
				},
				{"name": "无坐标店", "address": "", "location": ""}
			]
		}`)
	}))
	defer ts.Close()

	amap := NewAmap(testKeyManager(t, "amap"), resolve.NewScorer(nil), testOptions(ts))

	cands, err := amap.SearchPOI(context.Background(), resolve.Query{RawText: "星巴克"})
	require.NoError(t, err)

	// The entry without coordinates is dropped.
	require.Len(t, cands, 1)
	assert.Equal(t, "星巴克(望京店)", cands[0].Name)
	assert.Equal(t, "朝阳区", cands[0].District)
	require.NotNil(t, cands[0].GCJ02)
}
