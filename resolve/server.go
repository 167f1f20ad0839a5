// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppypanda/geocoding/address"
)

// Server exposes the resolver over a JSON API.
type Server struct {
	resolver *Resolver
	parser   address.Parser
}

// NewServer creates a Server. A nil parser falls back to the built-in naive
// one.
func NewServer(resolver *Resolver, parser address.Parser) *Server {
	if parser == nil {
		parser = address.NaiveParser{}
	}

	return &Server{resolver: resolver, parser: parser}
}

// Handler builds the gin engine with all routes registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.Default()

	r.POST("/api/geocode", s.geocodeBatch)
	r.POST("/api/poi/search", s.searchPOI)
	r.GET("/api/reverse", s.reverseGeocode)

	return r
}

// Run serves the API on addr.
func (s *Server) Run(addr string) error {
	return s.Handler().Run(addr)
}

type geocodeRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
	UserID    int64    `json:"user_id"`
}

func (s *Server) geocodeBatch(ctx *gin.Context) {
	var req geocodeRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if len(req.Addresses) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "addresses must not be empty"})

		return
	}

	queries := make([]Query, len(req.Addresses))
	for i, addr := range req.Addresses {
		queries[i] = s.buildQuery(addr, req.UserID)
	}

	results := s.resolver.ResolveBatch(ctx.Request.Context(), queries, nil)

	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

type poiSearchRequest struct {
	Keyword string `json:"keyword" binding:"required"`
	UserID  int64  `json:"user_id"`
}

func (s *Server) searchPOI(ctx *gin.Context) {
	var req poiSearchRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	candidates := s.resolver.SearchPOI(ctx.Request.Context(), s.buildQuery(req.Keyword, req.UserID))

	ctx.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (s *Server) reverseGeocode(ctx *gin.Context) {
	lat, errLat := strconv.ParseFloat(ctx.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(ctx.Query("lng"), 64)

	if errLat != nil || errLng != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be valid numbers"})

		return
	}

	g := s.resolver.geocoderByID(ctx.Query("provider"))
	if g == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})

		return
	}

	result, err := g.ReverseGeocode(ctx.Request.Context(), lat, lng)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, result)
}

// buildQuery runs the address parser over the raw text. Parse failures
// degrade to an empty-components query so the administrative filter passes
// everything through.
func (s *Server) buildQuery(text string, userID int64) Query {
	q := Query{RawText: text, UserID: userID}

	parsed, err := s.parser.Parse(text)
	if err == nil {
		q.Admin = parsed
		q.CompletedText = address.Complete(parsed)
	}

	return q
}
