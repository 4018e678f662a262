package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/store"
	"github.com/biddeed/deedscout/models"
)

// handleListCases returns stored auction cases, filterable by
// recommendation, city and auction date.
func (s *Server) handleListCases(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	cases, err := s.Store.ListAuctionCases(c.Request().Context(), store.CaseFilter{
		Recommendation: strings.ToUpper(c.QueryParam("recommendation")),
		City:           strings.ToUpper(c.QueryParam("city")),
		AuctionDate:    c.QueryParam("auction_date"),
		Limit:          limit,
	})
	if err != nil {
		return fail(c, err)
	}
	if cases == nil {
		cases = []models.AuctionCase{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "cases": cases})
}

type similarRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// handleSimilarCases embeds the query and returns the nearest stored cases.
func (s *Server) handleSimilarCases(c echo.Context) error {
	var req similarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	ctx := c.Request().Context()
	vectors, err := s.Provider.CreateEmbedding(ctx, []string{req.Query})
	if err != nil {
		return fail(c, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fail(c, fault.Newf(fault.KindUpstream, "embedding", "similar", "empty embedding response"))
	}

	results, err := s.Store.SearchSimilarCases(ctx, vectors[0], req.TopK)
	if err != nil {
		return fail(c, err)
	}
	if results == nil {
		results = []models.SimilarCase{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "cases": results})
}
