package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/biddeed/deedscout/internal/acquire"
	"github.com/biddeed/deedscout/internal/analysis"
	"github.com/biddeed/deedscout/internal/routing"
	"github.com/biddeed/deedscout/models"
)

type discoverRequest struct {
	ParcelID string   `json:"parcel_id"`
	Sources  []string `json:"sources"`
}

// SourceOutcome is one source's contribution to a discovery report.
type SourceOutcome struct {
	Source   string            `json:"source"`
	Strategy routing.Strategy  `json:"strategy"`
	Fields   map[string]string `json:"fields,omitempty"`
	Error    string            `json:"error,omitempty"`
	Elapsed  string            `json:"elapsed"`
}

// DiscoverReport combines per-source acquisitions with lien and investment
// analysis for one parcel.
type DiscoverReport struct {
	Success    bool                      `json:"success"`
	ReportID   string                    `json:"report_id"`
	ParcelID   string                    `json:"parcel_id"`
	Property   map[string]string         `json:"property,omitempty"`
	Liens      analysis.PriorityAnalysis `json:"liens"`
	Investment *Investment               `json:"investment,omitempty"`
	Sources    []SourceOutcome           `json:"sources"`
}

// Investment is the bid guidance derived from property value and liens.
type Investment struct {
	MaxBid         float64 `json:"max_bid"`
	Recommendation string  `json:"recommendation"`
	Reason         string  `json:"reason"`
	Equity         float64 `json:"equity"`
}

// handleDiscover runs one acquisition per requested source concurrently and
// combines the results into a discovery report. Sources fail independently;
// a partial report is still a report.
func (s *Server) handleDiscover(c echo.Context) error {
	var req discoverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ParcelID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "parcel_id required")
	}
	report := s.Discover(c.Request().Context(), req.ParcelID, req.Sources)
	return c.JSON(http.StatusOK, report)
}

// Discover acquires every requested source (all registered sources when none
// are named), builds the combined report and persists it as an auction case
// when enough property data came back.
func (s *Server) Discover(ctx context.Context, parcelID string, sources []string) DiscoverReport {
	if len(sources) == 0 {
		sources = s.Registry.Names()
	}

	outcomes := make([]SourceOutcome, len(sources))
	var wg sync.WaitGroup
	for i, name := range sources {
		desc, ok := s.Registry.Lookup(name)
		if !ok {
			outcomes[i] = SourceOutcome{Source: name, Error: "unknown source", Elapsed: "0s"}
			continue
		}
		strategy := routing.SelectStrategy(desc)
		wg.Add(1)
		go func(i int, desc routing.Descriptor, strategy routing.Strategy) {
			defer wg.Done()
			res, err := s.Executor.Execute(ctx, strategy, s.requestFor(desc, parcelID))
			out := SourceOutcome{
				Source:   desc.Name,
				Strategy: strategy,
				Elapsed:  res.Elapsed.Round(time.Millisecond).String(),
			}
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Fields = res.Fields
			}
			outcomes[i] = out
		}(i, desc, strategy)
	}
	wg.Wait()

	report := s.buildReport(parcelID, outcomes)
	s.persistCase(ctx, report)
	return report
}

// requestFor shapes the acquisition request for one source. The property
// appraiser takes the parcel as a query parameter; document sources get the
// configured entry URL.
func (s *Server) requestFor(desc routing.Descriptor, parcelID string) acquire.Request {
	req := acquire.Request{Source: desc.Name, URL: s.SourceURLs[desc.Name]}
	if desc.HasDirectAPI {
		req.Query = map[string]string{"parcel_id": parcelID}
	}
	return req
}

func (s *Server) buildReport(parcelID string, outcomes []SourceOutcome) DiscoverReport {
	report := DiscoverReport{
		Success:  true,
		ReportID: uuid.NewString(),
		ParcelID: parcelID,
		Sources:  outcomes,
	}

	var liens []models.Lien
	for _, out := range outcomes {
		if out.Error != "" {
			continue
		}
		if out.Strategy == routing.StrategyDirectAPI {
			report.Property = out.Fields
			continue
		}
		if doc, ok := out.Fields["document"]; ok {
			liens = append(liens, analysis.ParseLiens(doc)...)
		}
	}
	report.Liens = analysis.AnalyzePriority(liens)

	if report.Property != nil {
		assessed := parseMoney(report.Property["assessed_value"])
		just := parseMoney(report.Property["just_value"])
		rec := analysis.Recommend(report.Liens, assessed, just)
		report.Investment = &Investment{
			MaxBid:         analysis.MaxBid(assessed, just, 0),
			Recommendation: rec.Verdict,
			Reason:         rec.Reason,
			Equity:         rec.Equity,
		}
	}
	return report
}

// persistCase stores the report as an auction case when enough property data
// came back. Best effort; persistence failures never fail the report.
func (s *Server) persistCase(ctx context.Context, report DiscoverReport) {
	if s.Store == nil || report.Investment == nil {
		return
	}
	err := s.Store.UpsertAuctionCase(ctx, models.AuctionCase{
		CaseNumber:     report.ParcelID,
		Address:        report.Property["address"],
		City:           strings.ToUpper(report.Property["city"]),
		MaxBid:         report.Investment.MaxBid,
		Recommendation: report.Investment.Recommendation,
		Metadata: map[string]interface{}{
			"report_id":   report.ReportID,
			"owner_name":  report.Property["owner_name"],
			"total_liens": report.Liens.TotalLiens,
			"encumbrance": report.Liens.TotalEncumbrance,
		},
	})
	if err != nil {
		s.Logger.Printf("persist case %s: %v", report.ParcelID, err)
	}
}

func parseMoney(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
