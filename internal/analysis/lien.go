package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/biddeed/deedscout/models"
)

// hoaKeywords flag grantors whose liens can extinguish senior mortgages in a
// Florida foreclosure.
var hoaKeywords = []string{
	"HOMEOWNER", "HOA", "ASSOCIATION", "CONDO", "CONDOMINIUM", "COMMUNITY", "COA", "POA",
}

const hoaWarning = "HOA lien detected - may extinguish senior mortgages in Florida foreclosure"

// lienPattern matches one official-records result row, e.g.
// "MTG | 2023-12345 | Book 1234 Page 567 | WELLS FARGO | JOHN DOE | 01/15/2023 | $250,000".
var lienPattern = regexp.MustCompile(
	`(MTG|LIEN|JUDG)\s*\|\s*` + // document type
		`([\d-]+)\s*\|\s*` + // instrument number
		`Book\s*(\d+)\s*Page\s*(\d+)\s*\|\s*` + // book/page
		`([^|]+)\|\s*` + // grantor (creditor)
		`([^|]+)\|\s*` + // grantee (debtor)
		`(\d{2}/\d{2}/\d{4})\s*\|\s*` + // recorded date
		`\$?([\d,]+)`) // amount

// ParseLiens extracts recorded liens from scraped official-records output
// and returns them sorted by recorded date, oldest first. Rows that do not
// match the records layout are ignored.
func ParseLiens(doc string) []models.Lien {
	var liens []models.Lien
	for _, line := range strings.Split(doc, "\n") {
		m := lienPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		recorded, err := time.Parse("01/02/2006", m[7])
		if err != nil {
			continue
		}
		lien := models.Lien{
			Type:             m[1],
			InstrumentNumber: m[2],
			Book:             m[3],
			Page:             m[4],
			Grantor:          strings.TrimSpace(m[5]),
			Grantee:          strings.TrimSpace(m[6]),
			RecordedDate:     recorded,
			Amount:           parseAmount(m[8]),
		}
		if isHOA(lien.Grantor) {
			lien.IsHOA = true
			lien.Warning = hoaWarning
		}
		liens = append(liens, lien)
	}
	sort.SliceStable(liens, func(i, j int) bool {
		return liens[i].RecordedDate.Before(liens[j].RecordedDate)
	})
	return liens
}

func isHOA(grantor string) bool {
	upper := strings.ToUpper(grantor)
	for _, kw := range hoaKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func parseAmount(s string) float64 {
	cleaned := strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// Warning severities surfaced in priority analysis.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
)

// Warning is a titled concern attached to a priority analysis.
type Warning struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// PriorityAnalysis summarizes encumbrance and lien ordering for a property.
type PriorityAnalysis struct {
	TotalLiens       int           `json:"total_liens"`
	TotalEncumbrance float64       `json:"total_encumbrance"`
	Mortgages        int           `json:"mortgages"`
	OtherLiens       int           `json:"other_liens"`
	Judgments        int           `json:"judgments"`
	HOALiens         int           `json:"hoa_liens"`
	FirstPosition    *models.Lien  `json:"first_position,omitempty"`
	Warnings         []Warning     `json:"warnings,omitempty"`
	Liens            []models.Lien `json:"liens"`
}

// AnalyzePriority orders liens into positions and flags title risks. Input
// order is preserved when already sorted; positions are assigned oldest
// first as ParseLiens emits them.
func AnalyzePriority(liens []models.Lien) PriorityAnalysis {
	a := PriorityAnalysis{TotalLiens: len(liens), Liens: make([]models.Lien, len(liens))}
	copy(a.Liens, liens)

	for i := range a.Liens {
		lien := &a.Liens[i]
		lien.Position = i + 1
		a.TotalEncumbrance += lien.Amount
		switch lien.Type {
		case models.LienTypeMortgage:
			a.Mortgages++
			if a.FirstPosition == nil {
				fp := *lien
				a.FirstPosition = &fp
			}
		case models.LienTypeJudgment:
			a.Judgments++
		default:
			a.OtherLiens++
		}
		if lien.IsHOA {
			a.HOALiens++
		}
	}

	if a.HOALiens > 0 {
		a.Warnings = append(a.Warnings, Warning{
			Type:     "HOA_FORECLOSURE_RISK",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("%d HOA lien(s) detected - may extinguish senior mortgages", a.HOALiens),
		})
	}
	if a.Mortgages > 2 {
		a.Warnings = append(a.Warnings, Warning{
			Type:     "COMPLEX_TITLE",
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%d mortgages detected - complex title structure", a.Mortgages),
		})
	}
	return a
}

// Max-bid formula constants: 70% of after-repair value, less repairs,
// closing costs and a capped margin.
const (
	arvFactor      = 0.70
	repairFactor   = 0.20
	closingCosts   = 10000.0
	marginCap      = 25000.0
	marginFactor   = 0.15
	minimumEquity  = 10000.0
	bidRatioFloor  = 75.0
	reviewRatioMin = 60.0
)

// MaxBid computes the ceiling price for a property. ARV is the higher of
// assessed and just value; repairs default to 20% of ARV when unknown.
func MaxBid(assessedValue, justValue, repairs float64) float64 {
	arv := assessedValue
	if justValue > arv {
		arv = justValue
	}
	if arv <= 0 {
		return 0
	}
	if repairs <= 0 {
		repairs = arv * repairFactor
	}
	margin := arv * marginFactor
	if margin > marginCap {
		margin = marginCap
	}
	bid := arv*arvFactor - repairs - closingCosts - margin
	if bid < 0 {
		return 0
	}
	return bid
}

// RecommendByRatio classifies a case by its max-bid to judgment ratio, used
// when no lien data is available yet.
func RecommendByRatio(maxBid, judgment float64) string {
	if judgment <= 0 {
		return models.RecommendationReview
	}
	ratio := maxBid / judgment * 100
	switch {
	case ratio >= bidRatioFloor:
		return models.RecommendationBid
	case ratio >= reviewRatioMin:
		return models.RecommendationReview
	default:
		return models.RecommendationSkip
	}
}

// Recommendation is an investment verdict with its reason.
type Recommendation struct {
	Verdict string  `json:"verdict"`
	Reason  string  `json:"reason"`
	Equity  float64 `json:"equity"`
}

// Recommend applies the lien-priority rules: HOA exposure always skips, thin
// equity skips, complex title reviews, everything else bids.
func Recommend(a PriorityAnalysis, assessedValue, justValue float64) Recommendation {
	arv := assessedValue
	if justValue > arv {
		arv = justValue
	}
	equity := arv*arvFactor - a.TotalEncumbrance - closingCosts

	switch {
	case a.HOALiens > 0:
		return Recommendation{
			Verdict: models.RecommendationSkip,
			Reason:  "HOA foreclosure risk - senior mortgage may survive or be wiped unpredictably",
			Equity:  equity,
		}
	case equity < minimumEquity:
		return Recommendation{
			Verdict: models.RecommendationSkip,
			Reason:  fmt.Sprintf("insufficient equity after liens: $%.2f", equity),
			Equity:  equity,
		}
	case a.Mortgages > 2:
		return Recommendation{
			Verdict: models.RecommendationReview,
			Reason:  "complex title - verify lien priority before bidding",
			Equity:  equity,
		}
	default:
		return Recommendation{
			Verdict: models.RecommendationBid,
			Reason:  "acceptable lien structure and equity position",
			Equity:  equity,
		}
	}
}
