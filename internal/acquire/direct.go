package acquire

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/biddeed/deedscout/internal/fault"
)

// DirectClient issues structured requests against the property appraiser's
// public JSON API (BCPAO-shaped search endpoint) and maps the response onto
// normalized fields.
type DirectClient struct {
	baseURL string
	apiKey  string
	http    *HTTPClient
}

func NewDirectClient(baseURL, apiKey string, timeout time.Duration) *DirectClient {
	return &DirectClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    NewHTTPClient("direct_api", timeout),
	}
}

// appraisalResponse mirrors the appraiser search payload.
type appraisalResponse struct {
	AccountNumber   string  `json:"accountNumber"`
	OwnerName       string  `json:"ownerName"`
	PropertyAddress string  `json:"propertyAddress"`
	City            string  `json:"city"`
	AssessedValue   float64 `json:"assessedValue"`
	JustValue       float64 `json:"justValue"`
	LivingArea      int     `json:"livingArea"`
	YearBuilt       int     `json:"yearBuilt"`
}

// Lookup fetches one parcel record. The query carries either a parcel id
// ("parcel_id") or an address ("address").
func (c *DirectClient) Lookup(ctx context.Context, source string, query map[string]string) (map[string]string, error) {
	params := url.Values{}
	if v := query["parcel_id"]; v != "" {
		params.Set("accountNumber", v)
	}
	if v := query["address"]; v != "" {
		params.Set("address", v)
	}
	if len(params) == 0 {
		return nil, fault.Newf(fault.KindConfiguration, source, "lookup", "parcel_id or address required")
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp appraisalResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), headers, nil, &resp); err != nil {
		return nil, err
	}

	if strings.TrimSpace(resp.OwnerName) == "" && strings.TrimSpace(resp.PropertyAddress) == "" {
		return nil, fault.Newf(fault.KindExtraction, source, "lookup", "no parcel data in response")
	}

	fields := map[string]string{}
	putStr(fields, "parcel_id", resp.AccountNumber)
	putStr(fields, "owner_name", resp.OwnerName)
	putStr(fields, "address", resp.PropertyAddress)
	putStr(fields, "city", resp.City)
	putFloat(fields, "assessed_value", resp.AssessedValue)
	putFloat(fields, "just_value", resp.JustValue)
	putInt(fields, "living_area", resp.LivingArea)
	putInt(fields, "year_built", resp.YearBuilt)
	return fields, nil
}

func putStr(m map[string]string, k, v string) {
	if v = strings.TrimSpace(v); v != "" {
		m[k] = v
	}
}

func putFloat(m map[string]string, k string, v float64) {
	if v != 0 {
		m[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func putInt(m map[string]string, k string, v int) {
	if v != 0 {
		m[k] = strconv.Itoa(v)
	}
}
