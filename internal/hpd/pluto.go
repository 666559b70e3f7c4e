package hpd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/propfolio/ownergraph/internal/model"
)

// plutoRow mirrors one PLUTO tax-lot dataset row.
type plutoRow struct {
	BBL       string `json:"bbl"`
	BoroCode  string `json:"borocode"`
	Block     string `json:"block"`
	Lot       string `json:"lot"`
	Address   string `json:"address"`
	OwnerName string `json:"ownername"`
	UnitsRes  string `json:"unitsres"`
	YearBuilt string `json:"yearbuilt"`
	AssessTot string `json:"assesstot"`
	NumFloors string `json:"numfloors"`
	BldgArea  string `json:"bldgarea"`
	ZoneDist1 string `json:"zonedist1"`
	ZipCode   string `json:"zipcode"`
}

// Enrich batch-fetches assessment records for the given parcels of one
// borough. The result maps BBL keys to enrichment records; parcels with
// no match are simply absent. Grouping by borough keeps the query count
// bounded at one per borough regardless of portfolio size.
func (c *Client) Enrich(ctx context.Context, boroCode int, bbls []model.BBL) (map[string]model.Enrichment, error) {
	if len(bbls) == 0 {
		return map[string]model.Enrichment{}, nil
	}

	digits := make([]string, 0, len(bbls))
	for _, b := range bbls {
		if b.BoroCode() == boroCode {
			digits = append(digits, quoteSoQL(b.PadlessDigits()))
		}
	}
	if len(digits) == 0 {
		return map[string]model.Enrichment{}, nil
	}

	params := url.Values{}
	params.Set("$where", fmt.Sprintf(
		"borocode = %s AND bbl in (%s)",
		quoteSoQL(strconv.Itoa(boroCode)), strings.Join(digits, ","),
	))

	var rows []plutoRow
	if err := c.getJSON(ctx, c.datasets.Pluto, params, &rows); err != nil {
		return nil, fmt.Errorf("enrichment lookup for borough %d: %w", boroCode, err)
	}

	out := make(map[string]model.Enrichment, len(rows))
	for _, row := range rows {
		boro := parseIntField(row.BoroCode)
		block := parseIntField(row.Block)
		lot := parseIntField(row.Lot)
		bbl, err := model.NewBBL(boro, block, lot)
		if err != nil {
			continue
		}
		out[bbl.Key()] = model.Enrichment{
			Address:       strings.TrimSpace(row.Address),
			OwnerName:     strings.TrimSpace(row.OwnerName),
			Units:         parseIntField(row.UnitsRes),
			YearBuilt:     parseIntField(row.YearBuilt),
			AssessedValue: parseFloatField(row.AssessTot),
			Floors:        parseFloatField(row.NumFloors),
			BuildingArea:  parseFloatField(row.BldgArea),
			Zoning:        strings.TrimSpace(row.ZoneDist1),
		}
	}
	return out, nil
}

// parseIntField parses a Socrata numeric string, defaulting malformed
// or fractional values to their integer part and garbage to zero.
func parseIntField(s string) int {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return int(f)
	}
	return 0
}

// parseFloatField parses a Socrata numeric string, defaulting to zero.
func parseFloatField(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
