package hpd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/propfolio/ownergraph/internal/model"
)

// registrationRow mirrors one HPD registrations dataset row. Socrata
// returns every column as a string.
type registrationRow struct {
	RegistrationID string `json:"registrationid"`
	BoroID         string `json:"boroid"`
	Block          string `json:"block"`
	Lot            string `json:"lot"`
	HouseNumber    string `json:"housenumber"`
	StreetName     string `json:"streetname"`
	Zip            string `json:"zip"`
}

// toModel converts a wire row, defaulting malformed numeric fields to
// zero rather than failing the whole response.
func (r registrationRow) toModel() model.Registration {
	boro, _ := strconv.Atoi(strings.TrimSpace(r.BoroID))   //nolint:errcheck // malformed defaults to 0
	block, _ := strconv.Atoi(strings.TrimSpace(r.Block))   //nolint:errcheck // malformed defaults to 0
	lot, _ := strconv.Atoi(strings.TrimSpace(r.Lot))       //nolint:errcheck // malformed defaults to 0
	bbl, err := model.NewBBL(boro, block, lot)
	if err != nil {
		bbl = model.BBL{}
	}
	return model.Registration{
		ID:          strings.TrimSpace(r.RegistrationID),
		BBL:         bbl,
		HouseNumber: strings.TrimSpace(r.HouseNumber),
		StreetName:  strings.TrimSpace(r.StreetName),
		Zip:         strings.TrimSpace(r.Zip),
	}
}

// Registrations looks up the registration filings for one parcel.
func (c *Client) Registrations(ctx context.Context, bbl model.BBL) ([]model.Registration, error) {
	params := url.Values{}
	params.Set("boroid", strconv.Itoa(bbl.BoroCode()))
	params.Set("block", strconv.Itoa(bbl.Block()))
	params.Set("lot", strconv.Itoa(bbl.Lot()))

	var rows []registrationRow
	if err := c.getJSON(ctx, c.datasets.Registrations, params, &rows); err != nil {
		return nil, fmt.Errorf("registration lookup for %s: %w", bbl, err)
	}

	return rowsToRegistrations(rows), nil
}

// RegistrationsByID batch-fetches registrations by registration id.
// An empty id slice returns an empty result without a network call.
func (c *Client) RegistrationsByID(ctx context.Context, ids []string) ([]model.Registration, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			quoted = append(quoted, quoteSoQL(trimmed))
		}
	}
	if len(quoted) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("$where", "registrationid in ("+strings.Join(quoted, ",")+")")

	var rows []registrationRow
	if err := c.getJSON(ctx, c.datasets.Registrations, params, &rows); err != nil {
		return nil, fmt.Errorf("registration batch lookup: %w", err)
	}

	return rowsToRegistrations(rows), nil
}

// rowsToRegistrations converts wire rows, dropping rows whose parcel
// identifier failed to parse; a registration with no usable BBL cannot
// anchor a property node.
func rowsToRegistrations(rows []registrationRow) []model.Registration {
	out := make([]model.Registration, 0, len(rows))
	for _, row := range rows {
		reg := row.toModel()
		if reg.ID == "" || reg.BBL.IsZero() {
			continue
		}
		out = append(out, reg)
	}
	return out
}
