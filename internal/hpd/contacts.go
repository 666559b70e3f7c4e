package hpd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/propfolio/ownergraph/internal/model"
	"github.com/propfolio/ownergraph/internal/normalize"
)

// contactRow mirrors one HPD registration-contacts dataset row.
type contactRow struct {
	RegistrationID      string `json:"registrationid"`
	Type                string `json:"type"`
	CorporationName     string `json:"corporationname"`
	FirstName           string `json:"firstname"`
	LastName            string `json:"lastname"`
	BusinessHouseNumber string `json:"businesshousenumber"`
	BusinessStreetName  string `json:"businessstreetname"`
	BusinessApartment   string `json:"businessapartment"`
	BusinessCity        string `json:"businesscity"`
	BusinessState       string `json:"businessstate"`
	BusinessZip         string `json:"businesszip"`
}

// toModel converts a wire row and decides the party variant exactly
// once: a non-blank corporation name makes an Organization, otherwise
// the name fields make a Person, otherwise the party is nil.
func (r contactRow) toModel() model.Contact {
	contact := model.Contact{
		RegistrationID:      strings.TrimSpace(r.RegistrationID),
		Role:                strings.TrimSpace(r.Type),
		BusinessHouseNumber: strings.TrimSpace(r.BusinessHouseNumber),
		BusinessStreetName:  strings.TrimSpace(r.BusinessStreetName),
		BusinessApartment:   strings.TrimSpace(r.BusinessApartment),
		BusinessCity:        strings.TrimSpace(r.BusinessCity),
		BusinessState:       strings.TrimSpace(r.BusinessState),
		BusinessZip:         strings.TrimSpace(r.BusinessZip),
	}

	corp := strings.TrimSpace(r.CorporationName)
	first := strings.TrimSpace(r.FirstName)
	last := strings.TrimSpace(r.LastName)

	switch {
	case corp != "":
		contact.Party = model.Organization{Name: corp}
	case first != "" || last != "":
		contact.Party = model.Person{First: first, Last: last}
	}

	return contact
}

// Contacts looks up the contact rows of one registration filing.
func (c *Client) Contacts(ctx context.Context, registrationID string) ([]model.Contact, error) {
	params := url.Values{}
	params.Set("registrationid", strings.TrimSpace(registrationID))

	var rows []contactRow
	if err := c.getJSON(ctx, c.datasets.Contacts, params, &rows); err != nil {
		return nil, fmt.Errorf("contact lookup for registration %s: %w", registrationID, err)
	}

	return rowsToContacts(rows), nil
}

// ContactsByName searches contact rows by name. For a business the
// pattern matches the corporation-name field; for a person it matches
// the last-name field exactly. Both comparisons run uppercase because
// the source data mixes cases freely.
func (c *Client) ContactsByName(ctx context.Context, pattern string, business bool) ([]model.Contact, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(pattern))
	if trimmed == "" {
		return nil, nil
	}

	params := url.Values{}
	if business {
		params.Set("$where", "upper(corporationname) like "+quoteSoQL("%"+trimmed+"%"))
	} else {
		params.Set("$where", "upper(lastname) = "+quoteSoQL(trimmed))
	}

	var rows []contactRow
	if err := c.getJSON(ctx, c.datasets.Contacts, params, &rows); err != nil {
		return nil, fmt.Errorf("contact search for %q: %w", pattern, err)
	}

	return rowsToContacts(rows), nil
}

// ContactsByAddress searches contact rows sharing a business street
// number and street-name prefix. This powers shared-address discovery:
// nominally unrelated entities registered from one mail drop.
func (c *Client) ContactsByAddress(ctx context.Context, houseNumber, streetPrefix string) ([]model.Contact, error) {
	house := strings.TrimSpace(houseNumber)
	prefix := strings.ToUpper(strings.TrimSpace(streetPrefix))
	if house == "" || prefix == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("$where", fmt.Sprintf(
		"businesshousenumber = %s AND upper(businessstreetname) like %s",
		quoteSoQL(house), quoteSoQL(prefix+"%"),
	))

	var rows []contactRow
	if err := c.getJSON(ctx, c.datasets.Contacts, params, &rows); err != nil {
		return nil, fmt.Errorf("contact search for address %s %s: %w", houseNumber, streetPrefix, err)
	}

	return rowsToContacts(rows), nil
}

// rowsToContacts converts wire rows, dropping rows with no named party:
// a contact row without a usable name cannot become a node.
func rowsToContacts(rows []contactRow) []model.Contact {
	out := make([]model.Contact, 0, len(rows))
	for _, row := range rows {
		contact := row.toModel()
		if contact.Party == nil {
			continue
		}
		if normalize.Name(contact.Party.DisplayName()) == "" {
			continue
		}
		out = append(out, contact)
	}
	return out
}
