package model

import "testing"

// TestMakeNodeID tests deterministic id derivation.
func TestMakeNodeID(t *testing.T) {
	t.Parallel()

	t.Run("id is kind plus normalized key", func(t *testing.T) {
		t.Parallel()

		if got := MakeNodeID(KindEntity, "ABC REALTY LLC"); got != "entity:ABC REALTY LLC" {
			t.Errorf("unexpected id %q", got)
		}
	})

	t.Run("same key under different kinds yields distinct ids", func(t *testing.T) {
		t.Parallel()

		if MakeNodeID(KindPerson, "MAIN") == MakeNodeID(KindAddress, "MAIN") {
			t.Error("kinds must namespace the id")
		}
	})

	t.Run("property ids derive from the BBL key", func(t *testing.T) {
		t.Parallel()

		if got := PropertyNodeID(MustNewBBL(2, 2862, 1)); got != "property:2-2862-1" {
			t.Errorf("unexpected property id %q", got)
		}
	})
}

// TestPropertyAttrsMerge tests that merging never overwrites known values.
func TestPropertyAttrsMerge(t *testing.T) {
	t.Parallel()

	t.Run("fills only empty fields", func(t *testing.T) {
		t.Parallel()

		attrs := &PropertyAttrs{BBL: MustNewBBL(1, 10, 1), StreetAddress: "100 BROADWAY"}
		attrs.Merge(&PropertyAttrs{StreetAddress: "DIFFERENT", Zip: "10005"})

		if attrs.StreetAddress != "100 BROADWAY" {
			t.Errorf("known street address overwritten: %q", attrs.StreetAddress)
		}
		if attrs.Zip != "10005" {
			t.Errorf("empty zip not filled: %q", attrs.Zip)
		}
	})

	t.Run("nil other is a no-op", func(t *testing.T) {
		t.Parallel()

		attrs := &PropertyAttrs{Zip: "11201"}
		attrs.Merge(nil)
		if attrs.Zip != "11201" {
			t.Errorf("merge with nil changed attrs: %q", attrs.Zip)
		}
	})
}

// TestParty tests the contact party union.
func TestParty(t *testing.T) {
	t.Parallel()

	t.Run("person display name joins first and last", func(t *testing.T) {
		t.Parallel()

		if got := (Person{First: "JANE", Last: "DOE"}).DisplayName(); got != "JANE DOE" {
			t.Errorf("unexpected display name %q", got)
		}
		if got := (Person{Last: "DOE"}).DisplayName(); got != "DOE" {
			t.Errorf("missing first name should be dropped, got %q", got)
		}
	})

	t.Run("organization display name is the business name", func(t *testing.T) {
		t.Parallel()

		if got := (Organization{Name: " ABC REALTY LLC "}).DisplayName(); got != "ABC REALTY LLC" {
			t.Errorf("unexpected display name %q", got)
		}
	})
}

// TestContactBusinessAddress tests mailing-address assembly.
func TestContactBusinessAddress(t *testing.T) {
	t.Parallel()

	c := Contact{
		BusinessHouseNumber: "123",
		BusinessStreetName:  "MAIN ST",
		BusinessCity:        "NEW YORK",
		BusinessState:       "NY",
		BusinessZip:         "10001",
	}
	if got := c.BusinessAddress(); got != "123 MAIN ST NEW YORK NY 10001" {
		t.Errorf("unexpected business address %q", got)
	}

	if got := (Contact{}).BusinessAddress(); got != "" {
		t.Errorf("empty contact should yield empty address, got %q", got)
	}
}
