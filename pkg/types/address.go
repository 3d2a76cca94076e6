package types

import (
	"database/sql/driver"
	"strings"
)

// Address is the shipping destination stored on an order as jsonb.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Normalize trims every field, upper-cases the country code and drops a
// blank second line.
func (a Address) Normalize() Address {
	out := Address{
		Line1:      strings.TrimSpace(a.Line1),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if a.Line2 != nil {
		if line2 := strings.TrimSpace(*a.Line2); line2 != "" {
			out.Line2 = &line2
		}
	}
	return out
}

func (a Address) IsZero() bool {
	n := a.Normalize()
	return n.Line1 == "" && n.Line2 == nil && n.City == "" && n.State == "" && n.PostalCode == "" && n.Country == ""
}

func (a Address) Value() (driver.Value, error) { return JSONValue(a) }

func (a *Address) Scan(src any) error {
	var decoded Address
	if _, err := ScanJSON(src, &decoded, "address"); err != nil {
		return err
	}
	*a = decoded
	return nil
}
