package domain

import (
	"fmt"
	"strings"

	"go-marketplace/pkg/errors"
)

// Address is a delivery address
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
	Details string `json:"details,omitempty"`
}

// Validate checks the required address lines
func (a Address) Validate() error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return errors.NewValidation("delivery address is incomplete", map[string]interface{}{
			"missing": missing,
		})
	}
	return nil
}

func (a Address) String() string {
	s := fmt.Sprintf("%s, %s, %s %s, %s", a.Street, a.City, a.State, a.ZipCode, a.Country)
	if a.Details != "" {
		s += " (" + a.Details + ")"
	}
	return s
}
