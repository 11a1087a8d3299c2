package customer

import (
	"strings"

	"github.com/rufusakande/xpaie-client-backend/internal/models"
)

// Fallbacks used when neither the caller nor the stored profile has a value.
// Phone number deliberately has no fallback: a deposit without a phone number
// fails validation before the resolver runs.
const (
	fallbackFirstname = "Prenom"
	fallbackLastname  = "Nom"
	fallbackEmail     = "noemail@example.com"
	fallbackCountry   = "BJ"
)

// Resolve builds the complete customer snapshot sent to the payment
// processor. Each field is picked with an explicit ordered fallback: caller
// value first, then the stored user profile, then a fixed placeholder. The
// function is total, it never fails on missing data.
func Resolve(in models.Customer, user models.User) models.Customer {
	first, last := splitName(user.Name)

	return models.Customer{
		Firstname:   firstNonEmpty(in.Firstname, first, fallbackFirstname),
		Lastname:    firstNonEmpty(in.Lastname, last, fallbackLastname),
		Email:       firstNonEmpty(in.Email, user.Email, fallbackEmail),
		PhoneNumber: firstNonEmpty(in.PhoneNumber, user.PhoneNumber),
		Country:     firstNonEmpty(in.Country, user.Country, fallbackCountry),
	}
}

// splitName derives first and last name from a full profile name
func splitName(name string) (first string, last string) {
	parts := strings.Fields(name)

	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
