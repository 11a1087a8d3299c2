package customer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rufusakande/xpaie-client-backend/internal/models"
)

func TestResolve(t *testing.T) {
	user := models.User{
		Name:        "Jean Kokou Agbodjan",
		Email:       "jean@example.com",
		Country:     "TG",
		PhoneNumber: "+22890010203",
	}

	t.Run("caller values win", func(t *testing.T) {
		in := models.Customer{
			Firstname:   "Ama",
			Lastname:    "Doe",
			Email:       "ama@example.com",
			PhoneNumber: "+22997000000",
			Country:     "CI",
		}

		got := Resolve(in, user)

		require.Equal(t, in, got, "caller supplied fields should be kept as is")
	})

	t.Run("profile fills gaps", func(t *testing.T) {
		got := Resolve(models.Customer{PhoneNumber: "+22997000000"}, user)

		require.Equal(t, "Jean", got.Firstname, "firstname should come from the first word of the profile name")
		require.Equal(t, "Kokou Agbodjan", got.Lastname, "lastname should take the rest of the profile name")
		require.Equal(t, "jean@example.com", got.Email)
		require.Equal(t, "+22997000000", got.PhoneNumber, "caller phone should win over profile phone")
		require.Equal(t, "TG", got.Country)
	})

	t.Run("phone falls back to profile only", func(t *testing.T) {
		got := Resolve(models.Customer{}, user)

		require.Equal(t, "+22890010203", got.PhoneNumber, "profile phone should be used when caller sent none")
	})

	t.Run("placeholders on empty profile", func(t *testing.T) {
		got := Resolve(models.Customer{PhoneNumber: "+22997000000"}, models.User{})

		require.Equal(t, "Prenom", got.Firstname)
		require.Equal(t, "Nom", got.Lastname)
		require.Equal(t, "noemail@example.com", got.Email)
		require.Equal(t, "BJ", got.Country)
	})

	t.Run("no phone placeholder ever", func(t *testing.T) {
		got := Resolve(models.Customer{}, models.User{Name: "Solo"})

		require.Empty(t, got.PhoneNumber, "a missing phone must stay empty, validation rejects it upstream")
		require.Equal(t, "Solo", got.Firstname)
		require.Empty(t, got.Lastname, "single word name has no lastname to derive")
	})

	t.Run("whitespace only input ignored", func(t *testing.T) {
		got := Resolve(models.Customer{Firstname: "   ", Email: " "}, user)

		require.Equal(t, "Jean", got.Firstname, "blank caller value should fall through to the profile")
		require.Equal(t, "jean@example.com", got.Email)
	})
}
