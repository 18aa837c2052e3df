package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Person is the already-authenticated identity attributed to an entry.
// The core never authenticates; it only records what the auth boundary
// resolved.
type Person struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Claims are the JWT claims the identity provider issues for logbook users.
type Claims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}

// Person converts token claims into the entry-creation identity.
// Falls back to splitting the display name when the structured name
// claims are absent.
func (c *Claims) Person() Person {
	first, last := c.GivenName, c.FamilyName
	if first == "" && last == "" && c.Name != "" {
		parts := strings.SplitN(c.Name, " ", 2)
		first = parts[0]
		if len(parts) == 2 {
			last = parts[1]
		}
	}
	return Person{FirstName: first, LastName: last, Email: c.Email}
}
