package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Identity represents the authenticated operator calling the API.
// Handlers read it without depending on the token format.
type Identity interface {
	// Subject returns the token subject (operator or terminal id).
	Subject() string
	// Roles returns the assigned roles.
	Roles() []string
	// HasRole checks if the caller has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if a valid token was presented.
	IsAuthenticated() bool
}

type identity struct {
	subject       string
	roles         []string
	authenticated bool
}

func (i *identity) Subject() string          { return i.subject }
func (i *identity) Roles() []string          { return i.roles }
func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }
func (i *identity) IsAuthenticated() bool    { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if no subject is present.
func GetIdentity(c *gin.Context) Identity {
	subject := c.GetString(ContextSubjectKey)
	if subject == "" {
		return &identity{authenticated: false}
	}
	return &identity{
		subject:       subject,
		roles:         c.GetStringSlice(ContextRolesKey),
		authenticated: true,
	}
}
