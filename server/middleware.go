package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Naranpurev/devcamper/auth"
)

const userContextKey = "auth:user"

// tokenExtractor pulls the raw JWT from a single transport location.
type tokenExtractor func(c *fiber.Ctx) string

// buildExtractors parses a lookup spec like "cookie:token,header:Authorization"
// into ordered extractors. Unknown sources are skipped.
func buildExtractors(lookup string) []tokenExtractor {
	var out []tokenExtractor
	for _, part := range strings.Split(lookup, ",") {
		source, name, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		switch source {
		case "cookie":
			out = append(out, func(c *fiber.Ctx) string {
				return c.Cookies(name)
			})
		case "header":
			out = append(out, func(c *fiber.Ctx) string {
				value := c.Get(name)
				if strings.HasPrefix(value, "Bearer ") {
					return strings.TrimPrefix(value, "Bearer ")
				}
				return value
			})
		case "query":
			out = append(out, func(c *fiber.Ctx) string {
				return c.Query(name)
			})
		}
	}
	return out
}

// Protected validates the request token and loads the matching user into the
// request context. Requests with no token, an invalid token, or a token for a
// user that no longer exists are rejected with the same 401.
func Protected(tokens *auth.TokenService, store auth.UserStore, lookup string) fiber.Handler {
	extractors := buildExtractors(lookup)

	return func(c *fiber.Ctx) error {
		var raw string
		for _, extract := range extractors {
			if raw = extract(c); raw != "" {
				break
			}
		}

		if raw == "" || raw == clearedCookieValue {
			return auth.ErrUnauthenticated
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			return auth.ErrUnauthenticated
		}

		uid, err := claims.UserUUID()
		if err != nil {
			return auth.ErrUnauthenticated
		}

		user, err := store.GetByID(c.UserContext(), uid)
		if err != nil {
			// a vanished user means the token is stale; anything else is
			// a store failure the error handler should see as such
			if auth.IsRecordNotFound(err) {
				return auth.ErrUnauthenticated
			}
			return err
		}

		c.Locals(userContextKey, user)
		return c.Next()
	}
}

// RequireRoles gates a route to the given roles. Must run after Protected.
func RequireRoles(roles ...auth.UserRole) fiber.Handler {
	allowed := make(map[auth.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return auth.ErrUnauthenticated
		}
		if _, ok := allowed[user.Role]; !ok {
			return auth.ErrForbidden
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside a protected route.
func CurrentUser(c *fiber.Ctx) *auth.User {
	user, _ := c.Locals(userContextKey).(*auth.User)
	return user
}
