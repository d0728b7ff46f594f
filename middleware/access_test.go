package middleware

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/draftforge/outreach_api/shared"
)

type stubSigner struct{}

func (stubSigner) SignBypass(kind string) (string, error) {
	return "signed:" + kind, nil
}

func (stubSigner) VerifyBypass(tokenString string) (string, error) {
	kind, ok := strings.CutPrefix(tokenString, "signed:")
	if !ok {
		return "", errors.New("unsupported bypass token format")
	}
	return kind, nil
}

func newTestGate(maintenance bool, basicUser, basicPass string) *AccessGate {
	gate := &AccessGate{
		tokens:        testTokens(),
		signer:        stubSigner{},
		basicAuthUser: basicUser,
		basicAuthPass: basicPass,
		maintenance:   maintenance,
	}
	gate.buildRules()
	return gate
}

func newGateApp(gate *AccessGate) *fiber.App {
	app := fiber.New()
	app.Use(gate.Gate())

	echo := func(c *fiber.Ctx) error {
		token, _ := c.Locals(shared.TrialToken).(string)
		kind, _ := c.Locals(shared.IdentityKind).(string)
		return c.SendString("kind=" + kind + ";token=" + token)
	}

	app.Get("/", echo)
	app.Get("/api/v1/ping", echo)
	app.Get("/*", echo)
	return app
}

func gateRequest(t *testing.T, app *fiber.App, target string, mutate func(*http.Request)) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	if mutate != nil {
		mutate(req)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func basicAuthHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGateBareTokenPathRedirects(t *testing.T) {
	app := newGateApp(newTestGate(true, "", ""))

	resp := gateRequest(t, app, "/trial-abc", nil)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?trial=trial-abc", resp.Header.Get(fiber.HeaderLocation))
}

func TestGateBareTokenPathEscapesToken(t *testing.T) {
	gate := newTestGate(true, "", "")
	gate.tokens.(*stubTokens).trial["odd&token"] = true
	app := newGateApp(gate)

	resp := gateRequest(t, app, "/odd&token", nil)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?trial=odd%26token", resp.Header.Get(fiber.HeaderLocation))
}

func TestGateInvalidTokenRedirectsToNotFound(t *testing.T) {
	app := newGateApp(newTestGate(true, "", ""))

	resp := gateRequest(t, app, "/?trial=bogus", nil)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/not-found", resp.Header.Get(fiber.HeaderLocation))
	assert.Nil(t, responseCookie(resp, shared.CookieBypassMaintenance))
}

func TestGateValidTrialTokenAllows(t *testing.T) {
	app := newGateApp(newTestGate(true, "user", "pass"))

	resp := gateRequest(t, app, "/?trial=trial-abc", nil)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "kind=trial;token=trial-abc", readBody(t, resp))

	cookie := responseCookie(resp, shared.CookieBypassMaintenance)
	require.NotNil(t, cookie)
	assert.Equal(t, "signed:trial", cookie.Value)
	assert.Equal(t, bypassCookieMaxAge, cookie.MaxAge)
}

func TestGateValidTokenViaHeaderAllows(t *testing.T) {
	app := newGateApp(newTestGate(true, "", ""))

	resp := gateRequest(t, app, "/api/v1/ping", func(req *http.Request) {
		req.Header.Set(shared.HeaderTrialToken, "trial-def")
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "kind=trial;token=trial-def", readBody(t, resp))
}

func TestGateStrayQueryParams(t *testing.T) {
	app := newGateApp(newTestGate(true, "", ""))

	resp := gateRequest(t, app, "/?utm_source=newsletter", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", readBody(t, resp))

	// theme is a recognised key and sails through to the root rule.
	resp = gateRequest(t, app, "/?theme=dark", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "requested", resp.Header.Get(shared.HeaderMaintenanceGate))
	resp.Body.Close()
}

func TestGateRootMaintenanceHeader(t *testing.T) {
	app := newGateApp(newTestGate(true, "user", "pass"))

	resp := gateRequest(t, app, "/", nil)
	defer resp.Body.Close()

	// Maintenance passes the request through with the overlay signal; it is
	// not a hard deny.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "requested", resp.Header.Get(shared.HeaderMaintenanceGate))
}

func TestGateRootBypassCookieSkipsMaintenance(t *testing.T) {
	app := newGateApp(newTestGate(true, "user", "pass"))

	resp := gateRequest(t, app, "/", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: shared.CookieBypassMaintenance, Value: "signed:trial"})
	})
	defer resp.Body.Close()

	// With the marker, maintenance is skipped and basic auth takes over.
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Basic realm="Restricted"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))
	assert.Empty(t, resp.Header.Get(shared.HeaderMaintenanceGate))
}

func TestGateRootForgedBypassCookieIgnored(t *testing.T) {
	app := newGateApp(newTestGate(true, "user", "pass"))

	resp := gateRequest(t, app, "/", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: shared.CookieBypassMaintenance, Value: "forged"})
	})
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "requested", resp.Header.Get(shared.HeaderMaintenanceGate))
}

func TestGateRootBasicAuth(t *testing.T) {
	app := newGateApp(newTestGate(false, "user", "secret"))

	resp := gateRequest(t, app, "/", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Basic realm="Restricted"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))
	resp.Body.Close()

	resp = gateRequest(t, app, "/", func(req *http.Request) {
		req.Header.Set(fiber.HeaderAuthorization, basicAuthHeader("user", "wrong"))
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = gateRequest(t, app, "/", func(req *http.Request) {
		req.Header.Set(fiber.HeaderAuthorization, basicAuthHeader("user", "secret"))
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "kind=basic-auth;token=", readBody(t, resp))
}

func TestGateBasicAuthBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	app := newGateApp(newTestGate(false, "user", string(hash)))

	resp := gateRequest(t, app, "/", func(req *http.Request) {
		req.Header.Set(fiber.HeaderAuthorization, basicAuthHeader("user", "secret"))
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = gateRequest(t, app, "/", func(req *http.Request) {
		req.Header.Set(fiber.HeaderAuthorization, basicAuthHeader("user", "wrong"))
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestGateRootDeniedWithoutAnyMechanism(t *testing.T) {
	app := newGateApp(newTestGate(false, "", ""))

	resp := gateRequest(t, app, "/", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access Denied", readBody(t, resp))
}

func TestGateAPIPathFailsClosed(t *testing.T) {
	app := newGateApp(newTestGate(true, "", ""))

	resp := gateRequest(t, app, "/api/v1/ping", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access Denied", readBody(t, resp))
}

func TestGateOtherPathFailsOpen(t *testing.T) {
	app := newGateApp(newTestGate(true, "", ""))

	resp := gateRequest(t, app, "/assets/app.js", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	readBody(t, resp)
}

func TestGateMasterIPAllowsEverything(t *testing.T) {
	app := newGateApp(newTestGate(true, "user", "pass"))

	for _, target := range []string{"/", "/api/v1/ping", "/assets/app.js"} {
		resp := gateRequest(t, app, target, func(req *http.Request) {
			req.Header.Set("X-Real-IP", "203.0.113.10")
		})

		assert.Equal(t, fiber.StatusOK, resp.StatusCode, target)
		assert.Empty(t, resp.Header.Get(shared.HeaderMaintenanceGate), target)

		cookie := responseCookie(resp, shared.CookieMasterIP)
		require.NotNil(t, cookie, target)
		assert.Equal(t, "true", cookie.Value)
		resp.Body.Close()
	}
}
