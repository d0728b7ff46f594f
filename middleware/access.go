package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/draftforge/outreach_api/services"
	"github.com/draftforge/outreach_api/shared"
)

// AccessGate is the single chokepoint every request passes through. It is
// an ordered list of named rules evaluated with early termination, so the
// precedence between token handling, query filtering, maintenance gating
// and basic auth stays visible and testable rule by rule.
//
// The gate never panics; every branch ends in a concrete response. Cookies
// and the trial-token header it attaches are advisory UX signals, not
// authorization: privileged handlers re-validate tokens themselves.
type AccessGate struct {
	context.DefaultService

	tokens        TokenChecker
	signer        bypassSigner
	monitoringSvc *services.MonitoringService

	basicAuthUser string
	basicAuthPass string
	maintenance   bool

	rules []gateRule
}

// bypassSigner is the slice of the JWT service the gate needs for the
// maintenance bypass marker.
type bypassSigner interface {
	SignBypass(kind string) (string, error)
	VerifyBypass(tokenString string) (string, error)
}

type gateRule struct {
	name string
	// apply reports whether it terminated the request, and if so with what
	// handler result.
	apply func(c *fiber.Ctx, id *ClientIdentity) (bool, error)
}

const ACCESS_GATE_SVC = "access_gate"

const (
	masterIPCookieMaxAge = int(time.Hour / time.Second)
	bypassCookieMaxAge   = int(30 * 24 * time.Hour / time.Second)
)

func (svc AccessGate) Id() string {
	return ACCESS_GATE_SVC
}

func (svc *AccessGate) Configure(ctx *context.Context) error {
	svc.basicAuthUser = os.Getenv("BASIC_AUTH_USER")
	svc.basicAuthPass = os.Getenv("BASIC_AUTH_PASSWORD")

	// Maintenance mode defaults on; only an explicit "false" disables it.
	svc.maintenance = os.Getenv("MAINTENANCE_MODE") != "false"

	return svc.DefaultService.Configure(ctx)
}

func (svc *AccessGate) Start() error {
	svc.tokens = svc.Service(services.TOKEN_SVC).(*services.TokenService)
	svc.signer = svc.Service(services.JWT_SVC).(*services.JWTService)
	svc.monitoringSvc = svc.Service(services.MONITORING_SVC).(*services.MonitoringService)

	svc.buildRules()
	return nil
}

func (svc *AccessGate) buildRules() {
	svc.rules = []gateRule{
		{"bare-token-path", svc.ruleBareTokenPath},
		{"token-validation", svc.ruleTokenPresent},
		{"stray-query-params", svc.ruleStrayQuery},
		{"root-path", svc.ruleRootPath},
		{"api-path", svc.ruleAPIPath},
		{"other-path", svc.ruleOtherPath},
	}
}

// Gate returns the request handler mounted ahead of all routes.
func (svc *AccessGate) Gate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := Classify(c, svc.tokens)
		c.Locals(shared.ClientIP, id.IP)

		for _, rule := range svc.rules {
			handled, err := rule.apply(c, &id)
			if handled {
				svc.record(rule.name, c)
				return err
			}
		}

		// Rule 7: default allow.
		svc.record("default-allow", c)
		return svc.allow(c, &id)
	}
}

// Rule 1: a path that is exactly a known token never serves content
// directly; it canonicalises to the query-parameter form first.
func (svc *AccessGate) ruleBareTokenPath(c *fiber.Ctx, id *ClientIdentity) (bool, error) {
	if id.Source != SourcePath {
		return false, nil
	}
	return true, c.Redirect("/?trial="+url.QueryEscape(id.Token), fiber.StatusFound)
}

// Rule 2: a presented token must validate. Invalid tokens are routed to
// the not-found page so callers cannot probe which tokens exist. Valid
// tokens allow every path and get the 30-day bypass marker.
func (svc *AccessGate) ruleTokenPresent(c *fiber.Ctx, id *ClientIdentity) (bool, error) {
	if id.Token == "" {
		return false, nil
	}

	if id.InvalidToken {
		log.WithFields(log.Fields{
			"ip":     id.IP,
			"source": id.Source,
		}).Warn("Invalid token presented")
		return true, c.Redirect("/not-found", fiber.StatusFound)
	}

	if bypass, err := svc.signer.SignBypass(id.Kind); err == nil {
		svc.setCookie(c, shared.CookieBypassMaintenance, bypass, bypassCookieMaxAge)
	} else {
		log.WithError(err).Warn("Failed to sign bypass cookie")
	}

	return true, svc.allow(c, id)
}

// Rule 3: unrecognised query keys on non-API paths are treated as
// non-existent routes, so stray or crawled URLs never become entry points.
func (svc *AccessGate) ruleStrayQuery(c *fiber.Ctx, id *ClientIdentity) (bool, error) {
	if isAPIPath(c.Path()) {
		return false, nil
	}

	stray := false
	c.Context().QueryArgs().VisitAll(func(key, _ []byte) {
		switch string(key) {
		case shared.QueryTrial, shared.QueryTheme:
		default:
			stray = true
		}
	})

	if !stray {
		return false, nil
	}
	return true, c.Status(fiber.StatusNotFound).SendString("Not Found")
}

// Rule 4: the root path is never open without at least one gating
// mechanism. Maintenance gating is delivered as a header for the UI
// overlay, not a hard deny, so the app shell can render it.
func (svc *AccessGate) ruleRootPath(c *fiber.Ctx, id *ClientIdentity) (bool, error) {
	if c.Path() != "/" {
		return false, nil
	}

	if id.MasterIP {
		return true, svc.allow(c, id)
	}

	if svc.maintenance && !svc.hasBypassMarker(c) {
		c.Set(shared.HeaderMaintenanceGate, "requested")
		return true, svc.allow(c, id)
	}

	if svc.basicAuthConfigured() {
		if svc.checkBasicAuth(c) {
			id.Kind = shared.KindBasicAuth
			return true, svc.allow(c, id)
		}
		return true, svc.challenge(c)
	}

	return true, c.Status(fiber.StatusForbidden).SendString("Access Denied")
}

// Rule 5: API paths fail closed without a credential.
func (svc *AccessGate) ruleAPIPath(c *fiber.Ctx, id *ClientIdentity) (bool, error) {
	if !isAPIPath(c.Path()) {
		return false, nil
	}

	if id.MasterIP {
		return true, svc.allow(c, id)
	}

	if svc.basicAuthConfigured() {
		if svc.checkBasicAuth(c) {
			id.Kind = shared.KindBasicAuth
			return true, svc.allow(c, id)
		}
		return true, svc.challenge(c)
	}

	return true, c.Status(fiber.StatusForbidden).SendString("Access Denied")
}

// Rule 6: remaining paths (assets, secondary pages) fail open when no auth
// is configured; the maintenance overlay itself needs them to load.
func (svc *AccessGate) ruleOtherPath(c *fiber.Ctx, id *ClientIdentity) (bool, error) {
	if id.MasterIP {
		return true, svc.allow(c, id)
	}

	if svc.basicAuthConfigured() {
		if svc.checkBasicAuth(c) {
			id.Kind = shared.KindBasicAuth
			return true, svc.allow(c, id)
		}
		return true, svc.challenge(c)
	}

	return true, svc.allow(c, id)
}

// allow annotates the request for downstream handlers and passes through.
func (svc *AccessGate) allow(c *fiber.Ctx, id *ClientIdentity) error {
	c.Locals(shared.IdentityKind, id.Kind)

	if id.Token != "" && !id.InvalidToken {
		c.Locals(shared.TrialToken, id.Token)
		c.Request().Header.Set(shared.HeaderTrialToken, id.Token)
	}

	if id.MasterIP {
		svc.setCookie(c, shared.CookieMasterIP, "true", masterIPCookieMaxAge)
	}

	return c.Next()
}

func (svc *AccessGate) challenge(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Restricted"`)
	return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
}

func (svc *AccessGate) basicAuthConfigured() bool {
	return svc.basicAuthUser != "" && svc.basicAuthPass != ""
}

func (svc *AccessGate) checkBasicAuth(c *fiber.Ctx) bool {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return false
	}

	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return false
	}

	if subtle.ConstantTimeCompare([]byte(user), []byte(svc.basicAuthUser)) != 1 {
		return false
	}

	// The configured password may be stored as a bcrypt hash.
	if strings.HasPrefix(svc.basicAuthPass, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(svc.basicAuthPass), []byte(pass)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(pass), []byte(svc.basicAuthPass)) == 1
}

func (svc *AccessGate) hasBypassMarker(c *fiber.Ctx) bool {
	cookie := c.Cookies(shared.CookieBypassMaintenance)
	if cookie == "" {
		return false
	}

	if _, err := svc.signer.VerifyBypass(cookie); err != nil {
		return false
	}
	return true
}

func (svc *AccessGate) setCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: false,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (svc *AccessGate) record(rule string, c *fiber.Ctx) {
	if svc.monitoringSvc != nil {
		svc.monitoringSvc.RecordGateDecision(rule, c.Response().StatusCode())
	}
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/api"
}
