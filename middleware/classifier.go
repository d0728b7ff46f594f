package middleware

import (
	"net"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/draftforge/outreach_api/shared"
)

// Master IP allowlist. Deployment addresses are embedded rather than
// env-configured; master-IP trust also bypasses maintenance mode, so the
// list stays small and reviewed in code.
var masterIPs = []string{
	"203.0.113.10",
	"198.51.100.24",
	"2001:db8:4d15::10",
}

// TokenChecker is the narrow slice of the token registry the classifier
// needs.
type TokenChecker interface {
	IsMasterToken(token string) bool
	IsTrialToken(token string) bool
}

// TokenSource records where a presented token came from, highest
// precedence first: query, header, path.
type TokenSource string

const (
	SourceNone   TokenSource = ""
	SourceQuery  TokenSource = "query"
	SourceHeader TokenSource = "header"
	SourcePath   TokenSource = "path"
)

// ClientIdentity is the per-request classification result. Computed fresh
// on every request; never persisted.
type ClientIdentity struct {
	Kind     string
	Token    string
	Source   TokenSource
	IP       string
	MasterIP bool

	// InvalidToken is set when a token was presented but matches neither
	// the master token nor the trial set. Hard deny, distinct from "no
	// token".
	InvalidToken bool
}

// ExtractClientIP resolves the caller address from the proxy chain:
// provider connecting-IP header first, then real-IP, then the first
// forwarded-for entry, then the socket address.
func ExtractClientIP(c *fiber.Ctx) string {
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return strings.TrimSpace(cfIP)
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" {
				return ip
			}
		}
	}

	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}
	return ip
}

// IsMasterIP matches against the allowlist, normalising both sides so IPv6
// literal forms compare correctly. Loopback is not on the allowlist; a
// co-located process or a proxy that strips forwarding headers would
// otherwise arrive as a full master identity. MASTER_TRUST_LOOPBACK=true
// restores it for local development.
func IsMasterIP(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	if parsed.IsLoopback() {
		return os.Getenv("MASTER_TRUST_LOOPBACK") == "true"
	}
	for _, master := range masterIPs {
		if allowed := net.ParseIP(master); allowed != nil && allowed.Equal(parsed) {
			return true
		}
	}
	return false
}

// extractToken finds a presented token by source precedence. The bare-path
// form only counts when the whole path (minus the leading slash) exactly
// matches a known token; anything else is just a route.
func extractToken(c *fiber.Ctx, tokens TokenChecker) (string, TokenSource) {
	if token := c.Query(shared.QueryTrial); token != "" {
		return token, SourceQuery
	}

	if token := c.Get(shared.HeaderTrialToken); token != "" {
		return token, SourceHeader
	}

	path := c.Path()
	if path != "/" && path != "/not-found" {
		seg := strings.TrimPrefix(path, "/")
		if seg != "" && !strings.Contains(seg, "/") {
			if tokens.IsMasterToken(seg) || tokens.IsTrialToken(seg) {
				return seg, SourcePath
			}
		}
	}

	return "", SourceNone
}

// Classify derives the caller identity from network origin and presented
// credentials. Master-IP membership is evaluated even when a token is also
// present, since master-IP trust is broader than token trust.
func Classify(c *fiber.Ctx, tokens TokenChecker) ClientIdentity {
	id := ClientIdentity{
		IP:   ExtractClientIP(c),
		Kind: shared.KindAnonymous,
	}
	id.MasterIP = IsMasterIP(id.IP)

	if id.MasterIP {
		id.Kind = shared.KindMasterIP
	}

	token, source := extractToken(c, tokens)
	if token == "" {
		return id
	}

	id.Token = token
	id.Source = source

	switch {
	case tokens.IsMasterToken(token):
		id.Kind = shared.KindMasterToken
	case tokens.IsTrialToken(token):
		id.Kind = shared.KindTrial
	default:
		id.InvalidToken = true
		id.Kind = shared.KindAnonymous
	}

	return id
}
