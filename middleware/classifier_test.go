package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/outreach_api/shared"
)

type stubTokens struct {
	master string
	trial  map[string]bool
}

func (s *stubTokens) IsMasterToken(token string) bool {
	return s.master != "" && token == s.master
}

func (s *stubTokens) IsTrialToken(token string) bool {
	return s.trial[token]
}

func testTokens() *stubTokens {
	return &stubTokens{
		master: "master-secret",
		trial:  map[string]bool{"trial-abc": true, "trial-def": true},
	}
}

// classifyRequest runs Classify inside a real fiber handler and returns the
// identity it computed.
func classifyRequest(t *testing.T, target string, headers map[string]string) ClientIdentity {
	t.Helper()

	var got ClientIdentity
	app := fiber.New()
	app.All("/*", func(c *fiber.Ctx) error {
		got = Classify(c, testTokens())
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	return got
}

func TestExtractClientIPPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "connecting ip wins over everything",
			headers: map[string]string{
				"CF-Connecting-IP": "203.0.113.50",
				"X-Real-IP":        "198.51.100.1",
				"X-Forwarded-For":  "192.0.2.1, 10.0.0.1",
			},
			want: "203.0.113.50",
		},
		{
			name: "real ip before forwarded-for",
			headers: map[string]string{
				"X-Real-IP":       "198.51.100.1",
				"X-Forwarded-For": "192.0.2.1",
			},
			want: "198.51.100.1",
		},
		{
			name:    "first forwarded-for entry",
			headers: map[string]string{"X-Forwarded-For": " 192.0.2.1 , 10.0.0.1"},
			want:    "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := classifyRequest(t, "/", tt.headers)
			assert.Equal(t, tt.want, id.IP)
		})
	}
}

func TestIsMasterIP(t *testing.T) {
	assert.True(t, IsMasterIP("203.0.113.10"))
	assert.True(t, IsMasterIP("2001:db8:4d15::10"))
	// Equivalent long-form IPv6 spelling still matches.
	assert.True(t, IsMasterIP("2001:0db8:4d15:0000:0000:0000:0000:0010"))

	assert.False(t, IsMasterIP("203.0.113.11"))
	assert.False(t, IsMasterIP(""))
	assert.False(t, IsMasterIP("not-an-ip"))
}

func TestIsMasterIPLoopback(t *testing.T) {
	// Loopback carries no trust unless explicitly enabled; a proxy that
	// strips forwarding headers must not mint master identities.
	assert.False(t, IsMasterIP("127.0.0.1"))
	assert.False(t, IsMasterIP("::1"))

	t.Setenv("MASTER_TRUST_LOOPBACK", "true")
	assert.True(t, IsMasterIP("127.0.0.1"))
	assert.True(t, IsMasterIP("::1"))
}

func TestClassifyTokenSourcePrecedence(t *testing.T) {
	// Query beats header.
	id := classifyRequest(t, "/?trial=trial-abc", map[string]string{
		shared.HeaderTrialToken: "trial-def",
	})
	assert.Equal(t, "trial-abc", id.Token)
	assert.Equal(t, SourceQuery, id.Source)
	assert.Equal(t, shared.KindTrial, id.Kind)

	// Header when no query.
	id = classifyRequest(t, "/somewhere", map[string]string{
		shared.HeaderTrialToken: "trial-def",
	})
	assert.Equal(t, "trial-def", id.Token)
	assert.Equal(t, SourceHeader, id.Source)
}

func TestClassifyBareTokenPath(t *testing.T) {
	id := classifyRequest(t, "/trial-abc", nil)
	assert.Equal(t, "trial-abc", id.Token)
	assert.Equal(t, SourcePath, id.Source)
	assert.Equal(t, shared.KindTrial, id.Kind)

	// A path that is not a known token is just a route.
	id = classifyRequest(t, "/pricing", nil)
	assert.Empty(t, id.Token)
	assert.Equal(t, SourceNone, id.Source)

	// Multi-segment paths never match.
	id = classifyRequest(t, "/trial-abc/extra", nil)
	assert.Empty(t, id.Token)
}

func TestClassifyInvalidToken(t *testing.T) {
	id := classifyRequest(t, "/?trial=bogus", nil)
	assert.True(t, id.InvalidToken)
	assert.Equal(t, shared.KindAnonymous, id.Kind)
	assert.Equal(t, "bogus", id.Token)
}

func TestClassifyMasterToken(t *testing.T) {
	id := classifyRequest(t, "/?trial=master-secret", nil)
	assert.Equal(t, shared.KindMasterToken, id.Kind)
	assert.False(t, id.InvalidToken)
}

func TestClassifyMasterIPWithTrialToken(t *testing.T) {
	id := classifyRequest(t, "/?trial=trial-abc", map[string]string{
		"X-Real-IP": "203.0.113.10",
	})
	assert.True(t, id.MasterIP)
	// Token classification still applies on top of the IP trust.
	assert.Equal(t, shared.KindTrial, id.Kind)
	assert.Equal(t, "trial-abc", id.Token)
}
