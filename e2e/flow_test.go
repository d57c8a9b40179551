// Package e2e drives the full credential lifecycle through the HTTP
// surface: issuance, challenge-bound presentation, selective disclosure,
// revocation, and the benefit workflow on top. Everything runs in-process
// against the simulated registry node and in-memory stores.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"idverse/contracts/registry"
	"idverse/internal/audit"
	benefithandler "idverse/internal/benefit/handler"
	benefitservice "idverse/internal/benefit/service"
	benefitstore "idverse/internal/benefit/store"
	"idverse/internal/chain"
	"idverse/internal/challenge"
	credhandler "idverse/internal/credential/handler"
	"idverse/internal/credential/keys"
	credservice "idverse/internal/credential/service"
	credstore "idverse/internal/credential/store"
	"idverse/internal/docstore"
	"idverse/internal/jwt_token"
	httptransport "idverse/internal/transport/http"
	"idverse/pkg/testutil"
)

const issuerDID = "did:idverse:gov-issuer"

type env struct {
	t      *testing.T
	server *httptest.Server
	jwt    *jwttoken.JWTService
	audit  *audit.MemorySink
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	node := registry.NewSimulatedNode()
	chainClient := chain.NewClient(node, logger)

	signer, err := keys.NewSigner(keys.ModeEd25519, "")
	require.NoError(t, err)

	challenges := challenge.NewManager(challenge.NewInMemoryStore(), 5*time.Minute, logger)
	sink := audit.NewMemorySink()
	auditor := audit.NewPublisher(sink)

	credentialService, err := credservice.New(
		credstore.NewInMemoryStore(),
		chainClient,
		docstore.NewInMemoryStore(),
		challenges,
		signer,
		issuerDID,
		credservice.WithLogger(logger),
		credservice.WithAuditor(auditor),
	)
	require.NoError(t, err)
	require.NoError(t, credentialService.EnsureIssuerRegistered(context.Background()))

	benefitService, err := benefitservice.New(
		benefitstore.NewInMemoryStore(),
		chainClient,
		credentialService,
		benefitservice.WithLogger(logger),
		benefitservice.WithAuditor(auditor),
	)
	require.NoError(t, err)

	jwtService := jwttoken.NewJWTService("e2e-signing-key", "idverse", "idverse-api")

	router := httptransport.NewRouter(httptransport.Dependencies{
		Credentials: credhandler.New(credentialService, challenges, logger),
		Benefits:    benefithandler.New(benefitService, logger),
		JWT:         jwttoken.NewJWTServiceAdapter(jwtService),
		Logger:      logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{t: t, server: server, jwt: jwtService, audit: sink}
}

func (e *env) token(userID, role string) string {
	token, err := e.jwt.GenerateAccessToken(userID, role, time.Hour)
	require.NoError(e.t, err)
	return token
}

func (e *env) do(method, path, token string, body any) (int, map[string]any) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(e.t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func (e *env) issue(claims map[string]any) map[string]any {
	e.t.Helper()
	status, body := e.do(http.MethodPost, "/vc/issue", e.token("issuer-1", "issuer"), map[string]any{
		"subject_id": "did:idverse:holder-1",
		"type":       "income-certificate",
		"claims":     claims,
	})
	require.Equal(e.t, http.StatusCreated, status)
	return body["credential"].(map[string]any)
}

func (e *env) nonce() string {
	e.t.Helper()
	status, body := e.do(http.MethodGet, "/vc/challenge", "", nil)
	require.Equal(e.t, http.StatusOK, status)
	return body["nonce"].(string)
}

func (e *env) present(payload map[string]any) map[string]any {
	e.t.Helper()
	status, body := e.do(http.MethodPost, "/vc/present", "", payload)
	require.Equal(e.t, http.StatusOK, status)
	return body
}

func checks(result map[string]any) map[string]any {
	return result["checks"].(map[string]any)
}

func TestCredentialLifecycle(t *testing.T) {
	e := newEnv(t)
	var cred map[string]any

	testutil.Given(t, "an issued credential", func(t *testing.T) {
		cred = e.issue(map[string]any{"score": 42})
		require.NotEmpty(t, cred["id"])
	})

	testutil.When(t, "the holder presents it against a fresh challenge", func(t *testing.T) {
		result := e.present(map[string]any{"nonce": e.nonce(), "vc": cred})
		require.True(t, result["verified"].(bool))
	})

	testutil.Then(t, "a second presentation on the same nonce is rejected", func(t *testing.T) {
		nonce := e.nonce()
		first := e.present(map[string]any{"nonce": nonce, "vc": cred})
		require.True(t, first["verified"].(bool))

		replayed := e.present(map[string]any{"nonce": nonce, "vc": cred})
		require.False(t, replayed["verified"].(bool))
		require.False(t, checks(replayed)["challenge"].(bool))
	})

	testutil.Then(t, "revocation flips the status check", func(t *testing.T) {
		status, _ := e.do(http.MethodPost, "/vc/revoke", e.token("admin-1", "admin"), map[string]any{
			"vc_id":  cred["id"],
			"reason": "document forged",
		})
		require.Equal(t, http.StatusOK, status)

		result := e.present(map[string]any{"nonce": e.nonce(), "vc": cred})
		require.False(t, result["verified"].(bool))
		require.False(t, checks(result)["status"].(bool))
		require.True(t, checks(result)["signature"].(bool))
	})
}

func TestTamperedClaimFailsSignature(t *testing.T) {
	e := newEnv(t)
	cred := e.issue(map[string]any{"score": 42})

	cred["claims"].(map[string]any)["score"] = 99

	result := e.present(map[string]any{"nonce": e.nonce(), "vc": cred})
	require.False(t, result["verified"].(bool))
	require.False(t, checks(result)["signature"].(bool))
}

func TestRevokedCredentialCannotBorrowChainRef(t *testing.T) {
	e := newEnv(t)
	revoked := e.issue(map[string]any{"score": 42})
	live := e.issue(map[string]any{"score": 55})

	status, _ := e.do(http.MethodPost, "/vc/revoke", e.token("admin-1", "admin"), map[string]any{
		"vc_id":  revoked["id"],
		"reason": "document forged",
	})
	require.Equal(t, http.StatusOK, status)

	// Pointing the revoked credential's chain_ref at a live registry entry
	// must not launder its status.
	revoked["chain_ref"] = live["chain_ref"]
	result := e.present(map[string]any{"nonce": e.nonce(), "vc": revoked})
	require.False(t, result["verified"].(bool))
	require.False(t, checks(result)["status"].(bool))
	require.True(t, checks(result)["signature"].(bool))
}

func TestSelectiveDisclosure(t *testing.T) {
	e := newEnv(t)
	cred := e.issue(map[string]any{
		"name":         "Asha Rao",
		"aadhaarLast4": "4810",
		"dob":          "1990-03-14",
	})

	salts := cred["disclosure_salts"].(map[string]any)
	proof := cred["proof"].(map[string]any)
	nonce := e.nonce()

	disclosure := map[string]any{
		"credential_id": cred["id"],
		"nonce":         nonce,
		"commitments":   proof["commitments"],
		"proof":         proof,
		"disclosed_claims": []map[string]any{
			{"key": "aadhaarLast4", "value": "4810", "salt": salts["aadhaarLast4"]},
		},
	}

	result := e.present(map[string]any{"nonce": nonce, "disclosure": disclosure})
	require.True(t, result["verified"].(bool), "checks: %v", checks(result))

	// A lie about the disclosed value fails the subset check. The package
	// must be rebound to the second nonce or it is rejected outright.
	retry := e.nonce()
	disclosure["nonce"] = retry
	disclosure["disclosed_claims"] = []map[string]any{
		{"key": "aadhaarLast4", "value": "0000", "salt": salts["aadhaarLast4"]},
	}
	tampered := e.present(map[string]any{"nonce": retry, "disclosure": disclosure})
	require.False(t, tampered["verified"].(bool))
	require.False(t, checks(tampered)["disclosure_subset"].(bool))
}

func TestBenefitWorkflow(t *testing.T) {
	e := newEnv(t)
	cred := e.issue(map[string]any{"income": 250000})

	status, app := e.do(http.MethodPost, "/benefits/apply", e.token("did:idverse:holder-1", "citizen"), map[string]any{
		"scheme": "pm-housing",
		"vc_id":  cred["id"],
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "recorded", app["status"])

	status, decided := e.do(http.MethodPost, "/benefits/admin/decide", e.token("admin-1", "admin"), map[string]any{
		"application_id": app["application_id"],
		"approve":        true,
		"note":           "verified against registry",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "approved", decided["status"])

	// Revoking the supporting credential afterwards does not reopen the
	// approved application.
	status, _ = e.do(http.MethodPost, "/vc/revoke", e.token("admin-1", "admin"), map[string]any{
		"vc_id":  cred["id"],
		"reason": "document forged",
	})
	require.Equal(t, http.StatusOK, status)

	status, after := e.do(http.MethodGet, "/benefits/applications/"+app["application_id"].(string),
		e.token("did:idverse:holder-1", "citizen"), nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "approved", after["status"])

	// But a new application backed by the revoked credential is refused.
	status, _ = e.do(http.MethodPost, "/benefits/apply", e.token("did:idverse:holder-1", "citizen"), map[string]any{
		"scheme": "pm-scholarship",
		"vc_id":  cred["id"],
	})
	require.Equal(t, http.StatusConflict, status)
}

func TestAuditTrail(t *testing.T) {
	e := newEnv(t)
	cred := e.issue(map[string]any{"score": 42})

	e.present(map[string]any{"nonce": e.nonce(), "vc": cred})

	status, _ := e.do(http.MethodPost, "/vc/revoke", e.token("admin-1", "admin"), map[string]any{
		"vc_id":  cred["id"],
		"reason": "document forged",
	})
	require.Equal(t, http.StatusOK, status)

	require.Len(t, e.audit.ByAction(audit.EventCredentialIssued), 1)
	require.Len(t, e.audit.ByAction(audit.EventCredentialPresented), 1)
	require.Len(t, e.audit.ByAction(audit.EventCredentialRevoked), 1)
}
