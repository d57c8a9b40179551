package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"idverse/contracts/registry"
	benefitsvc "idverse/internal/benefit/service"
	benefitstore "idverse/internal/benefit/store"
	"idverse/internal/chain"
	"idverse/internal/challenge"
	"idverse/internal/credential/keys"
	"idverse/internal/credential/models"
	credsvc "idverse/internal/credential/service"
	credstore "idverse/internal/credential/store"
	"idverse/internal/docstore"
	"idverse/internal/jwt_token"
	"idverse/internal/platform/middleware"
)

// BenefitHandlerSuite wires the benefit handlers against the simulated
// registry node, with a real credential to back the applications.
type BenefitHandlerSuite struct {
	suite.Suite
	router  http.Handler
	jwt     *jwttoken.JWTService
	credsvc *credsvc.Service
	vcID    string
}

func TestBenefitHandlerSuite(t *testing.T) {
	suite.Run(t, new(BenefitHandlerSuite))
}

func (s *BenefitHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := context.Background()

	node := registry.NewSimulatedNode()
	chainClient := chain.NewClient(node, logger)

	signer, err := keys.NewSigner(keys.ModeEd25519, "")
	s.Require().NoError(err)

	challenges := challenge.NewManager(challenge.NewInMemoryStore(), 5*time.Minute, logger)

	cs, err := credsvc.New(
		credstore.NewInMemoryStore(),
		chainClient,
		docstore.NewInMemoryStore(),
		challenges,
		signer,
		"did:idverse:gov-issuer",
		credsvc.WithLogger(logger),
	)
	s.Require().NoError(err)
	s.Require().NoError(cs.EnsureIssuerRegistered(ctx))
	s.credsvc = cs

	record, err := cs.Issue(ctx, credsvc.IssueInput{
		SubjectID: "user-1",
		Type:      "income-certificate",
		Claims:    models.Claims{"income": 250000},
	})
	s.Require().NoError(err)
	s.vcID = record.ID

	bs, err := benefitsvc.New(benefitstore.NewInMemoryStore(), chainClient, cs,
		benefitsvc.WithLogger(logger),
	)
	s.Require().NoError(err)

	s.jwt = jwttoken.NewJWTService("test-signing-key", "idverse", "idverse-api")
	validator := jwttoken.NewJWTServiceAdapter(s.jwt)

	h := New(bs, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	h.Register(r, middleware.RequireAuth(validator, logger), middleware.RequireAdmin(logger))
	s.router = r
}

func (s *BenefitHandlerSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *BenefitHandlerSuite) token(userID, role string) string {
	token, err := s.jwt.GenerateAccessToken(userID, role, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *BenefitHandlerSuite) apply() string {
	rec := s.request(http.MethodPost, "/benefits/apply", s.token("user-1", "citizen"), map[string]any{
		"scheme": "pm-housing",
		"vc_id":  s.vcID,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var app map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &app))
	return app["application_id"].(string)
}

func (s *BenefitHandlerSuite) TestApplyRequiresAuth() {
	rec := s.request(http.MethodPost, "/benefits/apply", "", map[string]any{
		"scheme": "pm-housing",
		"vc_id":  s.vcID,
	})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *BenefitHandlerSuite) TestApplyAndList() {
	appID := s.apply()

	rec := s.request(http.MethodGet, "/benefits/applications", s.token("user-1", "citizen"), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var apps []map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &apps))
	s.Require().Len(apps, 1)
	s.Equal(appID, apps[0]["application_id"])
	s.Equal("recorded", apps[0]["status"])
}

func (s *BenefitHandlerSuite) TestListOtherSubjectForbidden() {
	rec := s.request(http.MethodGet, "/benefits/applications?subject_id=user-2", s.token("user-1", "citizen"), nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *BenefitHandlerSuite) TestDecideRequiresAdmin() {
	appID := s.apply()

	rec := s.request(http.MethodPost, "/benefits/admin/decide", s.token("user-1", "citizen"), map[string]any{
		"application_id": appID,
		"approve":        true,
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *BenefitHandlerSuite) TestApprove() {
	appID := s.apply()

	rec := s.request(http.MethodPost, "/benefits/admin/decide", s.token("admin-1", "admin"), map[string]any{
		"application_id": appID,
		"approve":        true,
		"note":           "verified",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var app map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &app))
	s.Equal("approved", app["status"])
}

func (s *BenefitHandlerSuite) TestApproveBlockedAfterRevocation() {
	appID := s.apply()

	_, err := s.credsvc.Revoke(context.Background(), s.vcID, "document forged")
	s.Require().NoError(err)

	rec := s.request(http.MethodPost, "/benefits/admin/decide", s.token("admin-1", "admin"), map[string]any{
		"application_id": appID,
		"approve":        true,
	})
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *BenefitHandlerSuite) TestApprovalSurvivesLaterRevocation() {
	appID := s.apply()

	rec := s.request(http.MethodPost, "/benefits/admin/decide", s.token("admin-1", "admin"), map[string]any{
		"application_id": appID,
		"approve":        true,
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	_, err := s.credsvc.Revoke(context.Background(), s.vcID, "document forged")
	s.Require().NoError(err)

	// The decision stands; revocation does not cascade.
	get := s.request(http.MethodGet, "/benefits/applications/"+appID, s.token("user-1", "citizen"), nil)
	s.Require().Equal(http.StatusOK, get.Code)

	var app map[string]any
	s.Require().NoError(json.Unmarshal(get.Body.Bytes(), &app))
	s.Equal("approved", app["status"])
}

func (s *BenefitHandlerSuite) TestApplyWithRevokedCredential() {
	_, err := s.credsvc.Revoke(context.Background(), s.vcID, "document forged")
	s.Require().NoError(err)

	rec := s.request(http.MethodPost, "/benefits/apply", s.token("user-1", "citizen"), map[string]any{
		"scheme": "pm-housing",
		"vc_id":  s.vcID,
	})
	s.Equal(http.StatusConflict, rec.Code)
}
