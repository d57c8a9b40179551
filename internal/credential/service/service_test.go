package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idverse/internal/chain"
	"idverse/internal/credential/keys"
	"idverse/internal/credential/models"
	"idverse/internal/credential/service"
	"idverse/internal/credential/service/mocks"
	"idverse/internal/credential/store"
	dErrors "idverse/pkg/domain-errors"
)

const testIssuerDID = "did:idverse:gov-issuer"

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	chain      *mocks.MockChain
	documents  *mocks.MockDocuments
	challenges *mocks.MockChallenges
	store      *store.InMemoryStore
	signer     keys.Signer
	now        time.Time
	svc        *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.chain = mocks.NewMockChain(s.ctrl)
	s.documents = mocks.NewMockDocuments(s.ctrl)
	s.challenges = mocks.NewMockChallenges(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	signer, err := keys.NewSigner(keys.ModeEd25519, "")
	s.Require().NoError(err)
	s.signer = signer

	svc, err := service.New(s.store, s.chain, s.documents, s.challenges, signer, testIssuerDID,
		service.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestNew_MalformedIssuerDID() {
	_, err := service.New(s.store, s.chain, s.documents, s.challenges, s.signer, "gov-issuer")
	s.Require().ErrorContains(err, "issuer DID")
}

func (s *ServiceSuite) activeIssuer() chain.IssuerInfo {
	return chain.IssuerInfo{
		DID:          testIssuerDID,
		PublicKeyHex: s.signer.PublicKeyHex(),
		Active:       true,
		RegisteredAt: s.now.Add(-24 * time.Hour),
	}
}

func (s *ServiceSuite) TestIssue() {
	ctx := context.Background()
	receipt := chain.Receipt{TxnHash: common.HexToHash("0xa1"), BlockNumber: 42, ConfirmedAt: s.now}

	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(s.activeIssuer(), nil)
	s.documents.EXPECT().Put(gomock.Any(), gomock.Any()).Return("bafy-doc-1", nil)
	s.chain.EXPECT().
		RegisterCredential(gomock.Any(), gomock.Any(), testIssuerDID, "bafy-doc-1").
		Return(receipt, false, nil)

	record, err := s.svc.Issue(ctx, service.IssueInput{
		SubjectID: "did:idverse:holder-1",
		Type:      "income-certificate",
		Claims:    models.Claims{"income": 250000, "year": "2024"},
	})
	s.Require().NoError(err)

	s.Contains(record.ID, "vc-income-certificate-")
	s.Equal(testIssuerDID, record.IssuerDID)
	s.Equal("bafy-doc-1", record.ContentRef)
	s.Equal(receipt.TxnHash, record.ChainRef.TxnHash)
	s.Equal(uint64(42), record.ChainRef.BlockNumber)
	s.Len(record.Proof.Commitments, 2)
	s.Len(record.Salts, 2)

	signingBytes, err := record.SigningBytes()
	s.Require().NoError(err)
	s.True(keys.Verify(record.Proof.Type, s.signer.PublicKeyHex(), signingBytes, record.Proof.SignatureHex))
	s.Equal(models.ChainCommitment(signingBytes, record.Proof.SignatureHex), record.ChainRef.Commitment)

	stored, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, stored.ID)
}

func (s *ServiceSuite) TestIssue_NeverDeduplicated() {
	ctx := context.Background()
	input := service.IssueInput{
		SubjectID: "did:idverse:holder-1",
		Type:      "income-certificate",
		Claims:    models.Claims{"income": 250000},
	}

	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(s.activeIssuer(), nil).Times(2)
	s.documents.EXPECT().Put(gomock.Any(), gomock.Any()).Return("bafy-doc-1", nil).Times(2)
	s.chain.EXPECT().
		RegisterCredential(gomock.Any(), gomock.Any(), testIssuerDID, "bafy-doc-1").
		Return(chain.Receipt{TxnHash: common.HexToHash("0xa1")}, false, nil).
		Times(2)

	first, err := s.svc.Issue(ctx, input)
	s.Require().NoError(err)
	second, err := s.svc.Issue(ctx, input)
	s.Require().NoError(err)

	s.NotEqual(first.ID, second.ID)
	s.NotEqual(first.ChainRef.Commitment, second.ChainRef.Commitment)
}

func (s *ServiceSuite) TestIssue_InactiveIssuer() {
	inactive := s.activeIssuer()
	inactive.Active = false
	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(inactive, nil)

	_, err := s.svc.Issue(context.Background(), service.IssueInput{
		SubjectID: "did:idverse:holder-1",
		Type:      "income-certificate",
		Claims:    models.Claims{"income": 250000},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUntrustedIssuer))
}

func (s *ServiceSuite) TestIssue_Validation() {
	cases := []struct {
		name  string
		input service.IssueInput
	}{
		{"missing subject", service.IssueInput{Type: "t", Claims: models.Claims{"a": 1}}},
		{"missing type", service.IssueInput{SubjectID: "s", Claims: models.Claims{"a": 1}}},
		{"empty claims", service.IssueInput{SubjectID: "s", Type: "t", Claims: models.Claims{}}},
		{"empty claim key", service.IssueInput{SubjectID: "s", Type: "t", Claims: models.Claims{"": 1}}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Issue(context.Background(), tc.input)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *ServiceSuite) TestIssue_DocumentStoreDown() {
	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(s.activeIssuer(), nil)
	s.documents.EXPECT().Put(gomock.Any(), gomock.Any()).
		Return("", dErrors.New(dErrors.CodeStoreUnavailable, "ipfs add failed"))

	_, err := s.svc.Issue(context.Background(), service.IssueInput{
		SubjectID: "did:idverse:holder-1",
		Type:      "income-certificate",
		Claims:    models.Claims{"income": 250000},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}

func (s *ServiceSuite) TestIssue_ChainDown() {
	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(s.activeIssuer(), nil)
	s.documents.EXPECT().Put(gomock.Any(), gomock.Any()).Return("bafy-doc-1", nil)
	s.chain.EXPECT().
		RegisterCredential(gomock.Any(), gomock.Any(), testIssuerDID, "bafy-doc-1").
		Return(chain.Receipt{}, false, dErrors.New(dErrors.CodeChainUnavailable, "node unavailable"))

	_, err := s.svc.Issue(context.Background(), service.IssueInput{
		SubjectID: "did:idverse:holder-1",
		Type:      "income-certificate",
		Claims:    models.Claims{"income": 250000},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChainUnavailable))

	// Nothing was persisted for the failed issuance.
	records, err := s.store.FindBySubject(context.Background(), "did:idverse:holder-1")
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *ServiceSuite) TestIssue_ResolvesRequest() {
	ctx := context.Background()

	req, err := s.svc.RequestIssue(ctx, "did:idverse:holder-1", "income-certificate", models.Claims{"income": 250000})
	s.Require().NoError(err)
	s.Equal(models.RequestPending, req.Status)
	s.Regexp(`^req-income-certificate-[0-9a-f]{8}$`, req.ID)

	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(s.activeIssuer(), nil)
	s.documents.EXPECT().Put(gomock.Any(), gomock.Any()).Return("bafy-doc-1", nil)
	s.chain.EXPECT().
		RegisterCredential(gomock.Any(), gomock.Any(), testIssuerDID, "bafy-doc-1").
		Return(chain.Receipt{TxnHash: common.HexToHash("0xa1")}, false, nil)

	record, err := s.svc.Issue(ctx, service.IssueInput{
		SubjectID: req.SubjectID,
		Type:      req.Type,
		Claims:    req.Claims,
		RequestID: req.ID,
	})
	s.Require().NoError(err)

	resolved, err := s.store.FindRequestByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestIssued, resolved.Status)
	s.Equal(record.ID, resolved.CredentialID)
	s.Require().NotNil(resolved.ResolvedAt)
	s.Equal(s.now, *resolved.ResolvedAt)
}

func (s *ServiceSuite) TestRevoke() {
	ctx := context.Background()
	record := s.issueRecord(ctx, models.Claims{"income": 250000})

	receipt := chain.Receipt{TxnHash: common.HexToHash("0xb2"), BlockNumber: 43}
	s.chain.EXPECT().
		RevokeCredential(gomock.Any(), record.ChainRef.Commitment, "document forged").
		Return(receipt, nil)

	got, err := s.svc.Revoke(ctx, record.ID, "document forged")
	s.Require().NoError(err)
	s.Equal(receipt.TxnHash, got.TxnHash)
}

func (s *ServiceSuite) TestRevoke_AlreadyRevoked() {
	ctx := context.Background()
	record := s.issueRecord(ctx, models.Claims{"income": 250000})

	s.chain.EXPECT().
		RevokeCredential(gomock.Any(), record.ChainRef.Commitment, "again").
		Return(chain.Receipt{}, dErrors.New(dErrors.CodeRevokedCredential, "already revoked"))

	_, err := s.svc.Revoke(ctx, record.ID, "again")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRevokedCredential))
}

func (s *ServiceSuite) TestRevoke_UnknownCredential() {
	_, err := s.svc.Revoke(context.Background(), "vc-missing-00000000", "reason")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeVCNotFound))
}

func (s *ServiceSuite) TestStatus() {
	ctx := context.Background()
	record := s.issueRecord(ctx, models.Claims{"income": 250000})

	s.chain.EXPECT().Status(gomock.Any(), record.ChainRef.Commitment).Return(chain.CredentialStatus{
		Commitment:   record.ChainRef.Commitment,
		Registered:   true,
		Revoked:      true,
		RevokeReason: "document forged",
	}, nil)

	info, err := s.svc.Status(ctx, record.ID)
	s.Require().NoError(err)
	s.True(info.Registered)
	s.True(info.Revoked)
	s.Equal("document forged", info.RevokeReason)
	s.False(info.Expired)
}

func (s *ServiceSuite) TestStatus_NotOnChain() {
	ctx := context.Background()
	record := s.issueRecord(ctx, models.Claims{"income": 250000})

	s.chain.EXPECT().Status(gomock.Any(), record.ChainRef.Commitment).
		Return(chain.CredentialStatus{}, dErrors.New(dErrors.CodeVCNotFound, "unknown commitment"))

	info, err := s.svc.Status(ctx, record.ID)
	s.Require().NoError(err)
	s.False(info.Registered)
}

func (s *ServiceSuite) TestEnsureIssuerRegistered() {
	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).
		Return(chain.IssuerInfo{}, dErrors.New(dErrors.CodeUntrustedIssuer, "unknown issuer"))
	s.chain.EXPECT().
		RegisterIssuer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, info chain.IssuerInfo) (chain.Receipt, error) {
			s.Equal(testIssuerDID, info.DID)
			s.Equal(s.signer.PublicKeyHex(), info.PublicKeyHex)
			s.True(info.Active)
			return chain.Receipt{TxnHash: common.HexToHash("0xc3")}, nil
		})

	s.Require().NoError(s.svc.EnsureIssuerRegistered(context.Background()))
}

func (s *ServiceSuite) TestEnsureIssuerRegistered_AlreadyKnown() {
	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(s.activeIssuer(), nil)
	s.Require().NoError(s.svc.EnsureIssuerRegistered(context.Background()))
}

// issueRecord runs a full issuance with permissive chain expectations, for
// tests that need an existing credential.
func (s *ServiceSuite) issueRecord(ctx context.Context, claims models.Claims) models.CredentialRecord {
	s.chain.EXPECT().Issuer(gomock.Any(), testIssuerDID).Return(s.activeIssuer(), nil)
	s.documents.EXPECT().Put(gomock.Any(), gomock.Any()).Return("bafy-doc-1", nil)
	s.chain.EXPECT().
		RegisterCredential(gomock.Any(), gomock.Any(), testIssuerDID, "bafy-doc-1").
		Return(chain.Receipt{TxnHash: common.HexToHash("0xa1"), BlockNumber: 42}, false, nil)

	record, err := s.svc.Issue(ctx, service.IssueInput{
		SubjectID: "did:idverse:holder-1",
		Type:      "income-certificate",
		Claims:    claims,
	})
	s.Require().NoError(err)
	return record
}
