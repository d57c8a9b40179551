package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idverse/contracts/registry"
	"idverse/internal/benefit/models"
	"idverse/internal/benefit/service"
	"idverse/internal/benefit/service/mocks"
	"idverse/internal/benefit/store"
	"idverse/internal/chain"
	credmodels "idverse/internal/credential/models"
	dErrors "idverse/pkg/domain-errors"
)

const testCredentialID = "vc-income-certificate-0a1b2c3d"

type BenefitSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	ledger      *mocks.MockLedger
	credentials *mocks.MockCredentials
	store       *store.InMemoryStore
	now         time.Time
	svc         *service.Service
}

func TestBenefitSuite(t *testing.T) {
	suite.Run(t, new(BenefitSuite))
}

func (s *BenefitSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.credentials = mocks.NewMockCredentials(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc, err := service.New(s.store, s.ledger, s.credentials,
		service.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *BenefitSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *BenefitSuite) validStatus() credmodels.StatusInfo {
	return credmodels.StatusInfo{Registered: true}
}

func (s *BenefitSuite) apply() models.Application {
	s.credentials.EXPECT().Status(gomock.Any(), testCredentialID).Return(s.validStatus(), nil)
	s.ledger.EXPECT().
		RecordApplication(gomock.Any(), gomock.Any(), testCredentialID).
		Return(chain.Receipt{TxnHash: common.HexToHash("0xd4")}, nil)

	app, err := s.svc.Apply(context.Background(), "did:idverse:holder-1", "pm-housing", testCredentialID)
	s.Require().NoError(err)
	return app
}

func (s *BenefitSuite) TestApply() {
	app := s.apply()

	s.Contains(app.ID, "app-")
	s.Equal(models.ApplicationRecorded, app.Status)
	s.Equal(common.HexToHash("0xd4"), app.TxnHash)

	stored, err := s.store.FindByID(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, stored.ID)
}

func (s *BenefitSuite) TestApply_RevokedCredential() {
	s.credentials.EXPECT().Status(gomock.Any(), testCredentialID).
		Return(credmodels.StatusInfo{Registered: true, Revoked: true}, nil)

	_, err := s.svc.Apply(context.Background(), "did:idverse:holder-1", "pm-housing", testCredentialID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRevokedCredential))
}

func (s *BenefitSuite) TestApply_UnregisteredCredential() {
	s.credentials.EXPECT().Status(gomock.Any(), testCredentialID).
		Return(credmodels.StatusInfo{Registered: false}, nil)

	_, err := s.svc.Apply(context.Background(), "did:idverse:holder-1", "pm-housing", testCredentialID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeVCNotFound))
}

func (s *BenefitSuite) TestApply_Validation() {
	_, err := s.svc.Apply(context.Background(), "", "pm-housing", testCredentialID)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Apply(context.Background(), "did:idverse:holder-1", "", testCredentialID)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Apply(context.Background(), "did:idverse:holder-1", "pm-housing", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *BenefitSuite) TestApply_LedgerDown() {
	s.credentials.EXPECT().Status(gomock.Any(), testCredentialID).Return(s.validStatus(), nil)
	s.ledger.EXPECT().
		RecordApplication(gomock.Any(), gomock.Any(), testCredentialID).
		Return(chain.Receipt{}, dErrors.New(dErrors.CodeChainUnavailable, "node unavailable"))

	_, err := s.svc.Apply(context.Background(), "did:idverse:holder-1", "pm-housing", testCredentialID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChainUnavailable))
}

func (s *BenefitSuite) TestApprove() {
	app := s.apply()

	s.credentials.EXPECT().Status(gomock.Any(), testCredentialID).Return(s.validStatus(), nil)
	s.ledger.EXPECT().
		UpdateApplication(gomock.Any(), app.ID, registry.BenefitApproved).
		Return(chain.Receipt{TxnHash: common.HexToHash("0xe5")}, nil)

	decided, err := s.svc.Decide(context.Background(), app.ID, true, "verified against registry")
	s.Require().NoError(err)
	s.Equal(models.ApplicationApproved, decided.Status)
	s.Equal("verified against registry", decided.DecisionNote)
	s.Equal(common.HexToHash("0xe5"), decided.TxnHash)
}

func (s *BenefitSuite) TestApprove_RevokedSinceApplication() {
	app := s.apply()

	// The supporting credential was revoked after the application was
	// recorded; approval must be blocked.
	s.credentials.EXPECT().Status(gomock.Any(), testCredentialID).
		Return(credmodels.StatusInfo{Registered: true, Revoked: true}, nil)

	_, err := s.svc.Decide(context.Background(), app.ID, true, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRevokedCredential))

	stored, err := s.store.FindByID(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Equal(models.ApplicationRecorded, stored.Status)
}

func (s *BenefitSuite) TestReject_SkipsCredentialCheck() {
	app := s.apply()

	s.ledger.EXPECT().
		UpdateApplication(gomock.Any(), app.ID, registry.BenefitRejected).
		Return(chain.Receipt{TxnHash: common.HexToHash("0xe6")}, nil)

	decided, err := s.svc.Decide(context.Background(), app.ID, false, "incomplete documents")
	s.Require().NoError(err)
	s.Equal(models.ApplicationRejected, decided.Status)
}

func (s *BenefitSuite) TestDecide_Terminal() {
	app := s.apply()

	s.ledger.EXPECT().
		UpdateApplication(gomock.Any(), app.ID, registry.BenefitRejected).
		Return(chain.Receipt{}, nil)

	_, err := s.svc.Decide(context.Background(), app.ID, false, "incomplete documents")
	s.Require().NoError(err)

	_, err = s.svc.Decide(context.Background(), app.ID, false, "again")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *BenefitSuite) TestDecide_Unknown() {
	_, err := s.svc.Decide(context.Background(), "app-missing", true, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *BenefitSuite) TestApplications() {
	first := s.apply()

	s.now = s.now.Add(time.Minute)
	s.credentials.EXPECT().Status(gomock.Any(), testCredentialID).Return(s.validStatus(), nil)
	s.ledger.EXPECT().
		RecordApplication(gomock.Any(), gomock.Any(), testCredentialID).
		Return(chain.Receipt{}, nil)
	second, err := s.svc.Apply(context.Background(), "did:idverse:holder-1", "pm-scholarship", testCredentialID)
	s.Require().NoError(err)

	apps, err := s.svc.Applications(context.Background(), "did:idverse:holder-1")
	s.Require().NoError(err)
	s.Require().Len(apps, 2)
	s.Equal(first.ID, apps[0].ID)
	s.Equal(second.ID, apps[1].ID)
}
