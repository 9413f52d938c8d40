package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"github.com/campustix/campustix/internal/clock"
	"github.com/campustix/campustix/internal/config"
	notificationdomain "github.com/campustix/campustix/internal/notification/domain"
	obsmetrics "github.com/campustix/campustix/internal/observability/metrics"
	payoutdomain "github.com/campustix/campustix/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Repo       payoutdomain.Repository
	Notifier   notificationdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          payoutdomain.Repository
	notifier      notificationdomain.Service
	obsMetrics    *obsmetrics.Metrics
	serviceCharge int64
	minWithdrawal int64
}

func NewService(p Params) payoutdomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payout.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		notifier:      p.Notifier,
		obsMetrics:    p.ObsMetrics,
		serviceCharge: p.Config.ServiceCharge,
		minWithdrawal: p.Config.MinWithdrawal,
	}
}

func (s *Service) Balance(ctx context.Context, actor actorcontext.Actor) (*payoutdomain.Balance, error) {
	if !actor.IsOrganizer() && !actor.IsAdmin() {
		return nil, payoutdomain.ErrNotCreator
	}
	return s.balance(ctx, s.db, actor.ID)
}

func (s *Service) balance(ctx context.Context, db *gorm.DB, creatorID snowflake.ID) (*payoutdomain.Balance, error) {
	net, withdrawn, err := s.repo.BalanceComponents(ctx, db, creatorID, s.serviceCharge)
	if err != nil {
		return nil, err
	}
	return &payoutdomain.Balance{
		CreatorID:  creatorID,
		NetRevenue: net,
		Withdrawn:  withdrawn,
		Available:  net - withdrawn,
	}, nil
}

// Submit creates a pending withdrawal. The profile row lock serializes this
// with approvals for the same creator, so the balance check cannot race a
// concurrent decision.
func (s *Service) Submit(ctx context.Context, actor actorcontext.Actor, amount int64) (*payoutdomain.WithdrawalRequest, error) {
	if !actor.IsOrganizer() {
		return nil, payoutdomain.ErrNotCreator
	}
	if amount <= 0 {
		return nil, payoutdomain.ErrInvalidAmount
	}
	if amount < s.minWithdrawal {
		return nil, payoutdomain.ErrBelowMinimum
	}

	now := s.clock.Now().UTC()
	var wr payoutdomain.WithdrawalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.repo.FindProfileLocked(ctx, tx, actor.ID)
		if err != nil {
			return err
		}
		if profile == nil || !profile.IsBankVerified {
			return payoutdomain.ErrBankNotVerified
		}

		balance, err := s.balance(ctx, tx, actor.ID)
		if err != nil {
			return err
		}
		if amount > balance.Available {
			return &payoutdomain.InsufficientBalanceError{
				Requested: amount,
				Available: balance.Available,
			}
		}

		wr = payoutdomain.WithdrawalRequest{
			ID:                s.genID.Generate(),
			CreatorID:         actor.ID,
			Amount:            amount,
			Status:            payoutdomain.StatusPending,
			BankName:          profile.BankName,
			BankAccountNumber: profile.BankAccountNumber,
			BankAccountName:   profile.BankAccountName,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return s.repo.InsertWithdrawal(ctx, tx, &wr)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal submitted",
		zap.Int64("withdrawal_id", wr.ID.Int64()),
		zap.Int64("creator_id", actor.ID.Int64()),
		zap.Int64("amount", amount),
	)
	return &wr, nil
}

// Approve re-checks the derived balance under the creator's profile lock
// before flipping the request, so approvals against a stale balance fail
// loudly instead of overdrawing the ledger.
func (s *Service) Approve(ctx context.Context, actor actorcontext.Actor, id snowflake.ID, note string) (*payoutdomain.WithdrawalRequest, error) {
	if !actor.IsAdmin() {
		return nil, payoutdomain.ErrNotAdmin
	}

	now := s.clock.Now().UTC()
	var wr *payoutdomain.WithdrawalRequest
	var recipient string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wr, err = s.repo.FindWithdrawal(ctx, tx, id)
		if err != nil {
			return err
		}
		if wr == nil {
			return payoutdomain.ErrWithdrawalNotFound
		}
		if wr.Status != payoutdomain.StatusPending {
			return payoutdomain.ErrNotPending
		}

		profile, err := s.repo.FindProfileLocked(ctx, tx, wr.CreatorID)
		if err != nil {
			return err
		}
		if profile != nil {
			recipient = profile.Email
		}

		balance, err := s.balance(ctx, tx, wr.CreatorID)
		if err != nil {
			return err
		}
		if wr.Amount > balance.Available {
			return &payoutdomain.InsufficientBalanceError{
				Requested: wr.Amount,
				Available: balance.Available,
			}
		}

		approved, err := s.repo.ApproveWithdrawal(ctx, tx, id, actor.ID, note, now)
		if err != nil {
			return err
		}
		if !approved {
			return payoutdomain.ErrNotPending
		}

		wr.Status = payoutdomain.StatusApproved
		adminID := actor.ID
		wr.AdminID = &adminID
		if note != "" {
			wr.AdminNote = &note
		}
		wr.DecidedAt = &now
		wr.UpdatedAt = now

		if recipient == "" {
			return nil
		}
		return s.notifier.Enqueue(ctx, tx, notificationdomain.TypeWithdrawalApproved, recipient, map[string]interface{}{
			"withdrawal_id": wr.ID.String(),
			"amount":        wr.Amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordWithdrawalDecision(ctx, payoutdomain.StatusApproved)
	s.log.Info("withdrawal approved",
		zap.Int64("withdrawal_id", id.Int64()),
		zap.Int64("admin_id", actor.ID.Int64()),
	)
	return wr, nil
}

func (s *Service) Reject(ctx context.Context, actor actorcontext.Actor, id snowflake.ID, reason string) (*payoutdomain.WithdrawalRequest, error) {
	if !actor.IsAdmin() {
		return nil, payoutdomain.ErrNotAdmin
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, payoutdomain.ErrReasonRequired
	}

	now := s.clock.Now().UTC()
	var wr *payoutdomain.WithdrawalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wr, err = s.repo.FindWithdrawal(ctx, tx, id)
		if err != nil {
			return err
		}
		if wr == nil {
			return payoutdomain.ErrWithdrawalNotFound
		}

		rejected, err := s.repo.RejectWithdrawal(ctx, tx, id, actor.ID, reason, now)
		if err != nil {
			return err
		}
		if !rejected {
			return payoutdomain.ErrNotPending
		}

		wr.Status = payoutdomain.StatusRejected
		adminID := actor.ID
		wr.AdminID = &adminID
		wr.RejectReason = &reason
		wr.DecidedAt = &now
		wr.UpdatedAt = now

		profile, err := s.repo.FindProfile(ctx, tx, wr.CreatorID)
		if err != nil {
			return err
		}
		if profile == nil || profile.Email == "" {
			return nil
		}
		return s.notifier.Enqueue(ctx, tx, notificationdomain.TypeWithdrawalRejected, profile.Email, map[string]interface{}{
			"withdrawal_id": wr.ID.String(),
			"reason":        reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordWithdrawalDecision(ctx, payoutdomain.StatusRejected)
	s.log.Info("withdrawal rejected",
		zap.Int64("withdrawal_id", id.Int64()),
		zap.Int64("admin_id", actor.ID.Int64()),
	)
	return wr, nil
}

func (s *Service) UpsertBankDetails(ctx context.Context, actor actorcontext.Actor, req payoutdomain.BankDetailsRequest) (*payoutdomain.CreatorProfile, error) {
	if !actor.IsOrganizer() {
		return nil, payoutdomain.ErrNotCreator
	}
	req.BankName = strings.TrimSpace(req.BankName)
	req.BankAccountNumber = strings.TrimSpace(req.BankAccountNumber)
	req.BankAccountName = strings.TrimSpace(req.BankAccountName)
	if req.BankName == "" || req.BankAccountNumber == "" || req.BankAccountName == "" {
		return nil, payoutdomain.ErrInvalidBankDetails
	}

	now := s.clock.Now().UTC()
	profile := payoutdomain.CreatorProfile{
		CreatorID:         actor.ID,
		Email:             actor.Email,
		BankName:          req.BankName,
		BankAccountNumber: req.BankAccountNumber,
		BankAccountName:   req.BankAccountName,
		// Changing bank details always drops verification.
		IsBankVerified: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.UpsertProfile(ctx, s.db, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Service) VerifyBank(ctx context.Context, actor actorcontext.Actor, creatorID snowflake.ID) (*payoutdomain.CreatorProfile, error) {
	if !actor.IsAdmin() {
		return nil, payoutdomain.ErrNotAdmin
	}
	now := s.clock.Now().UTC()
	verified, err := s.repo.SetBankVerified(ctx, s.db, creatorID, now)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, payoutdomain.ErrProfileNotFound
	}
	return s.repo.FindProfile(ctx, s.db, creatorID)
}
