package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/metrics"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crowdfunding-backend/internal/validation"
)

// CampaignRepository хранилище кампаний.
type CampaignRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	Approve(ctx context.Context, c *models.Campaign, reviewerID uuid.UUID) error
	Reject(ctx context.Context, c *models.Campaign, reviewerID uuid.UUID, reason string) error
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
	StageChanges(ctx context.Context, c *models.Campaign, changes models.StagedChanges) error
	ApplyStagedChanges(ctx context.Context, id uuid.UUID, changes models.StagedChanges) error
	DiscardStagedChanges(ctx context.Context, id uuid.UUID) error
	RecomputeCollected(ctx context.Context, id uuid.UUID) (before, after decimal.Decimal, err error)
	ListIDsForReconcile(ctx context.Context) ([]uuid.UUID, error)
}

// RecomputeResult итог пересчёта собранной суммы.
type RecomputeResult struct {
	CampaignID uuid.UUID       `json:"campaign_id"`
	Before     decimal.Decimal `json:"before"`
	After      decimal.Decimal `json:"after"`
	Drift      bool            `json:"drift"`
}

// CampaignService модерация кампаний и сверка собранных сумм.
type CampaignService struct {
	repo CampaignRepository
	now  func() time.Time
}

func NewCampaignService(repo CampaignRepository) *CampaignService {
	return &CampaignService{repo: repo, now: time.Now}
}

func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	return c, toAppError(err)
}

func (s *CampaignService) transitionable(ctx context.Context, id uuid.UUID, to valueobject.CampaignStatus) (*models.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	if !c.Status.CanTransitionTo(to) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			fmt.Sprintf("кампанию в статусе %s нельзя перевести в %s", c.Status, to))
	}
	return c, nil
}

// Approve публикует кампанию. При первом одобрении у владельца появляется кошелёк.
func (s *CampaignService) Approve(ctx context.Context, id, adminID uuid.UUID) (*models.Campaign, error) {
	c, err := s.transitionable(ctx, id, valueobject.CampaignStatusApproved)
	if err != nil {
		return nil, err
	}
	if c.Status == valueobject.CampaignStatusEditPending {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "для правок используйте одобрение изменений")
	}
	if err := s.repo.Approve(ctx, c, adminID); err != nil {
		return nil, toAppError(err)
	}

	logger.Component("campaign").WithFields(logrus.Fields{"campaign_id": id, "admin_id": adminID}).Info("кампания одобрена")
	c.Status = valueobject.CampaignStatusApproved
	return c, nil
}

func (s *CampaignService) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.Campaign, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}
	c, err := s.transitionable(ctx, id, valueobject.CampaignStatusRejected)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Reject(ctx, c, adminID, reason); err != nil {
		return nil, toAppError(err)
	}

	logger.Component("campaign").WithFields(logrus.Fields{"campaign_id": id, "admin_id": adminID}).Info("кампания отклонена")
	c.Status = valueobject.CampaignStatusRejected
	return c, nil
}

// CloseExpired закрывает кампании, у которых прошёл дедлайн.
func (s *CampaignService) CloseExpired(ctx context.Context) (int64, error) {
	closed, err := s.repo.CloseExpired(ctx, s.now())
	if err != nil {
		return 0, toAppError(err)
	}
	if closed > 0 {
		logger.Component("campaign").WithField("closed", closed).Info("закрыты кампании с истёкшим сроком")
	}
	return closed, nil
}

// SubmitChanges сохраняет правки владельца до решения администратора.
func (s *CampaignService) SubmitChanges(ctx context.Context, id, ownerID uuid.UUID, changes models.StagedChanges) (*models.Campaign, error) {
	if err := s.validateChanges(changes); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	if c.UserID != ownerID {
		return nil, apperror.ErrForbidden
	}
	if !c.Status.CanTransitionTo(valueobject.CampaignStatusEditPending) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "кампанию в этом статусе нельзя редактировать")
	}
	if err := s.repo.StageChanges(ctx, c, changes); err != nil {
		return nil, toAppError(err)
	}

	c.Status = valueobject.CampaignStatusEditPending
	c.PendingChanges = changes
	return c, nil
}

// ApproveChanges применяет все правки разом.
func (s *CampaignService) ApproveChanges(ctx context.Context, id, adminID uuid.UUID) (*models.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	if c.Status != valueobject.CampaignStatusEditPending || len(c.PendingChanges) == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "у кампании нет правок на рассмотрении")
	}
	if err := s.validateChanges(c.PendingChanges); err != nil {
		return nil, err
	}
	if err := s.repo.ApplyStagedChanges(ctx, id, c.PendingChanges); err != nil {
		return nil, toAppError(err)
	}

	logger.Component("campaign").WithFields(logrus.Fields{
		"campaign_id": id,
		"admin_id":    adminID,
		"changes":     len(c.PendingChanges),
	}).Info("правки кампании применены")
	return s.Get(ctx, id)
}

// RejectChanges отбрасывает правки, кампания остаётся в прежнем виде.
func (s *CampaignService) RejectChanges(ctx context.Context, id, adminID uuid.UUID) (*models.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	if c.Status != valueobject.CampaignStatusEditPending {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "у кампании нет правок на рассмотрении")
	}
	if err := s.repo.DiscardStagedChanges(ctx, id); err != nil {
		return nil, toAppError(err)
	}

	logger.Component("campaign").WithFields(logrus.Fields{"campaign_id": id, "admin_id": adminID}).Info("правки кампании отклонены")
	c.Status = valueobject.CampaignStatusApproved
	c.PendingChanges = nil
	return c, nil
}

func (s *CampaignService) validateChanges(changes models.StagedChanges) error {
	if len(changes) == 0 {
		return apperror.New(apperror.ErrCodeValidation, "нет изменений")
	}
	seen := make(map[string]struct{}, len(changes))
	for _, ch := range changes {
		if _, ok := models.EditableCampaignFields[ch.Field]; !ok {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("поле %q нельзя изменить", ch.Field))
		}
		if _, dup := seen[ch.Field]; dup {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("поле %q указано дважды", ch.Field))
		}
		seen[ch.Field] = struct{}{}

		switch ch.Field {
		case models.CampaignFieldTitle:
			if err := validation.ValidateCampaignTitle(ch.Value); err != nil {
				return err
			}
		case models.CampaignFieldDescription:
			if err := validation.ValidateCampaignDescription(ch.Value); err != nil {
				return err
			}
		case models.CampaignFieldCoverImage:
			if err := validation.ValidateCoverImage(ch.Value); err != nil {
				return err
			}
		case models.CampaignFieldTargetAmount:
			if _, err := valueobject.ParseAmount(ch.Value); err != nil {
				return err
			}
		case models.CampaignFieldDeadline:
			deadline, err := time.Parse(time.RFC3339, ch.Value)
			if err != nil {
				return apperror.New(apperror.ErrCodeValidation, "дедлайн должен быть в формате RFC3339")
			}
			if !deadline.After(s.now()) {
				return apperror.New(apperror.ErrCodeValidation, "дедлайн должен быть в будущем")
			}
		}
	}
	return nil
}

// Recompute пересчитывает собранную сумму по успешным донатам.
func (s *CampaignService) Recompute(ctx context.Context, id uuid.UUID) (*RecomputeResult, error) {
	before, after, err := s.repo.RecomputeCollected(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}

	res := &RecomputeResult{CampaignID: id, Before: before, After: after, Drift: !before.Equal(after)}
	if res.Drift {
		metrics.ReconcileDriftTotal.Inc()
		logger.Component("campaign").WithFields(logrus.Fields{
			"campaign_id": id,
			"before":      before.String(),
			"after":       after.String(),
		}).Warn("собранная сумма кампании расходилась с суммой донатов")
	}
	return res, nil
}

// ReconcileAll сверяет все кампании, которые могли получать донаты. Возвращает число расхождений.
func (s *CampaignService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListIDsForReconcile(ctx)
	if err != nil {
		return 0, toAppError(err)
	}

	drifted := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return drifted, ctx.Err()
		}
		res, err := s.Recompute(ctx, id)
		if err != nil {
			logger.Component("campaign").WithError(err).WithField("campaign_id", id).Error("сверка кампании не удалась")
			continue
		}
		if res.Drift {
			drifted++
		}
	}

	logger.Component("campaign").WithFields(logrus.Fields{"checked": len(ids), "drifted": drifted}).Info("сверка кампаний завершена")
	return drifted, nil
}
