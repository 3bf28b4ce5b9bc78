package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/gateway"
	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crowdfunding-backend/internal/validation"
)

// DonationRepository хранилище донатов.
type DonationRepository interface {
	Create(ctx context.Context, d *models.Donation) error
	DeletePending(ctx context.Context, id uuid.UUID) error
	SetTransactionRef(ctx context.Context, id uuid.UUID, ref string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	FindByExternalOrderID(ctx context.Context, orderID string) (*models.Donation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Donation, error)
	ListSuccessfulByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.Donation, error)
}

// CampaignReader чтение кампании по id.
type CampaignReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
}

// UserReader чтение пользователя по id.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PaymentGateway создание транзакции на стороне платёжного шлюза.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req gateway.TransactionRequest) (*gateway.Transaction, error)
}

// CreateDonationInput параметры нового доната.
type CreateDonationInput struct {
	CampaignID  uuid.UUID
	UserID      *uuid.UUID
	DonorName   string
	IsAnonymous bool
	Amount      string
	Message     string
}

// DonationCheckout данные для перехода донора на страницу оплаты.
type DonationCheckout struct {
	DonationID  uuid.UUID       `json:"donation_id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	SnapToken   string          `json:"snap_token"`
	RedirectURL string          `json:"redirect_url"`
}

// DonationService создание и чтение донатов.
type DonationService struct {
	donations      DonationRepository
	campaigns      CampaignReader
	users          UserReader
	gateway        PaymentGateway
	orderIDs       *OrderIDGenerator
	gatewayTimeout time.Duration
	now            func() time.Time
}

func NewDonationService(
	donations DonationRepository,
	campaigns CampaignReader,
	users UserReader,
	gw PaymentGateway,
	orderIDs *OrderIDGenerator,
	gatewayTimeout time.Duration,
) *DonationService {
	return &DonationService{
		donations:      donations,
		campaigns:      campaigns,
		users:          users,
		gateway:        gw,
		orderIDs:       orderIDs,
		gatewayTimeout: gatewayTimeout,
		now:            time.Now,
	}
}

// CreateDonation регистрирует донат в статусе pending и открывает транзакцию в шлюзе.
// Если шлюз не ответил, донат удаляется.
func (s *DonationService) CreateDonation(ctx context.Context, in CreateDonationInput) (*DonationCheckout, error) {
	amount, err := valueobject.ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateDonorName(in.DonorName); err != nil {
		return nil, err
	}
	if err := validation.ValidateDonationMessage(in.Message); err != nil {
		return nil, err
	}

	campaign, err := s.campaigns.GetByID(ctx, in.CampaignID)
	if err != nil {
		return nil, toAppError(err)
	}
	if !campaign.AcceptsDonations(s.now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "кампания не принимает пожертвования")
	}

	var user *models.User
	if in.UserID != nil {
		if user, err = s.users.GetByID(ctx, *in.UserID); err != nil {
			return nil, toAppError(err)
		}
	}

	d := &models.Donation{
		CampaignID:      campaign.ID,
		UserID:          in.UserID,
		DonorName:       donorName(in, user),
		IsAnonymous:     in.IsAnonymous,
		Amount:          amount,
		ExternalOrderID: s.orderIDs.Next(),
		PaymentStatus:   valueobject.PaymentStatusPending,
	}
	if msg := strings.TrimSpace(in.Message); msg != "" {
		d.Message = &msg
	}

	if err := s.donations.Create(ctx, d); err != nil {
		return nil, toAppError(err)
	}

	log := logger.Component("donation").WithFields(logrus.Fields{
		"donation_id": d.ID,
		"order_id":    d.ExternalOrderID,
		"campaign_id": campaign.ID,
	})

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	tx, err := s.gateway.CreateTransaction(gwCtx, gateway.TransactionRequest{
		OrderID:     d.ExternalOrderID,
		GrossAmount: amount,
		Customer:    customerOf(d, user),
	})
	if err != nil {
		log.WithError(err).Error("шлюз не создал транзакцию, донат удалён")
		if delErr := s.donations.DeletePending(context.WithoutCancel(ctx), d.ID); delErr != nil {
			log.WithError(delErr).Error("не удалось удалить донат без транзакции")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "платёжный шлюз недоступен")
	}

	if err := s.donations.SetTransactionRef(ctx, d.ID, tx.Token); err != nil {
		log.WithError(err).Warn("не удалось сохранить токен транзакции")
	}

	log.Info("донат создан")
	return &DonationCheckout{
		DonationID:  d.ID,
		OrderID:     d.ExternalOrderID,
		Amount:      amount,
		SnapToken:   tx.Token,
		RedirectURL: tx.RedirectURL,
	}, nil
}

func donorName(in CreateDonationInput, user *models.User) string {
	if in.IsAnonymous {
		return models.AnonymousDonorName
	}
	if name := strings.TrimSpace(in.DonorName); name != "" {
		return name
	}
	if user != nil && user.Name != "" {
		return user.Name
	}
	return models.AnonymousDonorName
}

func customerOf(d *models.Donation, user *models.User) gateway.Customer {
	c := gateway.Customer{FirstName: d.DonorName}
	if user != nil {
		c.Email = user.Email
		if user.Phone != nil {
			c.Phone = *user.Phone
		}
	}
	return c
}

// GetDonation отдаёт донат его автору или любой успешный донат.
func (s *DonationService) GetDonation(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (*models.Donation, error) {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	owner := viewerID != nil && d.UserID != nil && *d.UserID == *viewerID
	if !owner && !d.IsSuccess() {
		return nil, apperror.ErrDonationNotFound
	}
	return d, nil
}

// FindByExternalOrderID ищет донат по идентификатору заказа шлюза.
func (s *DonationService) FindByExternalOrderID(ctx context.Context, orderID string) (*models.Donation, error) {
	d, err := s.donations.FindByExternalOrderID(ctx, orderID)
	return d, toAppError(err)
}

func (s *DonationService) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Donation, error) {
	limit, offset = page(limit, offset)
	list, err := s.donations.ListByUser(ctx, userID, limit, offset)
	return list, toAppError(err)
}

// ListSupporters публичный список успешных донатов кампании без персональных данных.
func (s *DonationService) ListSupporters(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.PublicDonation, error) {
	limit, offset = page(limit, offset)
	list, err := s.donations.ListSuccessfulByCampaign(ctx, campaignID, limit, offset)
	if err != nil {
		return nil, toAppError(err)
	}
	out := make([]models.PublicDonation, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToPublic())
	}
	return out, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
