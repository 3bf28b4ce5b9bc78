package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
)

// Поля кампании, которые владелец может менять через модерацию.
const (
	CampaignFieldTitle        = "title"
	CampaignFieldDescription  = "description"
	CampaignFieldTargetAmount = "target_amount"
	CampaignFieldDeadline     = "deadline"
	CampaignFieldCoverImage   = "cover_image"
)

// EditableCampaignFields список полей, допустимых в StagedChange.
var EditableCampaignFields = map[string]struct{}{
	CampaignFieldTitle:        {},
	CampaignFieldDescription:  {},
	CampaignFieldTargetAmount: {},
	CampaignFieldDeadline:     {},
	CampaignFieldCoverImage:   {},
}

// StagedChange одно предложенное изменение поля кампании.
type StagedChange struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// StagedChanges набор изменений, ожидающих решения администратора.
type StagedChanges []StagedChange

// Value сохраняет изменения в jsonb.
func (s StagedChanges) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan читает изменения из jsonb.
func (s *StagedChanges) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("staged changes: неподдерживаемый тип")
	}
}

// Campaign агрегат, который собирает пожертвования.
type Campaign struct {
	ID              uuid.UUID                  `db:"id" json:"id"`
	UserID          uuid.UUID                  `db:"user_id" json:"user_id"`
	CategoryID      *uuid.UUID                 `db:"category_id" json:"category_id,omitempty"`
	Title           string                     `db:"title" json:"title"`
	Slug            string                     `db:"slug" json:"slug"`
	Description     *string                    `db:"description" json:"description,omitempty"`
	TargetAmount    decimal.Decimal            `db:"target_amount" json:"target_amount"`
	CollectedAmount decimal.Decimal            `db:"collected_amount" json:"collected_amount"`
	Deadline        time.Time                  `db:"deadline" json:"deadline"`
	Status          valueobject.CampaignStatus `db:"status" json:"status"`
	CoverImage      string                     `db:"cover_image" json:"cover_image"`
	PendingChanges  StagedChanges              `db:"pending_changes" json:"pending_changes,omitempty"`
	CreatedAt       time.Time                  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                  `db:"updated_at" json:"updated_at"`
}

// IsExpired сообщает, прошёл ли дедлайн кампании.
func (c *Campaign) IsExpired(now time.Time) bool {
	return c.Deadline.Before(now)
}

// AcceptsDonations сообщает, можно ли сейчас жертвовать в кампанию.
func (c *Campaign) AcceptsDonations(now time.Time) bool {
	return c.Status.AcceptsDonations() && !c.IsExpired(now)
}

// CampaignVerificationRequest заявка на подтверждение личности организатора.
type CampaignVerificationRequest struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	CampaignID         uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	VerificationStatus string     `db:"verification_status" json:"verification_status"`
	ReviewedBy         *uuid.UUID `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}
