package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

// Константы валидации
const (
	MinCampaignTitleLength       = 5
	MaxCampaignTitleLength       = 200
	MaxCampaignDescriptionLength = 10000
	MaxCoverImageLength          = 500
	MaxDonorNameLength           = 100
	MaxDonationMessageLength     = 500
	MaxReasonLength              = 1000
)

func invalid(format string, args ...interface{}) error {
	return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return invalid("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return invalid("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s не может быть пустым", fieldName)
	}
	return nil
}

func ValidateCampaignTitle(title string) error {
	title = strings.TrimSpace(title)
	if err := ValidateNonEmpty("название кампании", title); err != nil {
		return err
	}
	return ValidateLength("название кампании", title, MinCampaignTitleLength, MaxCampaignTitleLength)
}

func ValidateCampaignDescription(description string) error {
	return ValidateLength("описание кампании", strings.TrimSpace(description), 0, MaxCampaignDescriptionLength)
}

// ValidateCoverImage проверяет ссылку на обложку: только http(s) с доменом.
func ValidateCoverImage(link string) error {
	link = strings.TrimSpace(link)
	if err := ValidateLength("ссылка на обложку", link, 1, MaxCoverImageLength); err != nil {
		return err
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return invalid("некорректный формат URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return invalid("ссылка должна начинаться с http:// или https://")
	}
	if parsedURL.Host == "" {
		return invalid("ссылка должна содержать доменное имя")
	}
	return nil
}

func ValidateDonorName(name string) error {
	return ValidateLength("имя донора", strings.TrimSpace(name), 0, MaxDonorNameLength)
}

func ValidateDonationMessage(message string) error {
	return ValidateLength("сообщение", strings.TrimSpace(message), 0, MaxDonationMessageLength)
}

// ValidateReason причина решения администратора.
func ValidateReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("укажите причину отклонения")
	}
	return ValidateLength("причина", reason, 0, MaxReasonLength)
}
