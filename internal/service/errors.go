package service

import (
	"errors"

	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crowdfunding-backend/internal/repository"
)

var repoErrors = map[error]*apperror.AppError{
	repository.ErrDonationNotFound:     apperror.ErrDonationNotFound,
	repository.ErrCampaignNotFound:     apperror.ErrCampaignNotFound,
	repository.ErrWithdrawalNotFound:   apperror.ErrWithdrawalNotFound,
	repository.ErrWalletNotFound:       apperror.ErrWalletNotFound,
	repository.ErrInsufficientFunds:    apperror.ErrInsufficientFunds,
	repository.ErrNotificationNotFound: apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено"),
	repository.ErrUserNotFound:         apperror.New(apperror.ErrCodeNotFound, "пользователь не найден"),
	repository.ErrMasterNotFound:       apperror.New(apperror.ErrCodeInternal, "мастер-счёт не создан"),
	repository.ErrCampaignStateChanged: apperror.New(apperror.ErrCodeConflict, "статус кампании изменился, повторите запрос"),
	repository.ErrWithdrawalNotPending: apperror.New(apperror.ErrCodeConflict, "заявка уже рассмотрена"),
}

// toAppError приводит ошибку хранилища к типизированной ошибке сервиса.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for sentinel, mapped := range repoErrors {
		if errors.Is(err, sentinel) {
			return mapped
		}
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "ошибка хранилища")
}
