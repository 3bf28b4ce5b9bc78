package service

import (
	"fmt"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crowdfunding-backend/internal/gateway"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

// Effect изменение балансов, которое сопровождает переход статуса.
type Effect int

const (
	EffectNone Effect = iota
	// EffectCredit донат стал успешным: +amount кампании и мастер-счёту.
	EffectCredit
	// EffectReverse успешный донат отменён: -amount кампании и мастер-счёту.
	EffectReverse
)

func (e Effect) String() string {
	switch e {
	case EffectCredit:
		return "credit"
	case EffectReverse:
		return "reverse"
	default:
		return "none"
	}
}

// Transition результат применения уведомления к текущему статусу.
type Transition struct {
	From valueobject.PaymentStatus
	// Requested статус, который следует из уведомления.
	Requested valueobject.PaymentStatus
	Target    valueobject.PaymentStatus
	Effect    Effect
}

// Changed сообщает, меняется ли сохранённый статус.
func (t Transition) Changed() bool {
	return t.From != t.Target
}

// TargetFromGateway переводит статус шлюза и результат антифрода в статус доната.
func TargetFromGateway(gatewayStatus, fraudStatus string) (valueobject.PaymentStatus, error) {
	switch gatewayStatus {
	case gateway.StatusCapture:
		switch fraudStatus {
		case gateway.FraudAccept, "":
			return valueobject.PaymentStatusSuccess, nil
		case gateway.FraudChallenge:
			return valueobject.PaymentStatusPending, nil
		case gateway.FraudDeny:
			return valueobject.PaymentStatusFailed, nil
		}
		return "", apperror.New(apperror.ErrCodeInvalidTransition, fmt.Sprintf("неизвестный fraud_status %q", fraudStatus))
	case gateway.StatusSettlement:
		return valueobject.PaymentStatusSuccess, nil
	case gateway.StatusPending:
		return valueobject.PaymentStatusPending, nil
	case gateway.StatusDeny, gateway.StatusExpire, gateway.StatusCancel:
		return valueobject.PaymentStatusFailed, nil
	}
	return "", apperror.New(apperror.ErrCodeInvalidTransition, fmt.Sprintf("неизвестный transaction_status %q", gatewayStatus))
}

// ResolveTransition решает, что делать с уведомлением шлюза для доната в статусе current.
//
// Повторы и уведомления не по порядку для успешного доната ничего не меняют, кроме
// перехода в failed, который отменяет зачисление. failed и expired конечны для шлюза.
func ResolveTransition(current valueobject.PaymentStatus, gatewayStatus, fraudStatus string) (Transition, error) {
	target, err := TargetFromGateway(gatewayStatus, fraudStatus)
	if err != nil {
		return Transition{}, err
	}

	noop := Transition{From: current, Requested: target, Target: current, Effect: EffectNone}

	switch {
	case current == valueobject.PaymentStatusPending:
		return applyTarget(current, target), nil
	case current == valueobject.PaymentStatusSuccess:
		if target == valueobject.PaymentStatusFailed {
			return applyTarget(current, target), nil
		}
		return noop, nil
	case current.IsTerminal():
		return noop, nil
	}
	return Transition{}, apperror.New(apperror.ErrCodeInvalidTransition, fmt.Sprintf("неизвестный статус доната %q", current))
}

// ResolveOverride переход, который задаёт администратор вручную. Разрешён любой статус.
func ResolveOverride(current, target valueobject.PaymentStatus) (Transition, error) {
	if !target.IsValid() {
		return Transition{}, apperror.New(apperror.ErrCodeInvalidTransition, fmt.Sprintf("неизвестный статус %q", target))
	}
	return applyTarget(current, target), nil
}

func applyTarget(current, target valueobject.PaymentStatus) Transition {
	t := Transition{From: current, Requested: target, Target: target, Effect: EffectNone}
	wasSuccess := current == valueobject.PaymentStatusSuccess
	isSuccess := target == valueobject.PaymentStatusSuccess
	switch {
	case !wasSuccess && isSuccess:
		t.Effect = EffectCredit
	case wasSuccess && !isSuccess:
		t.Effect = EffectReverse
	}
	return t
}
