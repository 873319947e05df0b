package model

import (
	"tradesim/pkg/apperrors"
)

// Account holds cash balances and margin for a trading account, folded from
// account state events.
type Account struct {
	ID       AccountID
	Currency Currency

	cashBalance           Money
	cashStartDay          Money
	cashActivityDay       Money
	marginUsedLiquidation Money
	marginUsedMaintenance Money
	marginRatio           Decimal64
	marginCallStatus      string
	events                []AccountStateEvent
}

// NewAccount creates an account from its first state event.
func NewAccount(event AccountStateEvent) (*Account, error) {
	if err := apperrors.NotEmpty(string(event.AccountID), "account id"); err != nil {
		return nil, err
	}
	account := &Account{
		ID:       event.AccountID,
		Currency: event.Currency,
	}
	account.Apply(event)
	return account, nil
}

func (a *Account) CashBalance() Money           { return a.cashBalance }
func (a *Account) CashStartDay() Money          { return a.cashStartDay }
func (a *Account) CashActivityDay() Money       { return a.cashActivityDay }
func (a *Account) MarginUsedLiquidation() Money { return a.marginUsedLiquidation }
func (a *Account) MarginUsedMaintenance() Money { return a.marginUsedMaintenance }
func (a *Account) MarginRatio() Decimal64       { return a.marginRatio }
func (a *Account) MarginCallStatus() string     { return a.marginCallStatus }
func (a *Account) EventCount() int              { return len(a.events) }

// LastEvent returns the most recent applied state event.
func (a *Account) LastEvent() (AccountStateEvent, bool) {
	if len(a.events) == 0 {
		return AccountStateEvent{}, false
	}
	return a.events[len(a.events)-1], true
}

// Apply folds a state event into the account.
func (a *Account) Apply(event AccountStateEvent) {
	a.cashBalance = event.CashBalance
	a.cashStartDay = event.CashStartDay
	a.cashActivityDay = event.CashActivityDay
	a.marginUsedLiquidation = event.MarginUsedLiquidation
	a.marginUsedMaintenance = event.MarginUsedMaintenance
	a.marginRatio = event.MarginRatio
	a.marginCallStatus = event.MarginCallStatus
	a.events = append(a.events, event)
}
