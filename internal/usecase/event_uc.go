package usecase

import (
	"context"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
)

// EventUsecase manages the occasion tags grouping transactions.
type EventUsecase struct {
	txm    repository.TxManager
	events repository.EventRepository
}

func NewEventUsecase(txm repository.TxManager, events repository.EventRepository) *EventUsecase {
	return &EventUsecase{txm: txm, events: events}
}

func (uc *EventUsecase) Create(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	if e.Name == "" || e.Abbreviation == "" || e.Date.IsZero() {
		return nil, xerrors.ErrInvalidInput
	}
	if err := uc.events.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (uc *EventUsecase) Update(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	if e.Name == "" || e.Abbreviation == "" || e.Date.IsZero() {
		return nil, xerrors.ErrInvalidInput
	}
	if err := uc.events.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (uc *EventUsecase) Get(ctx context.Context, id int64) (*domain.Event, error) {
	return uc.events.GetByID(ctx, id)
}

func (uc *EventUsecase) List(ctx context.Context) ([]*domain.Event, error) {
	return uc.events.List(ctx)
}

// Delete removes an event. Transactions that carried the tag stay in the
// ledger with the reference cleared.
func (uc *EventUsecase) Delete(ctx context.Context, id int64) error {
	return uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		return uc.events.Delete(ctx, tx, id)
	})
}
