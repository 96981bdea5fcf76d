package repository

import (
	"context"

	"course-access-platform/internal/domain/model"
)

// PaymentRepository is the port for the transaction trail. TranRef carries a
// unique constraint so that marking the same gateway reference approved a
// second time surfaces domain.ErrAlreadyExists instead of silently passing.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PaymentTransaction) error
	FindByCartID(ctx context.Context, tx Tx, cartID string) (*model.PaymentTransaction, error)
	FindByTranRef(ctx context.Context, tx Tx, tranRef string) (*model.PaymentTransaction, error)
	// MarkApproved sets the gateway reference and approved status. It fails
	// with domain.ErrAlreadyExists if tranRef is already recorded on any row.
	MarkApproved(ctx context.Context, tx Tx, id, tranRef string) error
	MarkDeclined(ctx context.Context, tx Tx, id, rawStatus, message string) error
}
