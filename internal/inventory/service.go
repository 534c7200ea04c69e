package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bodega-erp/bodega/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock transactions. Every mutation runs inside a
// single database transaction holding the product row lock, so stock
// on hand always equals the sum of recorded movements.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListEntries returns stock entries, newest first.
func (s *Service) ListEntries(ctx context.Context, filters ListFilters) ([]Movement, int, error) {
	return s.repo.List(ctx, KindEntry, filters)
}

// ListExits returns stock exits, newest first.
func (s *Service) ListExits(ctx context.Context, filters ListFilters) ([]Movement, int, error) {
	return s.repo.List(ctx, KindExit, filters)
}

// Get fetches a single movement of the given kind.
func (s *Service) Get(ctx context.Context, kind MovementKind, id int64) (Movement, error) {
	if !kind.Valid() {
		return Movement{}, fmt.Errorf("inventory: unknown movement kind %q", kind)
	}
	return s.repo.Get(ctx, kind, id)
}

// RecentForProduct lists the latest movements of both kinds for one
// product.
func (s *Service) RecentForProduct(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	return s.repo.RecentForProduct(ctx, productID, limit)
}

// Create records a movement and applies its delta to product stock.
// Exits that would drive stock below zero fail with
// InsufficientStockError and leave no trace.
func (s *Service) Create(ctx context.Context, kind MovementKind, input MovementInput) (Movement, error) {
	if !kind.Valid() {
		return Movement{}, fmt.Errorf("inventory: unknown movement kind %q", kind)
	}
	if input.ProductID <= 0 {
		return Movement{}, ErrProductNotFound
	}
	if input.Quantity <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	input.Note = strings.TrimSpace(input.Note)

	var created Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stock, err := tx.LockProductStock(ctx, input.ProductID)
		if err != nil {
			return err
		}
		delta := kind.Delta() * input.Quantity
		if stock+delta < 0 {
			return &InsufficientStockError{ProductID: input.ProductID, Current: stock, Requested: input.Quantity}
		}
		created, err = tx.InsertMovement(ctx, kind, input)
		if err != nil {
			return err
		}
		return tx.ApplyStockDelta(ctx, input.ProductID, delta)
	})
	if err != nil {
		return Movement{}, err
	}

	s.recordAudit(ctx, input.ActorID, "create", created)
	return created, nil
}

// Update changes a movement's quantity, note and referenced product.
// The old delta is reversed on the old product, sufficiency is checked
// against the target product, then the new delta applies. All steps
// share one transaction, so a failed update leaves both the movement
// and every stock level untouched.
func (s *Service) Update(ctx context.Context, kind MovementKind, id int64, input MovementInput) (Movement, error) {
	if !kind.Valid() {
		return Movement{}, fmt.Errorf("inventory: unknown movement kind %q", kind)
	}
	if input.ProductID <= 0 {
		return Movement{}, ErrProductNotFound
	}
	if input.Quantity <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	input.Note = strings.TrimSpace(input.Note)

	var updated Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movement, err := tx.GetMovement(ctx, kind, id)
		if err != nil {
			return err
		}

		oldID, newID := movement.ProductID, input.ProductID
		if oldID == newID {
			stock, err := tx.LockProductStock(ctx, oldID)
			if err != nil {
				return err
			}
			reversed := stock - kind.Delta()*movement.Quantity
			after := reversed + kind.Delta()*input.Quantity
			if after < 0 {
				available := reversed
				if kind == KindEntry {
					available = stock
				}
				return &InsufficientStockError{ProductID: oldID, Current: available, Requested: input.Quantity}
			}
			if err := tx.UpdateMovement(ctx, id, newID, input.Quantity, input.Note); err != nil {
				return err
			}
			if err := tx.ApplyStockDelta(ctx, oldID, after-stock); err != nil {
				return err
			}
		} else {
			// Lock both rows in id order so two concurrent edits moving
			// movements between the same pair of products cannot deadlock.
			firstID, secondID := oldID, newID
			if secondID < firstID {
				firstID, secondID = secondID, firstID
			}
			locked := map[int64]int64{}
			for _, pid := range []int64{firstID, secondID} {
				stock, err := tx.LockProductStock(ctx, pid)
				if err != nil {
					return err
				}
				locked[pid] = stock
			}

			oldAfter := locked[oldID] - kind.Delta()*movement.Quantity
			if oldAfter < 0 {
				return &InsufficientStockError{ProductID: oldID, Current: locked[oldID], Requested: movement.Quantity}
			}
			newAfter := locked[newID] + kind.Delta()*input.Quantity
			if newAfter < 0 {
				return &InsufficientStockError{ProductID: newID, Current: locked[newID], Requested: input.Quantity}
			}

			if err := tx.UpdateMovement(ctx, id, newID, input.Quantity, input.Note); err != nil {
				return err
			}
			if err := tx.ApplyStockDelta(ctx, oldID, oldAfter-locked[oldID]); err != nil {
				return err
			}
			if err := tx.ApplyStockDelta(ctx, newID, newAfter-locked[newID]); err != nil {
				return err
			}
		}

		updated = movement
		updated.ProductID = newID
		updated.Quantity = input.Quantity
		updated.Note = input.Note
		return nil
	})
	if err != nil {
		return Movement{}, err
	}

	s.recordAudit(ctx, input.ActorID, "update", updated)
	return updated, nil
}

// Delete removes a movement and reverses its stock delta. Deleting an
// entry whose units were already consumed fails with
// InsufficientStockError rather than driving stock negative.
func (s *Service) Delete(ctx context.Context, kind MovementKind, id int64, actorID int64) error {
	if !kind.Valid() {
		return fmt.Errorf("inventory: unknown movement kind %q", kind)
	}

	var removed Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movement, err := tx.GetMovement(ctx, kind, id)
		if err != nil {
			return err
		}
		stock, err := tx.LockProductStock(ctx, movement.ProductID)
		if err != nil {
			return err
		}

		after := stock - kind.Delta()*movement.Quantity
		if after < 0 {
			return &InsufficientStockError{ProductID: movement.ProductID, Current: stock, Requested: movement.Quantity}
		}

		if err := tx.DeleteMovement(ctx, id); err != nil {
			return err
		}
		if err := tx.ApplyStockDelta(ctx, movement.ProductID, after-stock); err != nil {
			return err
		}
		removed = movement
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "delete", removed)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, m Movement) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   fmt.Sprintf("stock_%s:%s", m.Kind, action),
		Entity:   "stock_movement",
		EntityID: strconv.FormatInt(m.ID, 10),
		Meta: map[string]any{
			"product_id": m.ProductID,
			"quantity":   m.Quantity,
			"note":       m.Note,
		},
	})
}
