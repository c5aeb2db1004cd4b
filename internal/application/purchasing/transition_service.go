package purchasing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TransitionResult is the outcome of a status transition request
type TransitionResult struct {
	Plan      purchasing.TransitionPlan
	Order     *purchasing.PurchaseOrder
	Movements []purchasing.StockMovement
}

// Outcome returns what the request did
func (r *TransitionResult) Outcome() purchasing.TransitionOutcome {
	return r.Plan.Outcome
}

// ToResponse converts the result for API consumers
func (r *TransitionResult) ToResponse() TransitionResponse {
	return TransitionResponse{
		Outcome:        r.Plan.Outcome,
		FromStatus:     r.Plan.From.String(),
		ToStatus:       r.Order.Status.String(),
		Order:          ToPurchaseOrderResponse(r.Order),
		StockMovements: ToStockMovementResponses(r.Movements),
	}
}

// TransitionService drives the order state machine and reconciles stock
// exactly once when an order is received
type TransitionService struct {
	txScope          TransactionScope
	locker           TransitionLocker
	idempotencyStore shared.IdempotencyStore
	idempotencyTTL   time.Duration
	eventPublisher   shared.EventPublisher
	metrics          TransitionMetrics
	logger           *zap.Logger
	now              func() time.Time
}

// NewTransitionService creates a new TransitionService
func NewTransitionService(txScope TransactionScope, logger *zap.Logger) *TransitionService {
	return &TransitionService{
		txScope:        txScope,
		locker:         noopLocker{},
		metrics:        noopMetrics{},
		idempotencyTTL: 24 * time.Hour,
		logger:         logger,
		now:            time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TransitionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLocker sets the advisory per-order locker
func (s *TransitionService) SetLocker(locker TransitionLocker) {
	if locker == nil {
		locker = noopLocker{}
	}
	s.locker = locker
}

// SetMetrics sets the recorder for transition outcomes
func (s *TransitionService) SetMetrics(metrics TransitionMetrics) {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s.metrics = metrics
}

// SetIdempotencyStore enables Idempotency-Key replay for transition requests
func (s *TransitionService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotencyStore = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// RequestTransition moves the order to target. Requests from a terminal
// status fail with INVALID_TRANSITION and change nothing. Moving into
// RECEIVED (or COMPLETED from PARTIALLY_RECEIVED) increments each line's
// variant stock inside the same transaction that stamps received_at; a
// request that finds received_at already set returns OutcomeAlreadyReceived.
func (s *TransitionService) RequestTransition(ctx context.Context, orderID uuid.UUID, target purchasing.Status) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "purchasing.Transition", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("order.target_status", target.String()),
	))
	defer span.End()

	if !target.IsValid() {
		return nil, shared.NewValidationError(shared.CodeInvalidStatus, fmt.Sprintf("unknown status %q", target))
	}

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		// the row lock below still serialises callers
		s.logger.Warn("could not obtain transition lock; continuing without it",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		release = func() {}
	}
	defer release()

	var result *TransitionResult
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var txErr error
		result, txErr = s.transition(ctx, repos, orderID, target)
		return txErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, shared.ErrInvalidTransition) {
			s.metrics.RecordTransition(ctx, OutcomeRejected, "", target.String())
		}
		if shared.KindOf(err) == shared.KindInternal {
			s.logger.Error("purchase order transition failed",
				zap.String("order_id", orderID.String()),
				zap.String("target_status", target.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.transition_outcome", string(result.Outcome())))
	s.metrics.RecordTransition(ctx, string(result.Outcome()), result.Plan.From.String(), target.String())
	if result.Outcome() != purchasing.OutcomeApplied {
		s.logger.Debug("purchase order transition was a no-op",
			zap.String("order_id", orderID.String()),
			zap.String("status", result.Order.Status.String()),
			zap.String("outcome", string(result.Outcome())),
		)
		return result, nil
	}

	s.logger.Info("purchase order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("order_number", result.Order.OrderNumber),
		zap.String("from_status", result.Plan.From.String()),
		zap.String("to_status", result.Plan.To.String()),
		zap.Bool("stock_reconciled", result.Plan.Reconcile),
		zap.Int("stock_movements", len(result.Movements)),
	)
	if len(result.Movements) > 0 {
		var units int64
		for _, m := range result.Movements {
			units += int64(m.Quantity)
		}
		s.metrics.RecordStockReceived(ctx, units)
	}
	publishEvents(ctx, s.eventPublisher, s.logger, result.Order)
	return result, nil
}

func (s *TransitionService) transition(ctx context.Context, repos TransactionalRepositories, orderID uuid.UUID, target purchasing.Status) (*TransitionResult, error) {
	order, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}

	plan, err := order.PlanTransition(target)
	if err != nil {
		return nil, err
	}
	result := &TransitionResult{Plan: plan, Order: order}
	if plan.Outcome != purchasing.OutcomeApplied {
		return result, nil
	}

	now := s.now()
	expectedVersion := order.Version
	if err := order.ApplyTransition(plan, now); err != nil {
		return nil, err
	}

	saved, err := repos.Orders().SaveTransition(ctx, order, expectedVersion, plan.Reconcile)
	if err != nil {
		return nil, err
	}
	if !saved {
		// Lost the race despite the lock (stores without row locks)
		current, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if plan.Reconcile && current.IsReceived() {
			result.Plan.Outcome = purchasing.OutcomeAlreadyReceived
			result.Plan.Reconcile = false
			result.Order = current
			return result, nil
		}
		return nil, shared.ErrConcurrencyConflict
	}

	if plan.Reconcile {
		movements, err := reconcileStock(ctx, repos, order, now)
		if err != nil {
			return nil, err
		}
		result.Movements = movements
	}
	return result, nil
}

// reconcileStock adds every line quantity to its variant and records the
// ledger rows. It must run in the transaction that claimed received_at.
func reconcileStock(ctx context.Context, repos TransactionalRepositories, order *purchasing.PurchaseOrder, at time.Time) ([]purchasing.StockMovement, error) {
	movements := make([]purchasing.StockMovement, 0, len(order.Lines))
	for _, line := range order.Lines {
		balance, err := repos.Variants().IncrementStock(ctx, line.VariantID, line.Quantity)
		if err != nil {
			return nil, err
		}
		movement := purchasing.NewReceiptMovement(order.ID, line.VariantID, line.Quantity, balance, at)
		if err := repos.Movements().Create(ctx, &movement); err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, nil
}

// OutcomeRejected labels transition requests refused by the state machine
const OutcomeRejected = "rejected"

// ErrIdempotencyKeyInFlight is returned while the first request for a key is still running
var ErrIdempotencyKeyInFlight = shared.NewConflictError(shared.CodeConcurrentModification,
	"A request with this idempotency key is still being processed")

// ErrIdempotencyKeyReused is returned when a key is replayed for a different target status
var ErrIdempotencyKeyReused = shared.NewConflictError(shared.CodeIdempotencyKeyReused,
	"This idempotency key was already used for a different target status")

// storedTransition is the replay record kept under an idempotency key
type storedTransition struct {
	TargetStatus purchasing.Status  `json:"target_status"`
	Response     TransitionResponse `json:"response"`
}

// RequestTransitionWithKey is RequestTransition with response replay keyed on
// a caller-supplied idempotency key. Without a configured store or key it
// behaves exactly like RequestTransition.
func (s *TransitionService) RequestTransitionWithKey(ctx context.Context, key string, orderID uuid.UUID, target purchasing.Status) (*TransitionResponse, error) {
	if s.idempotencyStore == nil || key == "" {
		result, err := s.RequestTransition(ctx, orderID, target)
		if err != nil {
			return nil, err
		}
		resp := result.ToResponse()
		return &resp, nil
	}

	storeKey := fmt.Sprintf("transition:%s:%s", orderID, key)
	reserved, err := s.idempotencyStore.Reserve(ctx, storeKey, s.idempotencyTTL)
	if err != nil {
		return nil, shared.WrapInternal("reserve idempotency key", err)
	}
	if !reserved {
		return s.replay(ctx, storeKey, target)
	}

	result, err := s.RequestTransition(ctx, orderID, target)
	if err != nil {
		if releaseErr := s.idempotencyStore.Release(ctx, storeKey); releaseErr != nil {
			s.logger.Warn("failed to release idempotency key", zap.String("key", storeKey), zap.Error(releaseErr))
		}
		return nil, err
	}

	resp := result.ToResponse()
	payload, err := json.Marshal(storedTransition{TargetStatus: target, Response: resp})
	if err == nil {
		err = s.idempotencyStore.Complete(ctx, storeKey, payload, s.idempotencyTTL)
	}
	if err != nil {
		s.logger.Warn("failed to store idempotent response", zap.String("key", storeKey), zap.Error(err))
	}
	return &resp, nil
}

func (s *TransitionService) replay(ctx context.Context, storeKey string, target purchasing.Status) (*TransitionResponse, error) {
	payload, found, err := s.idempotencyStore.Lookup(ctx, storeKey)
	if err != nil {
		return nil, shared.WrapInternal("lookup idempotency key", err)
	}
	if !found || payload == nil {
		return nil, ErrIdempotencyKeyInFlight
	}
	var stored storedTransition
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, shared.WrapInternal("decode stored response", err)
	}
	if stored.TargetStatus != target {
		s.metrics.RecordIdempotentReplay(ctx, false)
		return nil, ErrIdempotencyKeyReused
	}
	s.metrics.RecordIdempotentReplay(ctx, true)
	s.logger.Debug("replayed idempotent transition response", zap.String("key", storeKey))
	return &stored.Response, nil
}
