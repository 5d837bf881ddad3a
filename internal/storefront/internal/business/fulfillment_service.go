package business

import (
	"context"
	"time"

	"storefront_api/internal/storefront/internal/models"
	"storefront_api/metrics"
	"storefront_api/pkg/logger"
)

type FulfillmentResult struct {
	Order      *models.Order
	Created    bool
	Duplicate  bool
	Adjustment *StockAdjustment
}

// FulfillmentService turns one completed checkout into a stock decrement
// and exactly one order row.
type FulfillmentService struct {
	reconciler     *InventoryReconciler
	ledger         *OrderLedger
	publisher      EventPublisher
	publishTimeout time.Duration
	log            logger.Logger
}

func NewFulfillmentService(reconciler *InventoryReconciler, ledger *OrderLedger, publisher EventPublisher, publishTimeout time.Duration, log logger.Logger) *FulfillmentService {
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &FulfillmentService{
		reconciler:     reconciler,
		ledger:         ledger,
		publisher:      publisher,
		publishTimeout: publishTimeout,
		log:            log,
	}
}

func (s *FulfillmentService) Fulfill(ctx context.Context, checkout *CompletedCheckout) (*FulfillmentResult, error) {
	// 1. redelivery of an already recorded session changes nothing
	existing, err := s.ledger.Find(ctx, checkout.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.log.Log("session %s already fulfilled as order %s, skipping", checkout.SessionID, existing.ID)
		return &FulfillmentResult{Order: existing, Duplicate: true}, nil
	}

	// 2. stock
	adj, err := s.reconciler.Reconcile(ctx, checkout.ProductID, checkout.Quantity)
	if err != nil {
		return nil, err
	}
	decremented := adj.Tracked && adj.NewStock != adj.PreviousStock

	// 3. order
	order := s.ledger.BuildOrder(checkout, adj.Product)
	stored, created, err := s.ledger.Record(ctx, order)
	if err != nil {
		if decremented {
			s.reportInconsistency(checkout, adj, err.Error())
		}
		return nil, err
	}
	if !created {
		if decremented {
			s.reportInconsistency(checkout, adj, "order already written by a concurrent delivery")
		}
		return &FulfillmentResult{Order: stored, Duplicate: true, Adjustment: adj}, nil
	}

	s.log.Log("order %s created for session %s: product %d stock %d -> %d, total %s %s",
		stored.ID, checkout.SessionID, checkout.ProductID, adj.PreviousStock, adj.NewStock, stored.TotalPrice, stored.Currency)

	s.publish(ctx, stored)
	return &FulfillmentResult{Order: stored, Created: true, Adjustment: adj}, nil
}

func (s *FulfillmentService) reportInconsistency(checkout *CompletedCheckout, adj *StockAdjustment, reason string) {
	metrics.RecordInconsistency()
	s.log.Error("INCONSISTENCY session=%s event=%s product=%d stock %d -> %d quantity=%d: %s",
		checkout.SessionID, checkout.EventID, checkout.ProductID, adj.PreviousStock, adj.NewStock, checkout.Quantity, reason)
}

func (s *FulfillmentService) publish(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishOrderCompleted(ctx, order.CompletedEvent()); err != nil {
		s.log.Warn("failed to publish order %s: %v", order.ID, err)
	}
}
