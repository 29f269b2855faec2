package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventBotStarted      EventType = "BOT_STARTED"
	EventBotStopped      EventType = "BOT_STOPPED"
	EventScanCompleted   EventType = "SCAN_COMPLETED"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventOrderPlaced     EventType = "ORDER_PLACED"
	EventOrderFailed     EventType = "ORDER_FAILED"
	EventOrderFilled     EventType = "ORDER_FILLED"
	EventOrderCancelled  EventType = "ORDER_CANCELLED"
	EventTradeOpened     EventType = "TRADE_OPENED"
	EventTradeClosed     EventType = "TRADE_CLOSED"
	EventPortfolioUpdate EventType = "PORTFOLIO_UPDATE"
	EventCircuitTripped  EventType = "CIRCUIT_TRIPPED"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions. Subscribers run on
// their own goroutines so a slow consumer never blocks the trading cycle.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range eb.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSignal publishes the selected opportunity of a scan
func (eb *EventBus) PublishSignal(instrument, direction string, entry, stop, target, score float64) {
	eb.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"instrument": instrument,
			"direction":  direction,
			"entry":      entry,
			"stop_loss":  stop,
			"target":     target,
			"score":      score,
		},
	})
}

// PublishOrderPlaced publishes an order placed event
func (eb *EventBus) PublishOrderPlaced(orderID int64, instrument, orderType, side string, price, quantity float64) {
	eb.Publish(Event{
		Type: EventOrderPlaced,
		Data: map[string]interface{}{
			"order_id":   orderID,
			"instrument": instrument,
			"order_type": orderType,
			"side":       side,
			"price":      price,
			"quantity":   quantity,
		},
	})
}

// PublishOrderFailed publishes a rejected or failed order submission
func (eb *EventBus) PublishOrderFailed(instrument, side string, quantity float64, err error) {
	eb.Publish(Event{
		Type: EventOrderFailed,
		Data: map[string]interface{}{
			"instrument": instrument,
			"side":       side,
			"quantity":   quantity,
			"error":      errString(err),
		},
	})
}

// PublishOrderFilled publishes a confirmed entry fill
func (eb *EventBus) PublishOrderFilled(orderID int64, instrument string, price, quantity float64) {
	eb.Publish(Event{
		Type: EventOrderFilled,
		Data: map[string]interface{}{
			"order_id":   orderID,
			"instrument": instrument,
			"price":      price,
			"quantity":   quantity,
		},
	})
}

// PublishOrderCancelled publishes a cancelled entry order
func (eb *EventBus) PublishOrderCancelled(orderID int64, instrument, reason string) {
	eb.Publish(Event{
		Type: EventOrderCancelled,
		Data: map[string]interface{}{
			"order_id":   orderID,
			"instrument": instrument,
			"reason":     reason,
		},
	})
}

// PublishTradeOpened publishes a trade opened event
func (eb *EventBus) PublishTradeOpened(instrument, direction string, entryPrice, quantity, stop, target float64) {
	eb.Publish(Event{
		Type: EventTradeOpened,
		Data: map[string]interface{}{
			"instrument":  instrument,
			"direction":   direction,
			"entry_price": entryPrice,
			"quantity":    quantity,
			"stop_loss":   stop,
			"target":      target,
		},
	})
}

// PublishTradeClosed publishes a trade closed event
func (eb *EventBus) PublishTradeClosed(instrument, reason string, entryPrice, exitPrice, quantity, pnl float64) {
	pnlPercent := 0.0
	if entryPrice > 0 && quantity > 0 {
		pnlPercent = pnl / (entryPrice * quantity) * 100
	}
	eb.Publish(Event{
		Type: EventTradeClosed,
		Data: map[string]interface{}{
			"instrument":  instrument,
			"reason":      reason,
			"entry_price": entryPrice,
			"exit_price":  exitPrice,
			"quantity":    quantity,
			"pnl":         pnl,
			"pnl_percent": pnlPercent,
		},
	})
}

// PublishPortfolioUpdate publishes the latest portfolio value and drawdown
func (eb *EventBus) PublishPortfolioUpdate(value, currentDrawdown, compositeScore float64) {
	eb.Publish(Event{
		Type: EventPortfolioUpdate,
		Data: map[string]interface{}{
			"value":            value,
			"current_drawdown": currentDrawdown,
			"composite_score":  compositeScore,
		},
	})
}

// PublishCircuitTripped publishes a trading halt
func (eb *EventBus) PublishCircuitTripped(reason string, until time.Time) {
	eb.Publish(Event{
		Type: EventCircuitTripped,
		Data: map[string]interface{}{
			"reason": reason,
			"until":  until,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	eb.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"source":  source,
			"message": message,
			"error":   errString(err),
		},
	})
}

// PublishBotStatus publishes a start or stop event
func (eb *EventBus) PublishBotStatus(running bool) {
	eventType := EventBotStopped
	if running {
		eventType = EventBotStarted
	}
	eb.Publish(Event{Type: eventType, Data: map[string]interface{}{"running": running}})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
