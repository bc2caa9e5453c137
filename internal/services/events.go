package services

import (
	"encoding/json"
	"log"
)

// Exchange and routing keys of storefront events.
const (
	EventsExchange        = "storefront"
	EventCheckoutComplete = "checkout.completed"
	EventDesignInquiry    = "inquiry.design"
	EventPrintQuote       = "inquiry.print_quote"
)

// EventPublisher is implemented by the message bus client.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// publishEvent marshals payload and sends it. Failures are logged and never returned,
// events are notifications only.
func publishEvent(publisher EventPublisher, routingKey string, payload interface{}) {
	if publisher == nil {
		log.Printf("Event bus is not initialized. Skipping %s event.", routingKey)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := publisher.Publish(EventsExchange, routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event: %v", routingKey, err)
		return
	}
	log.Printf("Successfully published %s event", routingKey)
}
