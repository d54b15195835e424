package kafkax

import "github.com/segmentio/kafka-go"

// Header keys carried on every catalog change message.
const (
	HeaderEventID    = "event_id"
	HeaderEventType  = "event_type"
	HeaderEntityKind = "entity_kind"
)

// EventMeta is the canonical metadata carried on Kafka messages across services.
type EventMeta struct {
	EventID    string
	EventType  string
	EntityKind string
}

// ExtractEventMeta reads the metadata headers, falling back to the topic for
// the event type. The key is the entity id, never an event id.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:    HeaderValue(msg.Headers, HeaderEventID),
		EventType:  HeaderValue(msg.Headers, HeaderEventType),
		EntityKind: HeaderValue(msg.Headers, HeaderEntityKind),
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
