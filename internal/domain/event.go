package domain

import "time"

// EventType - тип события, которое рассылается подключенным экранам
type EventType string

const (
	EventRecordCreated   EventType = "record.created"
	EventRecordUpdated   EventType = "record.updated"
	EventRecordDeleted   EventType = "record.deleted"
	EventRecordsReplaced EventType = "records.replaced"
	EventTicketPrinted   EventType = "ticket.printed"
	EventSettingsUpdated EventType = "settings.updated"
	EventPrinterChanged  EventType = "printer.changed"
	EventSyncStatus      EventType = "sync.status"
)

// Event - сообщение для клиентов кассы
type Event struct {
	Type    EventType   `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewEvent создает событие с текущим временем
func NewEvent(t EventType, payload interface{}) Event {
	return Event{Type: t, At: time.Now().UTC(), Payload: payload}
}
