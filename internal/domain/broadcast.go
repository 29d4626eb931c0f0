package domain

// Broadcaster fans an event out to every connected dashboard.
type Broadcaster interface {
	Broadcast(msgType MessageType, payload any) error
}
