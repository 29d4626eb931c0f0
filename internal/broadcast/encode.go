package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saif7218/zk-marketwatch/internal/domain"
)

// Encode builds the wire envelope for payload and serializes it.
// Payloads are plain data types; a marshal failure is a programming error and panics.
func Encode(msgType domain.MessageType, payload any, now time.Time) (domain.Envelope, []byte) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("broadcast: marshal %s payload: %v", msgType, err))
	}

	envelope := domain.Envelope{
		Type:      msgType,
		Payload:   raw,
		Timestamp: domain.FormatTimestamp(now),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		panic(fmt.Sprintf("broadcast: marshal %s envelope: %v", msgType, err))
	}
	return envelope, data
}
