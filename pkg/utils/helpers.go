package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

var idCounter uint64

// GenID returns a time-ordered identifier unique within this process.
// Identifiers sort lexicographically by creation time.
func GenID() string {
	seq := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%d-%06d", time.Now().UnixNano(), seq%1000000)
}

// GenConversationID returns a conversation identifier with a fixed prefix
// so conversation keys are recognizable in raw key dumps.
func GenConversationID() string {
	return "conv-" + GenID()
}

// GenMessageID returns a message identifier.
func GenMessageID() string {
	return "msg-" + GenID()
}
