package mqtt

import "log"

// queuedMsg is a serialized MQTT message held for replay after reconnect.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineBuffer keeps the most recent messages published while the broker
// is unreachable. When full, the oldest message is overwritten so a long
// outage keeps the freshest events. Not safe for concurrent use — the
// publisher synchronizes access.
type offlineBuffer struct {
	msgs    []queuedMsg
	start   int // index of the oldest message
	dropped int // messages overwritten since the last drain
}

func newOfflineBuffer(capacity int) *offlineBuffer {
	return &offlineBuffer{msgs: make([]queuedMsg, 0, capacity)}
}

func (b *offlineBuffer) add(m queuedMsg) {
	if len(b.msgs) < cap(b.msgs) {
		b.msgs = append(b.msgs, m)
		return
	}
	if b.dropped == 0 {
		log.Printf("mqtt: offline buffer full (%d messages), overwriting oldest", cap(b.msgs))
	}
	b.msgs[b.start] = m
	b.start = (b.start + 1) % len(b.msgs)
	b.dropped++
}

// drain returns all buffered messages oldest-first and empties the buffer.
func (b *offlineBuffer) drain() []queuedMsg {
	if len(b.msgs) == 0 {
		return nil
	}

	out := make([]queuedMsg, 0, len(b.msgs))
	for i := 0; i < len(b.msgs); i++ {
		out = append(out, b.msgs[(b.start+i)%len(b.msgs)])
	}

	b.msgs = b.msgs[:0]
	b.start = 0
	b.dropped = 0
	return out
}

func (b *offlineBuffer) size() int {
	return len(b.msgs)
}
