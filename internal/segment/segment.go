package segment

import (
	"context"
	"sync/atomic"
)

// Segment is one independently fetched and decrypted chunk of a track.
type Segment struct {
	Index      uint32
	URL        string
	LengthHint int64
	KeyRef     string
}

// Delivery carries a decrypted payload to the reassembly consumer. A delivery
// with a non-nil Err is a poison value: the producer has failed and the
// consumer must stop waiting.
type Delivery struct {
	Index uint32
	Data  []byte
	Err   error
}

// Fetcher retrieves the raw bytes for one segment.
type Fetcher interface {
	Fetch(ctx context.Context, seg Segment) ([]byte, error)
}

// Decrypter turns a fetched payload into plaintext using the segment key.
type Decrypter interface {
	Decrypt(data []byte, keyRef string) ([]byte, error)
}

// Counters are shared progress counters. They are read by progress reporters
// only and never drive control flow.
type Counters struct {
	Segments atomic.Int64
	Bytes    atomic.Int64
}

// NewDeliveryChannel returns a channel sized so producers never block: one
// slot per segment plus one for the poison delivery.
func NewDeliveryChannel(segments int) chan Delivery {
	return make(chan Delivery, segments+1)
}
