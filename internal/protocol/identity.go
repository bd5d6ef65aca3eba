package protocol

import (
	"encoding/binary"
	"hash/fnv"
)

// OperationKey is the identity of a logical operation across retries. It
// leaves out the correlation id, which changes on every attempt. Keys are
// comparable and can be used directly as map keys.
type OperationKey struct {
	Type     MessageType
	Session  int64
	Sequence int64
	// Payload is the encoded operation payload.
	Payload string
}

// Hash is FNV-64a over the key fields in wire order.
func (k OperationKey) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(k.Type))
	h.Write(buf[:4])
	binary.BigEndian.PutUint64(buf[:], uint64(k.Session))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(k.Sequence))
	h.Write(buf[:])
	h.Write([]byte(k.Payload))
	return h.Sum64()
}

// Equal reports whether a and b are attempts of the same operation.
func Equal(a, b OperationRequest) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Hash returns the retry-stable hash of r.
func Hash(r OperationRequest) uint64 {
	return r.Key().Hash()
}
