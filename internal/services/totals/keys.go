package totalsvc

import (
	"encoding/binary"
	"fmt"
)

// KeyTotal builds ns/{ns}/total/{slot}.
func KeyTotal(ns, slot string) []byte {
	k := make([]byte, 0, len(ns)+len(slot)+10)
	k = append(k, "ns/"...)
	k = append(k, ns...)
	k = append(k, "/total/"...)
	return append(k, slot...)
}

func encodeTotal(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeTotal(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("total record has %d bytes, want 4", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}
