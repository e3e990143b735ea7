package eventlog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// ErrCorruptRecord is returned when a stored record fails length or checksum validation.
var ErrCorruptRecord = errors.New("eventlog: corrupt record")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func checksum(header, payload []byte) uint32 {
	crc := crc32.Update(0, castagnoli, header)
	return crc32.Update(crc, castagnoli, payload)
}

// EncodeRecord frames header and payload as uvarint hlen | header | payload | crc32c.
func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)
	return binary.BigEndian.AppendUint32(out, checksum(header, payload))
}

// Decoded is a validated record. Slices are copies owned by the caller.
type Decoded struct {
	Header  []byte
	Payload []byte
}

// DecodeRecord validates and splits a framed record.
func DecodeRecord(b []byte) (Decoded, error) {
	if len(b) < 1+4 {
		return Decoded{}, ErrCorruptRecord
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || n > len(b)-4 || uint64(len(b)-n-4) < hlen {
		return Decoded{}, ErrCorruptRecord
	}
	body := b[n : len(b)-4]
	header, payload := body[:hlen], body[hlen:]
	if checksum(header, payload) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return Decoded{}, ErrCorruptRecord
	}
	return Decoded{
		Header:  append([]byte(nil), header...),
		Payload: append([]byte(nil), payload...),
	}, nil
}
