package eventlog

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ns/{ns}/log/{topic}/{part_be4}/m
// - ns/{ns}/log/{topic}/{part_be4}/e/{seq_be8}

var (
	sep        = byte('/')
	nsPrefix   = []byte("ns/")
	logSeg     = []byte("/log/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE4(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func partitionPrefix(namespace, topic string, partition uint32, extra int) []byte {
	k := make([]byte, 0, len(namespace)+len(topic)+16+extra)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, logSeg...)
	k = append(k, topic...)
	k = append(k, sep)
	return appendBE4(k, partition)
}

// KeyLogMeta builds the partition metadata key.
func KeyLogMeta(namespace, topic string, partition uint32) []byte {
	k := partitionPrefix(namespace, topic, partition, len(metaSuffix))
	return append(k, metaSuffix...)
}

// KeyLogEntry builds the entry key with a big-endian sequence for proper ordering.
func KeyLogEntry(namespace, topic string, partition uint32, seq uint64) []byte {
	k := partitionPrefix(namespace, topic, partition, len(entrySeg)+8)
	k = append(k, entrySeg...)
	return appendBE8(k, seq)
}
