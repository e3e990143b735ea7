// Package eventlog implements the append-only log that carries Tally's
// submission notifications.
//
// # Overview
//
// A log is addressed by namespace/topic/partition and persisted in Pebble.
// Keys are lexicographically ordered for range scans:
//   - ns/{ns}/log/{topic}/{part_be4}/m           (metadata: lastSeq)
//   - ns/{ns}/log/{topic}/{part_be4}/e/{seq_be8} (entries)
//
// Records are stored as: uvarint headerLen | header | payload | crc32c(header|payload).
//
// API surface (internal)
//
//	l, _ := OpenLog(db, ns, topic, part)
//	seqs, _ := l.Append(ctx, []AppendRecord{{Header: h, Payload: p}})
//
//	// Commit other keys in the same batch as the entries
//	seqs, _ = l.AppendWith(ctx, recs, func(b *pebble.Batch) error {
//	    return b.Set(totalKey, encoded, nil)
//	})
//
//	items, next, _ := l.Read(ReadOptions{Start: TokenFromSeq(seqs[0]), Limit: 100})
//	<-l.AppendSignal() // closed by the next append
//
// Sequences start at 1 and are gap-free for a given partition.
package eventlog
