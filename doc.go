// Package ringtx provides a single-producer/single-consumer, lock-free,
// timestamped, transactional ring buffer for low-latency in-process data
// transfer between exactly two goroutines.
//
// A typical real-time producer — a sampler, an instrumented subsystem —
// emits variable-length timestamped records through a Buffer; a
// downstream consumer — a logger, a network shipper, an aggregator —
// drains them. Both sides talk to the Buffer through scoped transaction
// handles: WriteTx to append, ReadTx to consume. Neither role blocks; a
// transaction either opens successfully or the Buffer returns a sentinel
// error immediately.
//
// # Quick start
//
//	buf := ringtx.NewBuffer[float32]()
//	if err := buf.Reserve(64); err != nil {
//		log.Fatal(err)
//	}
//
//	// producer goroutine
//	tx, err := buf.TryWrite(1.0)
//	if err == nil {
//		tx.PushBack([]byte{0xAA, 0xAA, 0xAA, 0xAA})
//		tx.Commit()
//	}
//
//	// consumer goroutine
//	rx, err := buf.TryRead()
//	if err == nil {
//		rx.PopFront(4, func(p []byte) { fmt.Printf("% x\n", p) })
//		rx.Commit()
//	}
//
// # Borrowed arenas
//
// By default Reserve allocates and owns the backing arena. A caller that
// already owns a suitably sized, power-of-two byte slice can install it
// directly with Borrow instead — the buffer never frees a borrowed
// region.
//
// # Role discipline
//
// Exactly one goroutine may call TryWrite at a time, and exactly one
// goroutine may call TryRead at a time (they may be, and usually are,
// different goroutines running concurrently with each other).
// Reconfiguring the buffer (Reserve/Borrow/Close) while either role has a
// live transaction is rejected with ErrRoleActive. Violating the
// single-writer/single-reader discipline beyond what Buffer can detect
// (for example, calling Reserve from one goroutine while another calls
// TryWrite) is undefined behavior, exactly as in the source this package
// is modeled on. A second concurrent TryWrite (or TryRead) is detected
// and fails with ErrTransactionBusy.
//
// # Zero locks on the hot path
//
// TryWrite, TryRead, PushBack, and PopFront never take a lock. PushBack
// and PopFront never allocate; TryWrite and TryRead allocate one small
// transaction handle each. The only cross-goroutine synchronization
// between the two roles is a single
// sequentially-consistent occupancy counter, incremented on write-commit
// and decremented on read-commit.
package ringtx
