// Command ringbench is the external collaborator spec.md §1 explicitly
// keeps out of the ring buffer core: a producer/consumer CRC32
// equivalence benchmark (spec.md §8, testable property #6). It drives
// github.com/agilira/ringtx the same way a real application would,
// through nothing but the package's public §4 API.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"context"
	"fmt"
	"hash/crc32"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agilira/ringtx"
)

type options struct {
	totalBytes int64
	bufferSize uint32
	maxChunk   int
	seed       int64
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ringbench",
		Short: "Producer/consumer CRC32 equivalence check for ringtx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	root.Flags().Int64Var(&opts.totalBytes, "bytes", 420<<20, "total payload bytes the producer ships")
	root.Flags().Uint32Var(&opts.bufferSize, "buffer", 2<<20, "ring buffer capacity in bytes (rounded to a power of two)")
	root.Flags().IntVar(&opts.maxChunk, "max-chunk", 64<<10, "maximum size of a single produced chunk")
	root.Flags().Int64Var(&opts.seed, "seed", 1, "PRNG seed for reproducible runs")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// run ships records whose payload is a u32 length prefix followed by that
// many chunk bytes — spec.md §8 scenario 6's "each chunk = u32 length +
// bytes" wire shape, carried as the WriteTx/ReadTx payload (the timestamp
// itself carries the chunk's sequence number, not its length).
func run(ctx context.Context, opts *options) error {
	logger, err := zap.NewDevelopmentConfig().Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	buf := ringtx.NewBuffer[int64]()
	if err := buf.Reserve(opts.bufferSize); err != nil {
		return fmt.Errorf("failed to reserve ring buffer: %w", err)
	}
	log.Infow("ring buffer configured", "capacity", buf.Capacity(), "min_capacity", buf.MinCapacity())

	producerCRC := make(chan uint32, 1)
	consumerCRC := make(chan uint32, 1)

	workCtx, stopWork := context.WithCancel(ctx)
	defer stopWork()

	work, gctx := errgroup.WithContext(workCtx)
	work.Go(func() error { return produce(gctx, buf, opts, log, producerCRC) })
	work.Go(func() error { return consume(gctx, buf, opts, log, consumerCRC) })

	interrupted := make(chan error, 1)
	go func() { interrupted <- waitInterrupted(ctx) }()

	workDone := make(chan error, 1)
	go func() { workDone <- work.Wait() }()

	select {
	case err := <-workDone:
		stopWork()
		if err != nil {
			return err
		}
	case err := <-interrupted:
		stopWork()
		<-workDone
		return err
	}

	want, got := <-producerCRC, <-consumerCRC
	if want != got {
		return fmt.Errorf("CRC32 mismatch: producer=%08x consumer=%08x", want, got)
	}
	log.Infow("CRC32 equivalence confirmed", "crc32", fmt.Sprintf("%08x", want))
	return nil
}

func produce(ctx context.Context, buf *ringtx.Buffer[int64], opts *options, log *zap.SugaredLogger, result chan<- uint32) error {
	rng := rand.New(rand.NewSource(opts.seed))
	crc := crc32.NewIEEE()

	var shipped int64
	var seq int64
	for shipped < opts.totalBytes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := 1 + rng.Intn(opts.maxChunk)
		if int64(n) > opts.totalBytes-shipped {
			n = int(opts.totalBytes - shipped)
		}
		chunk := make([]byte, n)
		rng.Read(chunk)

		var lenPrefix [4]byte
		lenPrefix[0] = byte(n)
		lenPrefix[1] = byte(n >> 8)
		lenPrefix[2] = byte(n >> 16)
		lenPrefix[3] = byte(n >> 24)

		for {
			tx, err := buf.TryWrite(seq)
			if err != nil {
				time.Sleep(time.Microsecond)
				continue
			}
			if tx.PushBackAll(lenPrefix[:], chunk) != 2 {
				tx.Invalidate()
				time.Sleep(time.Microsecond)
				continue
			}
			tx.Commit()
			break
		}

		crc.Write(lenPrefix[:])
		crc.Write(chunk)
		shipped += int64(n)
		seq++

		if seq%10000 == 0 {
			log.Infow("producer progress", "shipped_bytes", shipped, "records", seq)
		}
	}

	result <- crc.Sum32()
	return nil
}

// consume stops once it has reconstructed opts.totalBytes of payload, which
// is the only unambiguous end-of-stream signal available to it: TryRead
// returning ErrNoData means either "producer still catching up" or
// "producer finished", and the two are indistinguishable from the ring
// buffer's state alone.
func consume(ctx context.Context, buf *ringtx.Buffer[int64], opts *options, log *zap.SugaredLogger, result chan<- uint32) error {
	crc := crc32.NewIEEE()
	var seq, received int64

	for received < opts.totalBytes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rx, err := buf.TryRead()
		if err != nil {
			time.Sleep(time.Microsecond)
			continue
		}

		var lenPrefix [4]byte
		if !rx.PopFront(4, func(p []byte) { copy(lenPrefix[:], p) }) {
			rx.Invalidate()
			return fmt.Errorf("short record: missing length prefix")
		}
		crc.Write(lenPrefix[:])
		n := uint32(lenPrefix[0]) | uint32(lenPrefix[1])<<8 | uint32(lenPrefix[2])<<16 | uint32(lenPrefix[3])<<24

		if !rx.PopFront(n, func(p []byte) { crc.Write(p) }) {
			rx.Invalidate()
			return fmt.Errorf("short record: declared %d payload bytes unavailable", n)
		}
		rx.Commit()
		seq++
		received += int64(n)

		if seq%10000 == 0 {
			log.Infow("consumer progress", "records", seq, "received_bytes", received)
		}
	}

	result <- crc.Sum32()
	return nil
}

func waitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case <-ch:
		return fmt.Errorf("interrupted")
	case <-ctx.Done():
		return nil
	}
}
