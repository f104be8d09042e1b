// Package segment downloads the segments of one track in parallel.
//
// A Scheduler statically partitions segments round-robin across a fixed
// worker pool. Each worker fetches, retries transient failures under an
// explicit RetryPolicy, decrypts, and sends the plaintext on a shared
// delivery channel sized so workers never block. Payloads arrive out of
// order; the reassembly package restores index order.
//
// The first fatal error cancels the remaining workers and a poison Delivery
// tells the consumer to stop. Counters are atomics read only by the optional
// Reporter.
package segment
