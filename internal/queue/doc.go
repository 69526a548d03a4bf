// Package queue provides the bounded FIFO buffer between tick producers and
// the persister flush loop.
//
// The buffer enforces a hard capacity ceiling: enqueue at capacity is
// rejected immediately rather than blocking or growing. Producers are
// expected to count rejections; the buffer never retries on their behalf.
package queue
