// Package audiocore implements the real-time audio routing and DSP core:
// a directed graph of audio nodes driven in lock-step by a hardware
// callback, a ref-counted buffer pool sized at start-up, and the node
// variants (hardware, file, filter) that move audio through the graph.
//
// # Execution contexts
//
//   - Control thread: builds/tears down the Graph, issues one-shot
//     control-plane commands, forwards live parameter updates.
//   - Realtime thread: driven by HardwareBridge's device callback; must
//     never allocate, block, or perform I/O.
//   - I/O worker threads: one per FileSource/FileSink, decoupled from the
//     realtime thread by a bounded queue.
//
// # Buffer lifecycle
//
// AudioBuffers are acquired from a BufferPool sized at Engine start-up,
// reference-counted, and returned to their bucket's free list when the
// last reference is released. Nothing on the realtime tick path
// allocates a buffer from the Go heap.
package audiocore
