// Package control implements ControlClient, the out-of-band command
// channel to the external mixer (spec.md §4.7). The wire encoding is
// explicitly out of scope for the spec; this package opens a single
// net.Conn to the mixer and exchanges newline-delimited address/argument
// records, mirroring the spec's original OSC-addressed domain without
// implementing OSC's binary encoding. Grounded on samoyed's AGW TCP
// socket protocol (agwpe.go's binary framing, server.go's connection
// loop): a single long-lived net.Conn to an external process, with
// connect-with-backoff, per-call timeouts, and a reconnect goroutine
// driven by time.AfterFunc with exponential backoff.
package control
