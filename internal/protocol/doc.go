// Package protocol parses the two wire formats a rangefinder speaks: the
// `[POLL:<step>,<distance>]` text lines it prints on its serial console, and
// the fixed 20-byte LidarComms datagrams exchanged between nodes over UDP.
package protocol
