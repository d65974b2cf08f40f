// Package msgs defines the 8-byte payloads exchanged on the bus and their
// little-endian codecs. Encoding is always explicit byte packing; struct
// memory layout is never relied on.
package msgs
