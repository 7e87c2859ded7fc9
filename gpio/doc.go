// Package gpio stands in for the half-byte hardware behind the device.
//
// A Port latches written bytes as nibble pairs and raises one interrupt per
// nibble, either synchronously (Burst) or from a pump goroutine (Run). The
// interrupt handler pulls each nibble with ReadHalfByte.
package gpio
