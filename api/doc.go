// Package api holds the contracts shared by every nibblepipe package:
// the device and session interfaces, the half-byte source, the ring
// contract, the control plane and the error catalogue.
package api
