// Package record implements the fixed-layout text codecs for mail: the
// submission a client sends and the record the server stores per recipient.
// Both are parsed by line position, so the order and the literal prefixes of
// the header lines are part of the contract.
package record
