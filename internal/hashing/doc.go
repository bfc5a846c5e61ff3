// Package hashing computes tiered content fingerprints.
//
// Small files are digested in full. Files above a configurable threshold are
// digested over only their trailing 10 MiB, which bounds hashing cost for
// large videos to a fixed read. A fingerprint is the (digest, size, method)
// triple; the method tag keeps full and tail digests from ever being compared
// against each other.
package hashing
