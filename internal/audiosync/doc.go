// Package audiosync estimates the relative time offset between audio tracks
// that carry the same content, such as two dubs cut from different masters.
//
// Tracks are fingerprinted into fixed-duration tokens. A coarse pass finds the
// integer token shift with the longest run of near-identical tokens; a
// refinement pass re-fingerprints the matched window at several sub-token
// start points and averages the results to recover precision below one token.
package audiosync
