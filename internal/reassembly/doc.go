// Package reassembly restores segment order for a single track.
//
// Workers deliver decrypted segments in whatever order they finish. The
// Writer writes the segment matching the next expected index immediately,
// then drains any buffered run that follows it; everything else waits in an
// in-memory map keyed by index. The output is always the concatenation of
// payloads in ascending index order, and a delivery stream that cannot
// satisfy that is reported as a ConsistencyError naming the stranded indices.
package reassembly
