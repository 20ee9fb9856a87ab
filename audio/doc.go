// Package audio turns a raw sample stream into the fixed-size frames the
// recognizer consumes. Framing is gated on a smoothed input level so that
// silence between utterances does not produce training or prediction frames.
package audio
