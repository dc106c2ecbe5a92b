package gsobject

import "errors"

// ErrDecode is the sentinel wrapped by every decode failure (truncated
// body, reserved tag shape, malformed varint). Callers should treat any
// error satisfying errors.Is(err, ErrDecode) as "drop this frame, log" per
// the codec's decoder contract.
var ErrDecode = errors.New("gsobject: decode error")

// ErrExhausted is returned by Decoder.Decode when no bytes remain; it is
// the codec's "stream exhausted" sentinel, analogous to io.EOF.
var ErrExhausted = errors.New("gsobject: decoder exhausted")

// ErrEncodeFull is returned by Encoder.Encode when the frame does not fit
// in the remaining buffer space. The buffer is left unchanged.
var ErrEncodeFull = errors.New("gsobject: encoder buffer full")
