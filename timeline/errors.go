package timeline

import "errors"

// ErrMalformedTimeline reports bad tick ordering or a bad resolution in the
// source material. Fatal to loading; the cache path may still serve.
var ErrMalformedTimeline = errors.New("malformed timeline")

// ErrInvalidConfiguration reports a rejected runtime parameter (tempo scale,
// lookahead window). Callers keep the prior valid value.
var ErrInvalidConfiguration = errors.New("invalid configuration")
