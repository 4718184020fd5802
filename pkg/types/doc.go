/*
Package types defines the shared vocabulary used across meridian: the
opaque content-addressed ID, the per-entry VerificationStatus, and the
closed-set error Kind taxonomy every other package returns errors from.

# Error handling

Errors raised by meridian's engine packages are *types.Error values
carrying one of the Kind constants (KindNotFound, KindInvalidKeyFormat,
KindInvalidSignature, KindAuthentication, KindSerialization,
KindDataIntegrity, KindConcurrency, KindAlreadyCommitted); pkg/persist
and pkg/config return errors from bbolt, the file system and the YAML
decoder without converting them. Callers branch on category with errors.Is against
the Kind-only sentinels (ErrNotFound, ErrAuthentication, ...) rather than
matching on message text:

	if errors.Is(err, types.ErrNotFound) {
	    // handle missing entry
	}

Construct new errors with NewError (no cause) or Wrap (wraps an
underlying error, preserving it for errors.Unwrap).
*/
package types
