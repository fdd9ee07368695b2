package identity

import "errors"

var (
	// ErrNilPrivateKey is returned when a nil private key is passed to FromPrivateKey.
	ErrNilPrivateKey = errors.New("identity: private key is nil")

	// ErrIdentityCorrupt is returned when the key file exists but cannot be
	// parsed. The file is never touched or overwritten in this case.
	ErrIdentityCorrupt = errors.New("identity: key file is corrupt")

	// ErrKeyNotFound names a missing key file. Load does not return it: a
	// missing file makes Load generate and persist a fresh key.
	ErrKeyNotFound = errors.New("identity: key not found")

	// ErrInvalidPEM names a key file that is not valid PEM. Load reports
	// that case as ErrIdentityCorrupt, not as this error.
	ErrInvalidPEM = errors.New("identity: invalid PEM data")

	// ErrUnsupportedKeyType names a PEM block of an unknown type. Load
	// reports that case as ErrIdentityCorrupt, not as this error.
	ErrUnsupportedKeyType = errors.New("identity: unsupported key type")
)
