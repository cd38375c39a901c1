package cafs

import (
	"encoding/hex"
	"fmt"
	"regexp"
)

const (
	// KeySize for sha1 keys
	KeySize = 20

	// KeySizeHex for hex representation of a key
	KeySizeHex = 2 * KeySize
)

var keyRex = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Key type for CAFS keys
type Key [KeySize]byte

// NewKey creates a new key from a raw digest
func NewKey(data []byte) (Key, error) {
	var k Key
	if len(data) != KeySize {
		return Key{}, &BadKeySize{Key: data}
	}
	copy(k[:], data)
	return k, nil
}

// MustNewKey creates a new key from data but panics if there is an error
func MustNewKey(data []byte) Key {
	k, e := NewKey(data)
	if e != nil {
		panic(e.Error())
	}
	return k
}

// KeyFromString parses the hex representation of a key
func KeyFromString(s string) (Key, error) {
	if !IsValidKey(s) {
		return Key{}, ErrInvalidKey.Wrapf("%q", s)
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, ErrInvalidKey.Wrap(err)
	}
	return NewKey(data)
}

// MustKeyFromString parses a key or panics
func MustKeyFromString(s string) Key {
	k, err := KeyFromString(s)
	if err != nil {
		panic(err.Error())
	}
	return k
}

// IsValidKey tells if a string is the hex representation of a key: exactly 40 lowercase hex digits.
func IsValidKey(s string) bool {
	return keyRex.MatchString(s)
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero tells if the key is the zero value
func (k Key) IsZero() bool {
	return k == Key{}
}

// MarshalText renders keys as hex in json and yaml documents
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a hex key
func (k *Key) UnmarshalText(data []byte) error {
	parsed, err := KeyFromString(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// BadKeySize is an error that's returned when the key to create has an invalid size.
type BadKeySize struct {
	Key []byte
}

func (b *BadKeySize) Error() string {
	return fmt.Sprintf("%x has invalid size of %d, expected %d", b.Key, len(b.Key), KeySize)
}
