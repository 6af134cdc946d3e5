// Package hasher provides streaming message digests selected by name.
package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"hash/crc32"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Hasher accumulates bytes and produces a digest. Once the digest has been
// computed no more data may be inserted until Clear is called.
type Hasher interface {
	Insert(data []byte)
	InsertString(s string)
	Digest() []byte
	String() string
	Clear()
	Name() string
}

var factories = map[string]func() hash.Hash{
	"SHA256":   sha256.New,
	"FNV":      func() hash.Hash { return fnv.New64a() },
	"MD5":      md5.New,
	"SHA1":     sha1.New,
	"SHA384":   sha512.New384,
	"SHA512":   sha512.New,
	"CRC32":    func() hash.Hash { return crc32.NewIEEE() },
	"XXHASH64": func() hash.Hash { return xxhash.New() },
	"BLAKE2B": func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			panic(err)
		}
		return h
	},
}

// Names returns the supported algorithm names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New returns a hasher for the named algorithm. Names are case-insensitive.
func New(name string) (Hasher, error) {
	key := strings.ToUpper(name)
	mk, ok := factories[key]
	if !ok {
		return nil, errors.Errorf("unknown hash algorithm %q", name)
	}
	return &streamHasher{name: key, h: mk()}, nil
}

// NewSHA256 returns the default hasher.
func NewSHA256() Hasher {
	return &streamHasher{name: "SHA256", h: sha256.New()}
}

// NewFNV returns a 64-bit FNV-1a hasher.
func NewFNV() Hasher {
	return &streamHasher{name: "FNV", h: fnv.New64a()}
}

type streamHasher struct {
	name   string
	h      hash.Hash
	digest []byte
}

func (s *streamHasher) Name() string {
	return s.name
}

func (s *streamHasher) Insert(data []byte) {
	if s.digest != nil {
		panic("hasher: cannot insert after the digest has been computed")
	}
	s.h.Write(data)
}

func (s *streamHasher) InsertString(str string) {
	s.Insert([]byte(str))
}

func (s *streamHasher) Digest() []byte {
	if s.digest == nil {
		s.digest = s.h.Sum(nil)
	}
	return s.digest
}

func (s *streamHasher) String() string {
	return hex.EncodeToString(s.Digest())
}

func (s *streamHasher) Clear() {
	s.h.Reset()
	s.digest = nil
}

// Sum64 folds the first eight bytes of the digest into an integer, most
// significant byte first. Shorter digests are zero extended.
func Sum64(h Hasher) uint64 {
	var r uint64
	d := h.Digest()
	for i := 0; i < 8 && i < len(d); i++ {
		r = r<<8 | uint64(d[i])
	}
	return r
}
