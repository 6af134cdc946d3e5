package hasher

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFNVEmpty(t *testing.T) {
	h := NewFNV()
	if s := h.String(); s != "cbf29ce484222325" {
		t.Errorf("fnv of nothing is %s", s)
	}
	if Sum64(h) != 0xcbf29ce484222325 {
		t.Errorf("sum64 %#x", Sum64(h))
	}
}

func TestSHA256(t *testing.T) {
	h := NewSHA256()
	h.InsertString("abc")
	if s := h.String(); s != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("sha256(abc) = %s", s)
	}
	// the digest is stable once computed
	if s := h.String(); s != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("second digest %s", s)
	}
}

func TestKnownDigests(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"md5", "abc", "900150983cd24fb0d6963f7d28e17f72"},
		{"sha1", "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"crc32", "123456789", "cbf43926"},
		{"fnv", "a", "af63dc4c8601ec8c"},
		{"xxhash64", "", "ef46db3751d8e999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			h.InsertString(tt.input)
			if s := h.String(); s != tt.want {
				t.Errorf("got %s, expected %s", s, tt.want)
			}
		})
	}
}

func TestDigestSizes(t *testing.T) {
	sizes := map[string]int{
		"SHA256": 32, "FNV": 8, "MD5": 16, "SHA1": 20, "SHA384": 48,
		"SHA512": 64, "CRC32": 4, "XXHASH64": 8, "BLAKE2B": 32,
	}
	got := map[string]int{}
	for _, name := range Names() {
		h, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		got[name] = len(h.Digest())
	}
	if diff := cmp.Diff(sizes, got); diff != "" {
		t.Errorf("digest sizes (-want +got):\n%s", diff)
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := New("rot13"); err == nil {
		t.Error("expected an error")
	}
}

func TestInsertAfterDigest(t *testing.T) {
	h, _ := New("sha256")
	h.InsertString("a")
	h.Digest()
	defer func() {
		if recover() == nil {
			t.Error("inserting after the digest should panic")
		}
	}()
	h.InsertString("b")
}

func TestClear(t *testing.T) {
	h := NewFNV()
	h.InsertString("abc")
	h.Digest()
	h.Clear()
	h.Insert(nil)
	if s := h.String(); s != "cbf29ce484222325" {
		t.Errorf("cleared fnv is %s", s)
	}
}
