package lfsdbg

import (
	"log/slog"
	"reflect"
	"testing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEq[T any](t testing.TB, a, e T) bool {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
		return false
	}
	return true
}

func TestInc(t *testing.T) {
	b := []byte{0x00, 0x00}
	if !inc(b) || b[0] != 0x00 || b[1] != 0x01 {
		t.Fatalf("inc = %x, wanted 0001", b)
	}
	b = []byte{0x01, 0xFF}
	if !inc(b) || b[0] != 0x02 || b[1] != 0x00 {
		t.Fatalf("inc = %x, wanted 0200", b)
	}
	if inc([]byte{0xFF}) {
		t.Fatalf("inc(FF) = true, wanted false")
	}
	if inc(nil) {
		t.Fatalf("inc(nil) = true, wanted false")
	}
}

func TestHexHelpers(t *testing.T) {
	if got := hexstr(nil); got != "<nil>" {
		t.Fatalf("hexstr(nil) = %q, wanted <nil>", got)
	}
	if got := hexstr([]byte{}); got != "<empty>" {
		t.Fatalf("hexstr(empty) = %q, wanted <empty>", got)
	}
	if got := hexstr([]byte{0xAA, 0xBB}); got != "aabb" {
		t.Fatalf("hexstr = %q, wanted aabb", got)
	}
	a := hexAttr("k", []byte{0xAA})
	if a.Key != "k" || a.Value.Kind() != slog.KindString || a.Value.String() != "aa" {
		t.Fatalf("hexAttr returned unexpected attr: %+v", a)
	}
}

func TestHexPreview(t *testing.T) {
	if got := hexPreview([]byte{1, 2, 3}, 8); got != "010203" {
		t.Fatalf("hexPreview = %q, wanted 010203", got)
	}
	if got := hexPreview([]byte{1, 2, 3, 4}, 2); got != "0102..." {
		t.Fatalf("hexPreview = %q, wanted 0102...", got)
	}
	if got := printable([]byte("ab\x00\xffc")); got != "ab..c" {
		t.Fatalf("printable = %q, wanted ab..c", got)
	}
}
