package redis

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

func TestNewRequiresClientAndNamespace(t *testing.T) {
	if _, err := New(Config{Namespace: "ns"}); err != ErrNilClient {
		t.Fatalf("err=%v want ErrNilClient", err)
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })
	if _, err := New(Config{Client: rdb}); err != ErrEmptyNamespace {
		t.Fatalf("err=%v want ErrEmptyNamespace", err)
	}
	p, err := New(Config{Client: rdb, Namespace: "app"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.key("tc:v:categories"); got != "app:tc:v:categories" {
		t.Fatalf("key=%q", got)
	}
}

func TestEscapeGlob(t *testing.T) {
	cases := []struct{ in, want string }{
		{"transactions_", "transactions_"},
		{"a*b", `a\*b`},
		{"x?[y]", `x\?\[y\]`},
		{`back\slash`, `back\\slash`},
	}
	for _, tc := range cases {
		if got := escapeGlob(tc.in); got != tc.want {
			t.Fatalf("escapeGlob(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}
