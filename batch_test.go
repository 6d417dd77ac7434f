package kvcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	c "github.com/unkn0wn-root/kvcache/codec"
)

// ==============================
// Bulk argument validation
// ==============================

func TestBulkEmptyCollectionsNeverReachProvider(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, c.String{}, nil)

	wantCode(t, "get_all nil", cc.GetAll(ctx, nil), CodeIllegalArgument)
	wantCode(t, "get_all empty", cc.GetAll(ctx, []string{}), CodeIllegalArgument)
	wantCode(t, "put_all nil", cc.PutAll(ctx, nil, time.Minute), CodeIllegalArgument)
	wantCode(t, "put_all empty", cc.PutAll(ctx, map[string]string{}, time.Minute), CodeIllegalArgument)
	wantCode(t, "remove_all nil", cc.RemoveAll(ctx, nil), CodeIllegalArgument)
	wantCode(t, "remove_all empty", cc.RemoveAll(ctx, []string{}), CodeIllegalArgument)

	if n := sp.totalCalls(); n != 0 {
		t.Fatalf("provider called %d times, want 0", n)
	}
}

// ==============================
// GetAll
// ==============================

// TestPutAllThenGetAll writes two entries and reads them back together with
// one key that was never written.
func TestPutAllThenGetAll(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, int](t, sp, c.JSON[int]{}, nil)

	wantCode(t, "put_all", cc.PutAll(ctx, map[string]int{"a": 1, "b": 2}, 60*time.Second), CodeSuccess)
	if sp.calls["set_many"] != 1 || sp.calls["set"] != 0 {
		t.Fatalf("put_all must issue one bulk write, calls=%v", sp.calls)
	}

	r := cc.GetAll(ctx, []string{"a", "b", "c"})
	wantCode(t, "get_all", r, CodeSuccess)
	if sp.calls["get_many"] != 1 || sp.calls["get"] != 0 {
		t.Fatalf("get_all must issue one bulk read, calls=%v", sp.calls)
	}

	got := r.Value()
	if len(got) != 3 {
		t.Fatalf("len=%d want 3: %v", len(got), got)
	}
	for k, want := range map[string]int{"a": 1, "b": 2} {
		wantCode(t, k, got[k], CodeSuccess)
		if got[k].Value() != want {
			t.Fatalf("%s=%d want %d", k, got[k].Value(), want)
		}
	}
	wantCode(t, "c", got["c"], CodeNotFound)
}

func TestGetAllKeySetMatchesInput(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{1, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			sp := newSpy()
			cc := newTestCache[string, string](t, sp, c.String{}, nil)

			keys := make([]string, n)
			for i := range keys {
				keys[i] = fmt.Sprintf("k%03d", i)
				if i%2 == 0 {
					wantCode(t, "put", cc.Put(ctx, keys[i], "v", time.Minute), CodeSuccess)
				}
			}

			r := cc.GetAll(ctx, keys)
			wantCode(t, "get_all", r, CodeSuccess)
			got := r.Value()
			if len(got) != n {
				t.Fatalf("len=%d want %d", len(got), n)
			}
			for i, k := range keys {
				res, ok := got[k]
				if !ok {
					t.Fatalf("missing key %s", k)
				}
				want := CodeNotFound
				if i%2 == 0 {
					want = CodeSuccess
				}
				wantCode(t, k, res, want)
			}
		})
	}
}

func TestGetAllDuplicateInputKeys(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, c.String{}, nil)
	wantCode(t, "put", cc.Put(ctx, "a", "1", time.Minute), CodeSuccess)

	r := cc.GetAll(ctx, []string{"a", "a", "b"})
	wantCode(t, "get_all", r, CodeSuccess)
	if len(r.Value()) != 2 {
		t.Fatalf("len=%d want 2", len(r.Value()))
	}
	if len(sp.lastGet) != 2 {
		t.Fatalf("provider asked for %v, want 2 distinct keys", sp.lastGet)
	}
}

// TestGetAllCollidingKeys checks that typed keys sharing a binary key each get
// the shared outcome.
func TestGetAllCollidingKeys(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	h := &recordHooks{}
	cc := newTestCache[string, string](t, sp, c.String{}, func(o *Options[string, string]) {
		o.KeyEncoder = c.KeyFunc[string](func(k string) (string, error) { return strings.ToLower(k), nil })
		o.Hooks = h
	})
	wantCode(t, "put", cc.Put(ctx, "a", "x", time.Minute), CodeSuccess)

	r := cc.GetAll(ctx, []string{"A", "a"})
	wantCode(t, "get_all", r, CodeSuccess)
	got := r.Value()
	for _, k := range []string{"A", "a"} {
		wantCode(t, k, got[k], CodeSuccess)
		if got[k].Value() != "x" {
			t.Fatalf("%s=%q want x", k, got[k].Value())
		}
	}
	if len(sp.lastGet) != 1 {
		t.Fatalf("provider asked for %v, want one binary key", sp.lastGet)
	}
	if h.collisions != 1 {
		t.Fatalf("KeyCollision hook called %d times, want 1", h.collisions)
	}
}

// Members that cannot be processed get their own result and are never sent to
// the provider; the rest of the batch proceeds.
func TestGetAllPerKeyArgumentFailures(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[*string, string](t, sp, c.String{}, func(o *Options[*string, string]) {
		o.KeyEncoder = c.KeyFunc[*string](func(k *string) (string, error) {
			if *k == "boom" {
				return "", errors.New("unencodable")
			}
			return *k, nil
		})
	})

	a, boom := "a", "boom"
	wantCode(t, "put", cc.Put(ctx, &a, "1", time.Minute), CodeSuccess)

	r := cc.GetAll(ctx, []*string{nil, &a, &boom})
	wantCode(t, "get_all", r, CodeSuccess)
	got := r.Value()
	if len(got) != 3 {
		t.Fatalf("len=%d want 3", len(got))
	}
	wantCode(t, "nil", got[nil], CodeIllegalArgument)
	wantCode(t, "a", got[&a], CodeSuccess)
	wantCode(t, "boom", got[&boom], CodeFail)
	if len(sp.lastGet) != 1 || sp.lastGet[0] != "a" {
		t.Fatalf("provider asked for %v, want [a]", sp.lastGet)
	}
}

func TestGetAllWithoutEncodableKeysSkipsProvider(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, c.String{}, func(o *Options[string, string]) {
		o.KeyEncoder = c.StringKey{}
	})

	r := cc.GetAll(ctx, []string{""})
	wantCode(t, "get_all", r, CodeSuccess)
	wantCode(t, "empty key", r.Value()[""], CodeFail)
	if n := sp.totalCalls(); n != 0 {
		t.Fatalf("provider called %d times, want 0", n)
	}
}

func TestGetAllReportsExpiredPerKey(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, c.String{}, nil)

	wantCode(t, "put short", cc.Put(ctx, "short", "v", time.Second), CodeSuccess)
	wantCode(t, "put long", cc.Put(ctx, "long", "v", time.Hour), CodeSuccess)
	sp.advance(2 * time.Second)

	got := cc.GetAll(ctx, []string{"short", "long"}).Value()
	wantCode(t, "short", got["short"], CodeExpired)
	wantCode(t, "long", got["long"], CodeSuccess)
}

func TestGetAllWholeCallFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("cluster down")
	sp := newSpy()
	h := &recordHooks{}
	cc := newTestCache[string, string](t, sp, c.String{}, func(o *Options[string, string]) {
		o.Hooks = h
	})
	sp.err = boom

	r := cc.GetAll(ctx, []string{"a", "b"})
	wantCode(t, "get_all", r, CodeFail)
	if r.Value() != nil {
		t.Fatalf("failed GetAll must not carry a mapping")
	}
	if !errors.Is(r.Err(), boom) {
		t.Fatalf("Err()=%v want %v", r.Err(), boom)
	}
	if h.failures != 1 {
		t.Fatalf("ProviderFailure hook called %d times, want 1", h.failures)
	}
}

func TestGetAllPartialProviderFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("node timeout")
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, c.String{}, nil)
	wantCode(t, "put", cc.Put(ctx, "a", "1", time.Minute), CodeSuccess)
	sp.keyErr = map[string]error{"b": boom}

	r := cc.GetAll(ctx, []string{"a", "b"})
	wantCode(t, "get_all", r, CodeSuccess)
	got := r.Value()
	wantCode(t, "a", got["a"], CodeSuccess)
	wantCode(t, "b", got["b"], CodeFail)
	if got["b"].Message() != boom.Error() {
		t.Fatalf("b message=%q", got["b"].Message())
	}
}

// ==============================
// PutAll / RemoveAll
// ==============================

func TestPutAllFailsFastOnCodecError(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, failOn{bad: "bad"}, nil)

	r := cc.PutAll(ctx, map[string]string{"a": "ok", "b": "bad"}, time.Minute)
	wantCode(t, "put_all", r, CodeFail)
	if !strings.Contains(r.Message(), string(OpEncodeValue)) {
		t.Fatalf("message=%q", r.Message())
	}
	if n := sp.totalCalls(); n != 0 {
		t.Fatalf("provider called %d times, want 0", n)
	}
}

func TestPutAllRejectsNilKey(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[*string, string](t, sp, c.String{}, nil)

	a := "a"
	r := cc.PutAll(ctx, map[*string]string{nil: "x", &a: "y"}, time.Minute)
	wantCode(t, "put_all", r, CodeIllegalArgument)
	if n := sp.totalCalls(); n != 0 {
		t.Fatalf("provider called %d times, want 0", n)
	}
}

func TestPutAllCollidingKeysFireHook(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	h := &recordHooks{}
	cc := newTestCache[string, string](t, sp, c.String{}, func(o *Options[string, string]) {
		o.KeyEncoder = c.KeyFunc[string](func(k string) (string, error) { return strings.ToLower(k), nil })
		o.Hooks = h
	})

	wantCode(t, "put_all", cc.PutAll(ctx, map[string]string{"A": "x", "a": "x"}, time.Minute), CodeSuccess)
	if len(sp.m) != 1 {
		t.Fatalf("stored %d entries, want 1", len(sp.m))
	}
	if h.collisions != 1 {
		t.Fatalf("KeyCollision hook called %d times, want 1", h.collisions)
	}
}

func TestRemoveAll(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, c.String{}, nil)
	wantCode(t, "put_all", cc.PutAll(ctx, map[string]string{"a": "1", "b": "2", "c": "3"}, time.Minute), CodeSuccess)

	wantCode(t, "remove_all", cc.RemoveAll(ctx, []string{"a", "b", "a", "missing"}), CodeSuccess)
	if sp.calls["del_many"] != 1 || sp.calls["del"] != 0 {
		t.Fatalf("remove_all must issue one bulk delete, calls=%v", sp.calls)
	}
	got := cc.GetAll(ctx, []string{"a", "b", "c"}).Value()
	wantCode(t, "a", got["a"], CodeNotFound)
	wantCode(t, "b", got["b"], CodeNotFound)
	wantCode(t, "c", got["c"], CodeSuccess)

	// second pass is a no-op success
	wantCode(t, "remove_all again", cc.RemoveAll(ctx, []string{"a", "b"}), CodeSuccess)
}

func TestRemoveAllFailsFastOnNilKey(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[*string, string](t, sp, c.String{}, nil)

	a := "a"
	wantCode(t, "remove_all", cc.RemoveAll(ctx, []*string{&a, nil}), CodeIllegalArgument)
	if n := sp.totalCalls(); n != 0 {
		t.Fatalf("provider called %d times, want 0", n)
	}
}

// Interface keys holding an uncomparable value cannot index the result
// mapping, so the whole call is rejected instead of panicking.
func TestGetAllUnhashableInterfaceKey(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[any, string](t, sp, c.String{}, nil)

	wantCode(t, "get", cc.Get(ctx, []int{1}), CodeNotFound)
	wantCode(t, "get_all", cc.GetAll(ctx, []any{"a", []int{1}}), CodeIllegalArgument)
	wantCode(t, "get_all map", cc.GetAll(ctx, []any{map[string]int{}}), CodeIllegalArgument)
	if sp.calls["get_many"] != 0 {
		t.Fatalf("GetMany called %d times, want 0", sp.calls["get_many"])
	}

	type wrapped struct{ V any }
	wc := newTestCache[wrapped, string](t, sp, c.String{}, nil)
	wantCode(t, "get_all struct", wc.GetAll(ctx, []wrapped{{V: []byte("x")}}), CodeIllegalArgument)

	wantCode(t, "get_all ok", cc.GetAll(ctx, []any{"a", 1, nil}), CodeSuccess)
}

// Every input key ends with a resolved result, including hits, misses and
// keys that shared a binary key.
func TestGetAllResolvesEveryKey(t *testing.T) {
	ctx := context.Background()
	sp := newSpy()
	cc := newTestCache[string, string](t, sp, c.String{}, func(o *Options[string, string]) {
		o.KeyEncoder = c.KeyFunc[string](func(k string) (string, error) { return strings.ToLower(k), nil })
	})
	wantCode(t, "put", cc.Put(ctx, "hit", "v", time.Minute), CodeSuccess)

	got := cc.GetAll(ctx, []string{"hit", "HIT", "miss", "Miss", "hit"}).Value()
	if len(got) != 4 {
		t.Fatalf("len=%d want 4: %v", len(got), got)
	}
	for _, k := range []string{"hit", "HIT"} {
		if got[k].Code() != CodeSuccess || got[k].Value() != "v" {
			t.Fatalf("%s: %v value=%q", k, got[k], got[k].Value())
		}
	}
	for _, k := range []string{"miss", "Miss"} {
		if got[k].Code() != CodeNotFound || got[k].Message() != MsgNotFound {
			t.Fatalf("%s: %v", k, got[k])
		}
	}
}
