package credential

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// testParams keep the suite fast; production uses DefaultParams.
var testParams = Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashVerify(t *testing.T) {
	h := NewHasher(testParams, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "user_one")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}
	if !h.Verify(ctx, "user_one", hash) {
		t.Fatalf("Verify rejected the original secret")
	}
	if h.Verify(ctx, "user_two", hash) {
		t.Fatalf("Verify accepted a different secret")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := NewHasher(testParams, 1)
	ctx := context.Background()

	a, err := h.Hash(ctx, "same")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Hash(ctx, "same")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("two hashes of the same secret are identical: %q", a)
	}
	if !h.Verify(ctx, "same", a) || !h.Verify(ctx, "same", b) {
		t.Fatalf("both hashes should verify")
	}
}

func TestVerifyUsesStoredParams(t *testing.T) {
	ctx := context.Background()
	old := NewHasher(testParams, 1)
	hash, err := old.Hash(ctx, "user_x")
	if err != nil {
		t.Fatal(err)
	}

	stronger := NewHasher(Params{Memory: 128, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}, 1)
	if !stronger.Verify(ctx, "user_x", hash) {
		t.Fatalf("hash made with older params no longer verifies")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := NewHasher(testParams, 1)
	ctx := context.Background()

	bad := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA",
	}

	for _, hash := range bad {
		if h.Verify(ctx, "anything", hash) {
			t.Fatalf("Verify accepted malformed hash %q", hash)
		}
	}
}

func TestVerifyRejectsOversizedParams(t *testing.T) {
	h := NewHasher(testParams, 1)
	ctx := context.Background()

	oversized := []string{
		"$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=2097152,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=4294967295,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=255$c2FsdA$a2V5",
	}

	for _, hash := range oversized {
		if h.Verify(ctx, "anything", hash) {
			t.Fatalf("Verify accepted %q", hash)
		}
		if _, _, _, err := decodeHash(hash); err == nil {
			t.Fatalf("decodeHash accepted %q", hash)
		}
	}

	if _, _, _, err := decodeHash(encodeHash(DefaultParams, []byte("salt"), []byte("key"))); err != nil {
		t.Fatalf("default params rejected: %v", err)
	}
}

func TestHashRespectsCancelledContext(t *testing.T) {
	h := NewHasher(testParams, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Hash(ctx, "x"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestHasherConcurrentUse(t *testing.T) {
	h := NewHasher(testParams, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(ctx, "secret")
			if err != nil {
				errs <- err.Error()
				return
			}
			if !h.Verify(ctx, "secret", hash) {
				errs <- "verify failed"
			}
		}()
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Fatal(e)
	}
}
