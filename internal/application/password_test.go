package application

import (
	"errors"
	"strings"
	"testing"
)

var fastArgon2idParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestPasswordHash(t *testing.T) {
	t.Parallel()

	encoded, err := CreatePasswordHash("admin1234", fastArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	if err := VerifyPassword(encoded, "admin1234"); err != nil {
		t.Fatalf("expected password to verify: %v", err)
	}
	if err := VerifyPassword(encoded, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPassword_RejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		encoded string
		want    error
	}{
		{"plain", ErrInvalidPasswordHash},
		{"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", ErrInvalidPasswordHash},
		{"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA", ErrIncompatiblePasswordVersion},
		{"$argon2id$v=19$bogus$c2FsdA$aGFzaA", ErrInvalidPasswordHash},
		{"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA", ErrInvalidPasswordHash},
	}
	for _, tc := range cases {
		if err := VerifyPassword(tc.encoded, "x"); !errors.Is(err, tc.want) {
			t.Fatalf("VerifyPassword(%q) = %v, want %v", tc.encoded, err, tc.want)
		}
	}
}
