package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewEncryptor(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		wantNil    bool
	}{
		{
			name:       "valid passphrase",
			passphrase: "strong-passphrase-123",
			wantNil:    false,
		},
		{
			name:       "empty passphrase returns nil",
			passphrase: "",
			wantNil:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewEncryptor(tt.passphrase)
			if tt.wantNil && enc != nil {
				t.Errorf("NewEncryptor() = %v, want nil", enc)
			}
			if !tt.wantNil && enc == nil {
				t.Error("NewEncryptor() = nil, want non-nil")
			}
		})
	}
}

func TestSealOpen(t *testing.T) {
	enc := NewEncryptor("test-passphrase")

	tests := []struct {
		name      string
		plaintext string
	}{
		{"token json", `{"access_token":"ya29.x","refresh_token":"1//y","token_type":"Bearer"}`},
		{"empty", ""},
		{"unicode", "Hello 世界"},
		{"long text", strings.Repeat("Lorem ipsum dolor sit amet. ", 100)},
		{"multiline", "line1\nline2\nline3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := enc.Seal([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if !IsSealed(sealed) {
				t.Error("IsSealed() = false for sealed data")
			}
			if tt.plaintext != "" && bytes.Contains(sealed, []byte(tt.plaintext)) {
				t.Error("sealed data contains the plaintext")
			}

			opened, err := enc.Open(sealed)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if string(opened) != tt.plaintext {
				t.Errorf("Open() = %q, want %q", opened, tt.plaintext)
			}
		})
	}
}

func TestSeal_FreshSaltPerCall(t *testing.T) {
	enc := NewEncryptor("test-passphrase")
	a, _ := enc.Seal([]byte("same"))
	b, _ := enc.Seal([]byte("same"))
	if bytes.Equal(a, b) {
		t.Error("Seal() produced identical output twice")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	sealed, err := NewEncryptor("right").Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := NewEncryptor("wrong").Open(sealed); !errors.Is(err, ErrWrongKey) {
		t.Errorf("Open() with wrong key error = %v, want ErrWrongKey", err)
	}
}

func TestOpen_NotSealed(t *testing.T) {
	enc := NewEncryptor("key")
	if _, err := enc.Open([]byte(`{"access_token":"x"}`)); !errors.Is(err, ErrNotSealed) {
		t.Errorf("Open() error = %v, want ErrNotSealed", err)
	}
	if IsSealed([]byte(`{"access_token":"x"}`)) {
		t.Error("IsSealed() = true for plaintext")
	}
}

func TestNilEncryptor_PassesThrough(t *testing.T) {
	var enc *Encryptor
	data := []byte("plain")

	sealed, err := enc.Seal(data)
	if err != nil || string(sealed) != "plain" {
		t.Errorf("nil Seal() = %q, %v", sealed, err)
	}
	opened, err := enc.Open(data)
	if err != nil || string(opened) != "plain" {
		t.Errorf("nil Open() = %q, %v", opened, err)
	}
}
