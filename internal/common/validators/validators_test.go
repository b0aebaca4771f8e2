package validators

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateHost(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"0.0.0.0", true},
		{"example.com", true},
		{"localhost", true},
		{"-bad-.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidateHost(tc.host); got != tc.want {
			t.Errorf("ValidateHost(%q) = %v, want %v", tc.host, got, tc.want)
		}
	}
}

func TestValidatePort(t *testing.T) {
	cases := []struct {
		port any
		want bool
	}{
		{8443, true},
		{1, true},
		{65535, true},
		{0, false},
		{65536, false},
		{"443", true},
		{"0", false},
		{"not-a-port", false},
		{3.14, false},
	}
	for _, tc := range cases {
		if got := ValidatePort(tc.port); got != tc.want {
			t.Errorf("ValidatePort(%v) = %v, want %v", tc.port, got, tc.want)
		}
	}
}

func TestValidateAddr(t *testing.T) {
	if !ValidateAddr("127.0.0.1:8443") {
		t.Error("expected valid address")
	}
	if ValidateAddr("127.0.0.1") {
		t.Error("expected missing port to be invalid")
	}
}

func TestValidateFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	if ValidateFileExists(path) {
		t.Error("expected false for missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !ValidateFileExists(path) {
		t.Error("expected true for existing file")
	}
	if ValidateFileExists(dir) {
		t.Error("expected false for a directory")
	}
	if !ValidateDirectoryExists(dir) {
		t.Error("expected true for existing directory")
	}
}
