// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package identity

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDirectory_IsKnown(t *testing.T) {
	t.Parallel()

	d, err := NewDirectoryFromPrincipals("alice", " Bob@Example.com ")
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}

	tests := []struct {
		principal string
		want      bool
	}{
		{"alice", true},
		{"ALICE", true},
		{"  alice  ", true},
		{"bob@example.com", true},
		{"mallory", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.principal, func(t *testing.T) {
			t.Parallel()
			got, err := d.IsKnown(tt.principal)
			if err != nil {
				t.Fatalf("IsKnown: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsKnown(%q) = %v, want %v", tt.principal, got, tt.want)
			}
		})
	}
}

func TestDirectory_EnrollAndRevoke(t *testing.T) {
	t.Parallel()

	d, err := NewDirectoryFromPrincipals()
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}

	if err := d.Enroll("  "); !errors.Is(err, ErrEmptyPrincipal) {
		t.Errorf("Enroll(blank) = %v, want ErrEmptyPrincipal", err)
	}
	if err := d.Enroll("Carol"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if ok, _ := d.IsKnown("carol"); !ok {
		t.Fatal("carol should be known after Enroll")
	}

	removed, err := d.Revoke("CAROL")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !removed {
		t.Error("Revoke reported nothing removed")
	}
	if ok, _ := d.IsKnown("carol"); ok {
		t.Error("carol should be unknown after Revoke")
	}

	removed, err = d.Revoke("carol")
	if err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if removed {
		t.Error("second Revoke should remove nothing")
	}
}

func TestDirectory_Principals(t *testing.T) {
	t.Parallel()

	d, err := NewDirectoryFromPrincipals("bob", "alice", "")
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	got := d.Principals()
	sort.Strings(got)
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("Principals() = %v, want [alice bob]", got)
	}
}

func TestDirectory_PolicyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, enrolled, gateway, login\ng, dave, enrolled\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	d, err := NewDirectory(Config{Principals: []string{"alice"}, PolicyPath: path})
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	defer d.Close()

	for _, p := range []string{"alice", "dave"} {
		if ok, err := d.IsKnown(p); err != nil || !ok {
			t.Errorf("IsKnown(%q) = %v, %v; want true", p, ok, err)
		}
	}

	// Runtime enrollment must not touch the file.
	if err := d.Enroll("erin"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read policy: %v", err)
	}
	if string(data) != policy {
		t.Errorf("policy file modified: %q", data)
	}
}

func TestDirectory_MissingPolicyFile(t *testing.T) {
	t.Parallel()

	d, err := NewDirectory(Config{
		Principals: []string{"alice"},
		PolicyPath: filepath.Join(t.TempDir(), "absent.csv"),
	})
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	if ok, _ := d.IsKnown("alice"); !ok {
		t.Error("configured principal should be known without a policy file")
	}
}
