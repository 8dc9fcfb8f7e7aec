// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package identity answers whether a principal is enrolled and may be
// evaluated at all. Credential verification happens upstream; an attempt
// only reaches the engine after the identity provider vouched for it, and an
// unenrolled principal is blocked without pillar scoring.
//
// Enrollment is an RBAC grouping in Casbin: principals belong to the
// "enrolled" role, which may "login" to the "gateway".
package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/gatekeeper/internal/logging"
)

// Policy vocabulary.
const (
	RoleEnrolled   = "enrolled"
	ObjectGateway  = "gateway"
	ActionLogin    = "login"
	defaultReload  = 30 * time.Second
	directoryModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`
)

// ErrEmptyPrincipal is returned when enrolling a blank principal.
var ErrEmptyPrincipal = errors.New("principal is required")

// Config holds directory settings.
type Config struct {
	// Principals are enrolled at startup.
	Principals []string

	// PolicyPath is an optional Casbin CSV with further "g, <principal>,
	// enrolled" lines. Principals in the file must be lower case.
	PolicyPath string

	// ReloadInterval re-reads PolicyPath periodically. Zero disables it.
	ReloadInterval time.Duration
}

// Directory is the Casbin-backed enrollment list.
type Directory struct {
	enforcer *casbin.SyncedEnforcer
}

// NewDirectory builds the directory from cfg.
func NewDirectory(cfg Config) (*Directory, error) {
	m, err := model.NewModelFromString(directoryModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	usePolicyFile := cfg.PolicyPath != "" && fileExists(cfg.PolicyPath)
	if usePolicyFile {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		if cfg.PolicyPath != "" {
			logging.Warn().Str("path", cfg.PolicyPath).Msg("Identity policy file not found, using configured principals only")
		}
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	// Runtime enrollments are never written back to the policy file.
	enforcer.EnableAutoSave(false)

	d := &Directory{enforcer: enforcer}
	if err := d.seed(cfg.Principals); err != nil {
		return nil, err
	}

	if usePolicyFile && cfg.ReloadInterval > 0 {
		enforcer.StartAutoLoadPolicy(cfg.ReloadInterval)
	}

	logging.Info().Int("principals", len(d.Principals())).Bool("policy_file", usePolicyFile).Msg("Identity directory loaded")
	return d, nil
}

// NewDirectoryFromPrincipals is NewDirectory without a policy file.
func NewDirectoryFromPrincipals(principals ...string) (*Directory, error) {
	return NewDirectory(Config{Principals: principals})
}

func (d *Directory) seed(principals []string) error {
	if _, err := d.enforcer.AddPolicy(RoleEnrolled, ObjectGateway, ActionLogin); err != nil {
		return fmt.Errorf("failed to add enrollment policy: %w", err)
	}
	for _, p := range principals {
		if err := d.Enroll(p); err != nil && !errors.Is(err, ErrEmptyPrincipal) {
			return err
		}
	}
	return nil
}

// IsKnown reports whether principal is enrolled.
func (d *Directory) IsKnown(principal string) (bool, error) {
	p := normalize(principal)
	if p == "" {
		return false, nil
	}
	ok, err := d.enforcer.Enforce(p, ObjectGateway, ActionLogin)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return ok, nil
}

// Enroll adds principal to the directory.
func (d *Directory) Enroll(principal string) error {
	p := normalize(principal)
	if p == "" {
		return ErrEmptyPrincipal
	}
	if _, err := d.enforcer.AddGroupingPolicy(p, RoleEnrolled); err != nil {
		return fmt.Errorf("failed to enroll %s: %w", p, err)
	}
	return nil
}

// Revoke removes principal. It reports whether the principal was enrolled.
func (d *Directory) Revoke(principal string) (bool, error) {
	removed, err := d.enforcer.RemoveGroupingPolicy(normalize(principal), RoleEnrolled)
	if err != nil {
		return false, fmt.Errorf("failed to revoke %s: %w", principal, err)
	}
	return removed, nil
}

// Principals lists enrolled principals.
func (d *Directory) Principals() []string {
	users, err := d.enforcer.GetUsersForRole(RoleEnrolled)
	if err != nil {
		return nil
	}
	return users
}

// Close stops policy auto-reload.
func (d *Directory) Close() {
	if d.enforcer.IsAutoLoadingRunning() {
		d.enforcer.StopAutoLoadPolicy()
	}
}

func normalize(principal string) string {
	return strings.ToLower(strings.TrimSpace(principal))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
