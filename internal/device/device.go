// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package device turns raw client headers into the device signals the
// Device pillar consumes: a display name and, when the caller's endpoint
// agent supplied none, a derived fingerprint.
package device

import (
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"
)

// DerivedPrefix marks fingerprints computed from headers rather than
// supplied by an endpoint agent.
const DerivedPrefix = "ua:"

// Info is what the user-agent reveals about the client.
type Info struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile,omitempty"`
	Bot     bool   `json:"bot,omitempty"`
}

// Parse extracts browser and OS from a user-agent string.
func Parse(userAgent string) Info {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Info{}
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	return Info{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}

// Name renders a label such as "Chrome on Windows 10".
func (i Info) Name() string {
	switch {
	case i.Browser != "" && i.OS != "":
		return i.Browser + " on " + i.OS
	case i.Browser != "":
		return i.Browser
	case i.OS != "":
		return i.OS
	default:
		return "Unknown device"
	}
}

// DisplayName is Parse(userAgent).Name().
func DisplayName(userAgent string) string {
	return Parse(userAgent).Name()
}

// Fingerprint derives a stable identifier from the user-agent and
// Accept-Language headers: "ua:" followed by the hex BLAKE2b-256 digest.
// It returns "" when there is no user-agent to derive from.
func Fingerprint(userAgent, acceptLanguage string) string {
	ua := normalize(userAgent)
	if ua == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(ua + "|" + normalize(acceptLanguage)))
	return DerivedPrefix + hex.EncodeToString(sum[:])
}

// IsDerived reports whether fp was produced by Fingerprint.
func IsDerived(fp string) bool {
	return strings.HasPrefix(fp, DerivedPrefix)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
