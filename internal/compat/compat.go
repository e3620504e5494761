// Package compat produces per-item compatibility issue lists by comparing
// a plugin's requires_wp / requires_php metadata against the target site.
// It runs before batch processing; the processor only reads the result.
package compat

import (
	"fmt"
	"strconv"
	"strings"
)

// Platform describes the target site's WordPress and PHP versions. Empty
// fields disable the corresponding check.
type Platform struct {
	WPVersion  string
	PHPVersion string
}

// Issues returns human-readable compatibility problems for one item, or
// nil when the item is compatible. Unknown requirements are not issues.
func Issues(requiresWP, requiresPHP string, p Platform) []string {
	var issues []string

	if requiresWP != "" && p.WPVersion != "" && versionLess(p.WPVersion, requiresWP) {
		issues = append(issues,
			fmt.Sprintf("requires WordPress %s or newer, site runs %s", requiresWP, p.WPVersion))
	}

	if requiresPHP != "" && p.PHPVersion != "" && versionLess(p.PHPVersion, requiresPHP) {
		issues = append(issues,
			fmt.Sprintf("requires PHP %s or newer, site runs %s", requiresPHP, p.PHPVersion))
	}

	return issues
}

// versionLess reports whether dotted-numeric version a sorts before b.
// Non-numeric segments compare as zero; missing segments compare as zero,
// so "6.4" equals "6.4.0".
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(strings.TrimSpace(as[i]))
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(strings.TrimSpace(bs[i]))
		}
		if av != bv {
			return av < bv
		}
	}

	return false
}
