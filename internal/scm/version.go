// Package scm derives package versions from git tags.
package scm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 10 * time.Second

var describePattern = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-f]+)(-dirty)?$`)

// Description is the parsed output of git describe --long --dirty.
type Description struct {
	Tag      string
	Distance int
	Node     string
	Dirty    bool
}

// Describe runs git describe in dir and parses the result.
func Describe(ctx context.Context, runner ProcessRunner, dir string) (*Description, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	args := []string{"describe", "--tags", "--long", "--dirty", "--match", "*[0-9]*"}
	stdout, stderr, err := runner.Run(ctx, dir, "git", args, nil)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return nil, fmt.Errorf("git describe failed: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("git describe failed: %w", err)
	}
	return ParseDescribe(strings.TrimSpace(string(stdout)))
}

// ParseDescribe parses "<tag>-<distance>-g<node>[-dirty]".
func ParseDescribe(out string) (*Description, error) {
	m := describePattern.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("unexpected git describe output %q", out)
	}
	distance, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("invalid distance in %q: %w", out, err)
	}
	return &Description{
		Tag:      m[1],
		Distance: distance,
		Node:     m[3],
		Dirty:    m[4] != "",
	}, nil
}

// Version renders d in the "guess next dev" scheme: a clean checkout of a tag
// is the tag itself; anything else bumps the last release component and
// becomes a dev release carrying the commit as local version.
//
//	v4.2, 0 commits, clean -> 4.2
//	v4.2, 3 commits        -> 4.3.dev3+g1a2b3c4
//	v4.2, dirty            -> 4.3.dev0+g1a2b3c4.d20240501
func (d *Description) Version(now time.Time) (string, error) {
	base := strings.TrimPrefix(strings.TrimPrefix(d.Tag, "v"), "V")
	if d.Distance == 0 && !d.Dirty {
		return base, nil
	}

	next, err := bumpLast(base)
	if err != nil {
		return "", err
	}
	local := "g" + d.Node
	if d.Dirty {
		local += ".d" + now.UTC().Format("20060102")
	}
	return fmt.Sprintf("%s.dev%d+%s", next, d.Distance, local), nil
}

// bumpLast increments the last numeric component of a release version.
func bumpLast(v string) (string, error) {
	parts := strings.Split(v, ".")
	last := len(parts) - 1
	n, err := strconv.Atoi(parts[last])
	if err != nil {
		return "", fmt.Errorf("cannot derive next version from tag %q", v)
	}
	parts[last] = strconv.Itoa(n + 1)
	return strings.Join(parts, "."), nil
}

// Resolve returns override when set, otherwise the version described by git.
func Resolve(ctx context.Context, runner ProcessRunner, dir, override string, now time.Time) (string, error) {
	if override != "" {
		return override, nil
	}
	d, err := Describe(ctx, runner, dir)
	if err != nil {
		return "", fmt.Errorf("failed to determine version (set ANIMA_VERSION to skip git): %w", err)
	}
	return d.Version(now)
}
