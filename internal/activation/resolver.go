package activation

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/cn-vhql/AS-SKILLS/internal/manifest"
)

// Resolver turns a manifest into its full activation payload.
type Resolver interface {
	Resolve(ctx context.Context, m manifest.Manifest) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, m manifest.Manifest) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, m manifest.Manifest) (string, error) {
	return f(ctx, m)
}

var (
	includeRe = regexp.MustCompile(`@include\(([^)]+)\)`)
	linkRe    = regexp.MustCompile(`\[[^\]]*\]\(([^)\s:]+\.md)\)`)
)

// FileResolver resolves payloads from the skill bundle on disk. The
// descriptor body is the base; progressive disclosure then expands it:
//
//   - @include(path) directives are replaced inline with the file's
//     content.
//   - Relative markdown links like [guide](reference.md) have their
//     target appended as a titled section after the body.
//
// Referenced files must live inside the bundle directory. A reference
// that escapes the bundle or points at a missing file fails the
// resolution.
type FileResolver struct{}

func (FileResolver) Resolve(ctx context.Context, m manifest.Manifest) (string, error) {
	body, err := manifest.ReadBody(m)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Inline includes first so linked documents inside an included file
	// are not chased; one level of expansion is intentional.
	var includeErr error
	body = includeRe.ReplaceAllStringFunc(body, func(match string) string {
		rel := strings.TrimSpace(includeRe.FindStringSubmatch(match)[1])
		content, err := readBundleFile(m.SourcePath, rel)
		if err != nil && includeErr == nil {
			includeErr = err
		}
		return content
	})
	if includeErr != nil {
		return "", includeErr
	}

	var sections []string
	seen := map[string]bool{}
	for _, sub := range linkRe.FindAllStringSubmatch(body, -1) {
		rel := sub[1]
		if seen[rel] {
			continue
		}
		seen[rel] = true
		content, err := readBundleFile(m.SourcePath, rel)
		if err != nil {
			return "", err
		}
		sections = append(sections, "\n\n---\n# "+rel+"\n\n"+strings.TrimSpace(content)+"\n")
	}

	payload := strings.TrimSpace(body)
	if len(sections) > 0 {
		payload += strings.Join(sections, "")
	}
	return payload, nil
}

// readBundleFile reads rel resolved against the bundle root, rejecting
// paths that escape it.
func readBundleFile(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", errors.Errorf("resource path %s must be relative", rel)
	}
	full := filepath.Join(root, rel)
	if cleaned, err := filepath.Rel(root, full); err != nil || strings.HasPrefix(cleaned, "..") {
		return "", errors.Errorf("resource path %s escapes the skill bundle", rel)
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read resource %s", rel)
	}
	return string(b), nil
}
