package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// schema captures the front-matter fields this version understands.
// Everything else lands in Extra and is preserved on the manifest.
// Keywords, triggers and resources accept either a scalar or a list,
// so they are normalised separately.
type schema struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Keywords    any    `mapstructure:"keywords"`
	Triggers    any    `mapstructure:"triggers"`
	Resources   any    `mapstructure:"resources"`

	Extra map[string]any `mapstructure:",remain"`
}

// Parse reads the descriptor inside bundleDir and returns the parsed
// manifest. It only reads files and is safe to call concurrently on
// different bundles. Failures are reported as *Error.
func Parse(bundleDir string) (Manifest, error) {
	descriptor := filepath.Join(bundleDir, DescriptorName)
	raw, err := os.ReadFile(descriptor)
	if err != nil {
		return Manifest{}, &Error{Reason: MissingDescriptor, Path: bundleDir, Err: err}
	}

	front, body, err := SplitDocument(string(raw))
	if err != nil {
		return Manifest{}, &Error{Reason: MalformedFrontMatter, Path: bundleDir, Err: err}
	}

	var s schema
	if err := mapstructure.Decode(front, &s); err != nil {
		return Manifest{}, &Error{Reason: MalformedFrontMatter, Path: bundleDir, Err: err}
	}

	name := strings.TrimSpace(s.Name)
	if name == "" {
		return Manifest{}, &Error{Reason: EmptyName, Path: bundleDir}
	}

	description := strings.TrimSpace(s.Description)
	if description == "" {
		description = firstParagraph(body)
	}

	keywords := normalizeKeywords(s.Keywords)
	if len(keywords) == 0 {
		keywords = defaultKeywords(name, description)
	}

	resources := stringList(s.Resources)
	scripts := listScripts(bundleDir)
	for _, sc := range scripts {
		resources = append(resources, filepath.Join("scripts", sc))
	}
	resources = dedupeSorted(resources)

	kind := KindInstruction
	if len(scripts) > 0 {
		kind = KindToolkit
	}

	sum := sha256.Sum256(raw)

	return Manifest{
		ID:              filepath.Base(bundleDir),
		DisplayName:     name,
		Description:     description,
		Keywords:        keywords,
		TriggerExamples: triggerList(s.Triggers),
		ResourcePaths:   resources,
		Kind:            kind,
		Extensions:      s.Extra,
		SourcePath:      bundleDir,
		DescriptorPath:  descriptor,
		ContentHash:     hex.EncodeToString(sum[:]),
		LoadedAt:        time.Now(),
	}, nil
}

// SplitDocument separates the YAML front-matter from the markdown body.
// The descriptor must start with a "---" fence and close it; the
// front-matter must be valid YAML.
func SplitDocument(content string) (map[string]any, string, error) {
	s := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(s, "---") {
		return nil, "", errMissingFence
	}

	parts := strings.SplitN(s, "---", 3)
	if len(parts) < 3 {
		return nil, "", errUnclosedFence
	}

	var front map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &front); err != nil {
		return nil, "", err
	}
	if front == nil {
		front = map[string]any{}
	}

	body := strings.TrimPrefix(parts[2], "\n")
	return front, body, nil
}

var (
	errMissingFence  = yamlError("descriptor does not start with front-matter fence")
	errUnclosedFence = yamlError("front-matter fence is never closed")
)

type yamlError string

func (e yamlError) Error() string { return string(e) }

// ReadBody re-reads the descriptor and returns its body. Used by
// activation for progressive disclosure: the index never retains bodies.
func ReadBody(m Manifest) (string, error) {
	raw, err := os.ReadFile(m.DescriptorPath)
	if err != nil {
		return "", &Error{Reason: MissingDescriptor, Path: m.SourcePath, Err: err}
	}
	_, body, err := SplitDocument(string(raw))
	if err != nil {
		return "", &Error{Reason: MalformedFrontMatter, Path: m.SourcePath, Err: err}
	}
	return body, nil
}

// normalizeKeywords accepts a list or a comma-separated scalar.
func normalizeKeywords(v any) []string {
	var out []string
	for _, k := range stringList(v) {
		for _, part := range strings.Split(k, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return dedupeSorted(out)
}

func defaultKeywords(name, description string) []string {
	var out []string
	for _, w := range tokenizeWords(name + " " + description) {
		if len(w) >= 3 {
			out = append(out, w)
		}
	}
	return dedupeSorted(out)
}

// triggerList normalises the triggers field. Supports bare strings and
// {pattern: ..., description: ...} maps, preserving declared order.
func triggerList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		var out []string
		for _, item := range t {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				if p, ok := it["pattern"].(string); ok && strings.TrimSpace(p) != "" {
					out = append(out, strings.TrimSpace(p))
				}
			}
		}
		return out
	default:
		return nil
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return t
	default:
		return nil
	}
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// listScripts returns the names of executable files in the bundle's
// scripts/ directory. A file counts if it has an execute bit or a known
// script extension.
func listScripts(bundleDir string) []string {
	entries, err := os.ReadDir(filepath.Join(bundleDir, "scripts"))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		isScript := info.Mode()&0o111 != 0 ||
			ext == ".py" || ext == ".sh" || ext == ".js" || ext == ".ts" || ext == ".rb"
		if isScript {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// firstParagraph returns the first non-heading paragraph of body,
// used when the front-matter omits a description.
func firstParagraph(body string) string {
	for _, ln := range strings.Split(body, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		return ln
	}
	return ""
}
