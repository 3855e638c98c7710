package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DotEnvPath returns the absolute path to the dotenv file
// (~/.as-skills/.env).
func DotEnvPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".env"), nil
}

// LoadDotEnv reads ~/.as-skills/.env and returns key/value pairs.
//
// Parsing rules:
// - Lines starting with '#' are ignored.
// - Empty lines are ignored.
// - Lines must be of form KEY=VALUE.
// - Whitespace around KEY is trimmed.
// - VALUE is taken as-is (no quote parsing).
func LoadDotEnv() (map[string]string, error) {
	p, err := DotEnvPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "cannot open dotenv file %s", p)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		v := line[i+1:]
		if k == "" {
			continue
		}
		out[k] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read dotenv file %s", p)
	}
	return out, nil
}

// GetConfigValue returns the effective value for key, using process
// environment variables first and falling back to ~/.as-skills/.env.
func GetConfigValue(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	dotenv, err := LoadDotEnv()
	if err != nil {
		return "", err
	}
	return dotenv[key], nil
}

// EnsureDotEnvTemplate creates ~/.as-skills/.env if it does not
// already exist.
//
// The template contains configuration keys with empty values so users
// can fill them in when they want semantic matching.
func EnsureDotEnvTemplate() error {
	p, err := DotEnvPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot stat dotenv file %s", p)
	}

	body := "" +
		"ASSKILLS_EMBEDDINGS_PROVIDER=\n" +
		"ASSKILLS_EMBEDDINGS_MODEL=\n" +
		"ASSKILLS_EMBEDDINGS_API_KEY=\n" +
		"ASSKILLS_EMBEDDINGS_BASE_URL=\n"

	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		return errors.Wrapf(err, "cannot write dotenv template %s", p)
	}
	return nil
}
