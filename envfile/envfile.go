// Copyright (c) 2025 BVK Chaitanya

// Package envfile loads environment variables from a KEY=VALUE file. It lets
// the daemon keep secrets, like bot tokens, out of the command line.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// UpdateEnv sets the variables defined in the named file. The file is looked
// up in the user's home directory unless the SearchCurrentDir option is used.
// A missing file is not an error.
func UpdateEnv(filename string, opts ...Option) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	var fopts options
	for _, v := range opts {
		if err := v.apply(&fopts); err != nil {
			return err
		}
	}

	fpaths, err := searchPaths(filename, &fopts)
	if err != nil {
		return err
	}
	for _, fpath := range fpaths {
		vars, err := ReadFile(fpath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		for _, kv := range vars {
			key := fopts.variableNamePrefix + kv[0]
			if len(os.Getenv(key)) != 0 && !fopts.overwriteIfExists {
				continue
			}
			if err := os.Setenv(key, kv[1]); err != nil {
				return fmt.Errorf("could not set variable %q: %w", key, err)
			}
		}
		return nil
	}
	return nil
}

func searchPaths(filename string, fopts *options) ([]string, error) {
	if !fopts.searchCurrentDirectory {
		u, err := user.Current()
		if err != nil {
			return nil, err
		}
		if len(u.HomeDir) == 0 {
			return nil, fmt.Errorf("could not determine current user's home directory")
		}
		return []string{filepath.Join(u.HomeDir, filename)}, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	fpaths := []string{filepath.Join(cwd, filename)}
	if fopts.scanParentDirectories {
		for last, dir := cwd, filepath.Dir(cwd); dir != last; last, dir = dir, filepath.Dir(dir) {
			fpaths = append(fpaths, filepath.Join(dir, filename))
		}
	}
	return fpaths, nil
}

// ReadFile parses an env file into key-value pairs in file order.
func ReadFile(fpath string) ([][2]string, error) {
	fp, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	vars, err := Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fpath, err)
	}
	return vars, nil
}

// Parse reads KEY=VALUE lines. Empty lines and lines starting with # are
// skipped. Values wrapped in matching single or double quotes are unquoted;
// no other escaping or expansion is performed.
func Parse(r io.Reader) ([][2]string, error) {
	var vars [][2]string
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable assignment on line %d: %w", i, os.ErrInvalid)
		}
		key = strings.TrimSpace(key)
		if !nameRe.MatchString(key) {
			return nil, fmt.Errorf("invalid environment variable name %q on line %d: %w", key, i, os.ErrInvalid)
		}
		value = strings.TrimSpace(value)
		if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
			value = value[1 : n-1]
		}
		vars = append(vars, [2]string{key, value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}
