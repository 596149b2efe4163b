// Copyright (c) 2025 BVK Chaitanya

package envfile

import (
	"fmt"
	"os"
	"regexp"
)

type options struct {
	variableNamePrefix string

	searchCurrentDirectory bool
	scanParentDirectories  bool

	overwriteIfExists bool
}

type Option interface {
	apply(*options) error
}

type optionFunc func(*options) error

func (v optionFunc) apply(opts *options) error {
	return v(opts)
}

var nameRe = regexp.MustCompile("^[a-zA-Z_][0-9a-zA-Z_]*$")

// SearchCurrentDir looks for the file in the current directory instead of the
// home directory, and also in the ancestor directories when searchParentDirs
// is true. The first file found is used.
func SearchCurrentDir(searchParentDirs bool) Option {
	return optionFunc(func(opts *options) error {
		opts.searchCurrentDirectory = true
		opts.scanParentDirectories = searchParentDirs
		return nil
	})
}

// VariableNamePrefix adds a prefix to every variable name from the file.
func VariableNamePrefix(prefix string) Option {
	return optionFunc(func(opts *options) error {
		if !nameRe.MatchString(prefix) {
			return fmt.Errorf("variable name prefix has invalid characters: %w", os.ErrInvalid)
		}
		opts.variableNamePrefix = prefix
		return nil
	})
}

// OverwriteIfExists replaces variables that already have a non-empty value.
func OverwriteIfExists(overwrite bool) Option {
	return optionFunc(func(opts *options) error {
		opts.overwriteIfExists = overwrite
		return nil
	})
}
