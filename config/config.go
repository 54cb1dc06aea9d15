// Package config loads the server.*, logging.* and meta.* configuration
// sections from JSON files and environment variables, in the layered order
// the original implementation used: shared file, user file, an optional
// EVREDIS_DEBUG development overlay, then environment variables.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/mod/semver"

	"github.com/rsms/evredis/logging"
	"github.com/rsms/go-log"
)

type ServerConfiguration struct {
	ListenOn      []string
	ReaderWorkers int
}

type MetaConfiguration struct {
	Version string
	Require string
}

type Root struct {
	Server  ServerConfiguration
	Logging logging.Configuration
	Meta    MetaConfiguration
}

func defaultRoot() Root {
	return Root{
		Server:  ServerConfiguration{ListenOn: []string{"localhost:6379"}, ReaderWorkers: 1},
		Logging: logging.DefaultConfiguration(),
		Meta:    MetaConfiguration{Require: "^0.1"},
	}
}

// Load merges, in increasing priority: a shared config file, a user config
// file, an EVREDIS_DEBUG development overlay, and EVREDIS_* environment
// variables. Missing optional files are not an error; a malformed one is.
func Load() (*Root, error) {
	godotenv.Load()

	root := defaultRoot()

	if err := mergeFile(&root, "/etc/evredis/config.json", false); err != nil {
		return nil, err
	}
	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeFile(&root, home+"/.config/evredis/config.json", false); err != nil {
			return nil, err
		}
	}

	if debug := os.Getenv("EVREDIS_DEBUG"); debug != "" {
		if err := mergeFile(&root, "config/evredis.json", true); err != nil {
			return nil, err
		}
		if truthy, _ := strconv.ParseBool(debug); truthy {
			if err := mergeFile(&root, "config/evredis-debug.json", true); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(&root)
	checkVersion(root.Meta)
	return &root, nil
}

// LoadEnv builds a Root from defaults plus environment variables only,
// skipping every file lookup. Used by tests and by callers that manage
// configuration files themselves.
func LoadEnv() *Root {
	root := defaultRoot()
	applyEnv(&root)
	return &root
}

func mergeFile(root *Root, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return err
	}
	return mergeJSON(root, data)
}

func mergeJSON(root *Root, data []byte) error {
	d := newDecoder(data)
	return d.object(map[string]func(){
		"server": func() {
			d.object(map[string]func(){
				"listen_on":      func() { root.Server.ListenOn = d.stringArray() },
				"reader_workers": func() { root.Server.ReaderWorkers = int(d.Int(64)) },
			})
		},
		"logging": func() {
			d.object(map[string]func(){
				"format":         func() { root.Logging.Format = logging.ParseFormat(d.Str()) },
				"level":          func() { root.Logging.Level = d.Str() },
				"filter":         func() { root.Logging.Filter = d.Str() },
				"with_module":    func() { root.Logging.WithModule = d.Bool() },
				"with_filename":  func() { root.Logging.WithFilename = d.Bool() },
				"forward_stdlog": func() { root.Logging.ForwardStdlog = d.Bool() },
				"stdlog_level":   func() { root.Logging.StdlogLevel = d.Str() },
			})
		},
		"meta": func() {
			d.object(map[string]func(){
				"version": func() { root.Meta.Version = d.Str() },
				"require": func() { root.Meta.Require = d.Str() },
			})
		},
	})
}

func applyEnv(root *Root) {
	if v := os.Getenv("EVREDIS_LISTEN_ON"); v != "" {
		root.Server.ListenOn = splitCommaSeparated(v)
	}
	if v := os.Getenv("EVREDIS_READER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			root.Server.ReaderWorkers = n
		}
	}
	if v := os.Getenv("EVREDIS_LOG_LEVEL"); v != "" {
		root.Logging.Level = v
	}
	if v := os.Getenv("EVREDIS_LOG_FORMAT"); v != "" {
		root.Logging.Format = logging.ParseFormat(v)
	}
	if v := os.Getenv("EVREDIS_META_VERSION"); v != "" {
		root.Meta.Version = v
	}
}

// checkVersion warns, but never fails startup, when meta.version doesn't
// satisfy meta.require. A missing version against a non-wildcard
// requirement is also just a warning.
func checkVersion(meta MetaConfiguration) {
	if meta.Require == "" || meta.Require == "*" {
		return
	}
	if meta.Version == "" {
		log.Warn("no meta.version configured; cannot check it against require %q", meta.Require)
		return
	}
	v := canonicalSemver(meta.Version)
	if !semver.IsValid(v) {
		log.Warn("meta.version %q is not a valid semantic version", meta.Version)
		return
	}
	req := canonicalSemver(strings.TrimPrefix(meta.Require, "^"))
	if !semver.IsValid(req) {
		log.Warn("meta.require %q is not a valid semantic version", meta.Require)
		return
	}
	// Caret range: at least req, within the same major (same minor for 0.x).
	satisfied := semver.Compare(v, req) >= 0
	if semver.Major(req) == "v0" {
		satisfied = satisfied && semver.MajorMinor(v) == semver.MajorMinor(req)
	} else {
		satisfied = satisfied && semver.Major(v) == semver.Major(req)
	}
	if !satisfied {
		log.Warn("configured meta.version %s does not satisfy require %s", meta.Version, meta.Require)
	}
}

func canonicalSemver(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
