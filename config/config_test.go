package config

import (
	"testing"

	"github.com/rsms/evredis/logging"
	"github.com/rsms/go-testutil"
)

func TestLoadEnvDefaults(t *testing.T) {
	assert := testutil.NewAssert(t)
	root := LoadEnv()
	assert.Eq("default listen address", root.Server.ListenOn, []string{"localhost:6379"})
	assert.Eq("default reader workers", root.Server.ReaderWorkers, 1)
	assert.Eq("default log level", root.Logging.Level, "warn")
	assert.Eq("default require range", root.Meta.Require, "^0.1")
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	assert := testutil.NewAssert(t)
	t.Setenv("EVREDIS_LISTEN_ON", "localhost:7000, localhost:7001")
	t.Setenv("EVREDIS_READER_WORKERS", "4")
	t.Setenv("EVREDIS_LOG_LEVEL", "debug")

	root := LoadEnv()
	assert.Eq("listen_on split on commas", root.Server.ListenOn,
		[]string{"localhost:7000", "localhost:7001"})
	assert.Eq("reader workers overridden", root.Server.ReaderWorkers, 4)
	assert.Eq("log level overridden", root.Logging.Level, "debug")
}

func TestMergeJSONFillsNamedFields(t *testing.T) {
	assert := testutil.NewAssert(t)
	root := defaultRoot()
	data := []byte(`{
		"server": {"listen_on": ["0.0.0.0:6379"], "reader_workers": 3},
		"logging": {"level": "info", "format": "json"},
		"meta": {"version": "0.1.2", "require": "^0.1"},
		"unused_top_level_key": {"nested": [1, 2, 3]}
	}`)
	err := mergeJSON(&root, data)
	assert.Ok("no error", err == nil)
	assert.Eq("listen_on", root.Server.ListenOn, []string{"0.0.0.0:6379"})
	assert.Eq("reader_workers", root.Server.ReaderWorkers, 3)
	assert.Eq("log level", root.Logging.Level, "info")
	assert.Eq("log format", root.Logging.Format, logging.FormatJSON)
	assert.Eq("meta version", root.Meta.Version, "0.1.2")
}

func TestCheckVersionDoesNotPanicOnMissingOrInvalidVersions(t *testing.T) {
	checkVersion(MetaConfiguration{Require: "*"})
	checkVersion(MetaConfiguration{Require: "^0.1"})
	checkVersion(MetaConfiguration{Require: "^0.1", Version: "not-a-version"})
	checkVersion(MetaConfiguration{Require: "^0.1", Version: "0.1.0"})
	checkVersion(MetaConfiguration{Require: "^0.1", Version: "0.2.0"})
}
