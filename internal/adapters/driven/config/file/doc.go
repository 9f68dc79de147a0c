// Package file stores fintweet settings as TOML in the config directory,
// config.toml under ~/.fintweet unless --config-dir says otherwise.
package file
