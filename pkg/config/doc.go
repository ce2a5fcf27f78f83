// Package config loads factengine's declarative YAML configuration
// with gopkg.in/yaml.v3 and maps its policy name onto
// authorization.DefaultPolicy. It does no command-line flag handling
// of its own.
package config
