// SPDX-License-Identifier: MPL-2.0

// Package config loads extforge settings.
//
// Files are written in CUE and validated against the embedded #Config
// schema before being merged into Viper. Viper supplies the defaults and
// EXTFORGE_* environment overrides, e.g. EXTFORGE_BUILD_MINIFY=true.
package config
