// Package console registers the CLI commands on the root command. Import it
// for its side effects.
package console
