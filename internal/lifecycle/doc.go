// Package lifecycle drives the postfix control program: status probe,
// start/stop/reload, configuration check, and version probing. It keeps
// no state of its own; every answer comes from a subcommand's exit
// status.
package lifecycle
