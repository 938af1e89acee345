package script

import _ "embed"

// DefaultScript is the built-in word-count script used when no script file
// is given on the command line.
//
//go:embed default.js
var DefaultScript string
