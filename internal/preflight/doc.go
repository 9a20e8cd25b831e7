// Package preflight provides readiness checks for the directories and
// external binaries videotable depends on.
//
// The CLI "check" command runs RunAll and prints the results; encode and
// decode do not gate on it.
package preflight
