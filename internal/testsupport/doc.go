// Package testsupport provides shared helpers for package tests: temp-dir
// configs, file fixtures, and a scriptable fake invocation runner.
package testsupport
