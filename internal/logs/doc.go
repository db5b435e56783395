// Package logs reads previewcache log files for the CLI: the trailing
// lines of a log and a polling follow mode that survives rotation.
package logs
