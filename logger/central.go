package logger

import "io"

// maximum number of entries in the central log
const maxCentral = 256

// only one central log for the whole application
var central = NewLogger(maxCentral)

// Log adds an entry to the central log.
func Log(perm Permission, tag string, detail any) {
	central.Log(perm, tag, detail)
}

// Logf adds a formatted entry to the central log.
func Logf(perm Permission, tag string, format string, args ...any) {
	central.Logf(perm, tag, format, args...)
}

// Clear removes all entries from the central log.
func Clear() {
	central.Clear()
}

// Write writes the central log to output.
func Write(output io.Writer) bool {
	return central.Write(output)
}

// Tail writes the last number entries of the central log to output.
func Tail(output io.Writer, number int) {
	central.Tail(output, number)
}

// SetEcho copies new central log entries to output.
func SetEcho(output io.Writer) {
	central.SetEcho(output)
}

// Entries returns a copy of the central log.
func Entries() []Entry {
	return central.Entries()
}
