package classifier

import "strings"

// Env is the environment classifier expressions are evaluated against.
// Env 是分类表达式的求值环境。
type Env struct {
	Line string
}

// After reports whether phrase occurs after the first occurrence of marker.
// Usage: After("sshd", "Failed password")
func (e *Env) After(marker, phrase string) bool {
	return Rule{Marker: marker, Phrase: phrase}.Matches(e.Line)
}

// Contains checks if the line contains needle (case sensitive).
func (e *Env) Contains(needle string) bool {
	return strings.Contains(e.Line, needle)
}

// Log checks if the line contains needle (case insensitive).
// Usage: Log("failed")
func (e *Env) Log(needle string) bool {
	return strings.Contains(strings.ToLower(e.Line), strings.ToLower(needle))
}

// Fields splits the line on white space.
func (e *Env) Fields() []string {
	return strings.Fields(e.Line)
}

// Timestamp returns the embedded timestamp in milliseconds, or 0.
func (e *Env) Timestamp() int64 {
	return ExtractTimestampMillis(e.Line)
}
