package core

// Logger is any leveled logger the app reports through.
// Implementations may inspect args for well-known types (eg. an
// authenticated principal) to enrich their reports.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
