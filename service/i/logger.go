package i

// Logger is the leveled logger shared by every component.
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}
