package log

// Transporter is a log output destination (stdout, console, files...).
type Transporter interface {
	Name() string

	// Write delivers one entry. Called from the logger's delivery goroutine only.
	Write(entry Entry) error

	// Close releases resources. Write must not be called afterwards.
	Close() error
}
