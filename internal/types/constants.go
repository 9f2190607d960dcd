package types

const (
	ContextUserKey      = "user"
	ContextLoggerKey    = "logger"
	ContextRequestIDKey = "request_id"
)
