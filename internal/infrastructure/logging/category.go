package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	Message         Category = "Message"
	WebSocket       Category = "WebSocket"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	Tracing         Category = "Tracing"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Message
	Received SubCategory = "Received"
	Rejected SubCategory = "Rejected"

	// WebSocket
	Upgrade    SubCategory = "Upgrade"
	Connection SubCategory = "Connection"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	Instance     ExtraKey = "Instance"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Addr         ExtraKey = "Addr"
	Latency      ExtraKey = "Latency"
	RequestID    ExtraKey = "RequestId"
	SessionID    ExtraKey = "SessionId"
	Transport    ExtraKey = "Transport"
	ErrorMessage ExtraKey = "ErrorMessage"
)
