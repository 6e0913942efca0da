// Package v1 defines the wire messages and service descriptor for the
// OTAClientIoTLoggingService gRPC API. The .proto toolchain is out of
// scope for this system (the wire shapes are given schemas), so the
// messages are hand-written Go structs carried over a JSON codec rather
// than generated protobuf bindings.
package v1

// LogType selects which remote log group a PutLogRequest is destined for.
type LogType int32

const (
	LogType_LOG     LogType = 0
	LogType_METRICS LogType = 1
)

// LogLevel is accepted and forwarded opaquely; it is not used for routing
// or filtering.
type LogLevel int32

const (
	LogLevel_UNSPECIFIC LogLevel = iota
	LogLevel_DEBUG
	LogLevel_INFO
	LogLevel_WARN
	LogLevel_ERROR
	LogLevel_FATAL
)

// ErrorCode is the PutLog outcome code.
type ErrorCode int32

const (
	ErrorCode_UNSPECIFIC       ErrorCode = iota
	ErrorCode_NO_FAILURE
	ErrorCode_SERVER_QUEUE_FULL
	ErrorCode_NOT_ALLOWED_ECU_ID
	ErrorCode_NO_MESSAGE
)

// ServiceStatus mirrors grpc.health's serving status, scoped to this
// service's own Check RPC.
type ServiceStatus int32

const (
	ServiceStatus_UNKNOWN         ServiceStatus = iota
	ServiceStatus_SERVING
	ServiceStatus_NOT_SERVING
	ServiceStatus_SERVICE_UNKNOWN
)

// HealthCheckRequest is the Check RPC request; it carries no fields.
type HealthCheckRequest struct{}

// HealthCheckResponse is the Check RPC response.
type HealthCheckResponse struct {
	Status ServiceStatus `json:"status"`
}

// PutLogRequest is the PutLog RPC request.
type PutLogRequest struct {
	ECUID     string   `json:"ecu_id"`
	LogType   LogType  `json:"log_type"`
	Timestamp int64    `json:"timestamp"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
}

// PutLogResponse is the PutLog RPC response.
type PutLogResponse struct {
	Code ErrorCode `json:"code"`
}
