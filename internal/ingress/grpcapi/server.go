// Package grpcapi implements the gRPC front end: the Check and PutLog
// RPCs of OTAClientIoTLoggingService.
package grpcapi

import (
	"context"

	"go.uber.org/zap"

	v1 "github.com/otaclient/iot-logging-proxy/api/otaclientiotlogging/v1"
	"github.com/otaclient/iot-logging-proxy/internal/ingress"
	"github.com/otaclient/iot-logging-proxy/internal/queue"
)

// Server implements v1.Server over the shared ingress.Admitter.
type Server struct {
	admitter *ingress.Admitter
	logger   *zap.Logger
}

// New builds a Server.
func New(admitter *ingress.Admitter, logger *zap.Logger) *Server {
	return &Server{admitter: admitter, logger: logger}
}

// Check reports SERVING unconditionally while the process is running.
func (s *Server) Check(ctx context.Context, req *v1.HealthCheckRequest) (*v1.HealthCheckResponse, error) {
	return &v1.HealthCheckResponse{Status: v1.ServiceStatus_SERVING}, nil
}

// PutLog admits and enqueues a record, per the table in spec §4.G.
func (s *Server) PutLog(ctx context.Context, req *v1.PutLogRequest) (*v1.PutLogResponse, error) {
	groupType := queue.LOG
	if req.LogType == v1.LogType_METRICS {
		groupType = queue.METRICS
	}

	result := s.admitter.Admit(groupType, req.ECUID, req.Message, req.Timestamp)
	switch result {
	case ingress.Admitted:
		return &v1.PutLogResponse{Code: v1.ErrorCode_NO_FAILURE}, nil
	case ingress.RejectedEmptyMessage:
		return &v1.PutLogResponse{Code: v1.ErrorCode_NO_MESSAGE}, nil
	case ingress.RejectedNotAllowed:
		return &v1.PutLogResponse{Code: v1.ErrorCode_NOT_ALLOWED_ECU_ID}, nil
	case ingress.RejectedQueueFull:
		return &v1.PutLogResponse{Code: v1.ErrorCode_SERVER_QUEUE_FULL}, nil
	default:
		return &v1.PutLogResponse{Code: v1.ErrorCode_UNSPECIFIC}, nil
	}
}
