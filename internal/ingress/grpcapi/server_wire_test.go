package grpcapi

import (
	"context"
	"net"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	v1 "github.com/otaclient/iot-logging-proxy/api/otaclientiotlogging/v1"
	"github.com/otaclient/iot-logging-proxy/internal/ingress"
	"github.com/otaclient/iot-logging-proxy/internal/queue"
)

// TestServerServesOverTheWire exercises PutLog/Check through a real
// grpc.Server and grpc.ClientConn instead of calling the handler methods
// directly, proving the JSON Codec is actually registered for both ends of
// the connection: the message types here are plain structs, not
// proto.Message, so grpc's default codec would reject them at marshal time.
func TestServerServesOverTheWire(t *testing.T) {
	g := NewWithT(t)

	q := queue.New(8, nil)
	srv := New(ingress.NewAdmitter(q, []string{"main"}), zap.NewNop())

	gs := grpc.NewServer(grpc.ForceServerCodec(v1.Codec{}))
	v1.RegisterOTAClientIoTLoggingServiceServer(gs, srv)

	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(v1.Codec{})),
	)
	g.Expect(err).NotTo(HaveOccurred())
	defer conn.Close()

	client := v1.NewOTAClientIoTLoggingServiceClient(conn)

	checkResp, err := client.Check(context.Background(), &v1.HealthCheckRequest{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(checkResp.Status).To(Equal(v1.ServiceStatus_SERVING))

	putResp, err := client.PutLog(context.Background(), &v1.PutLogRequest{ECUID: "main", Message: "hello"})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(putResp.Code).To(Equal(v1.ErrorCode_NO_FAILURE))

	drained := q.DrainUpTo(1)
	g.Expect(drained).To(HaveLen(1))
	g.Expect(drained[0].Msg.Message).To(Equal("hello"))
}
