// Command logprox is the on-device log-forwarding proxy: it accepts log
// and metric records from local ECUs over HTTP and gRPC, buffers them in
// a bounded queue, and uploads them in batches to the remote cloud log
// service using short-lived credentials minted via mTLS against the AWS
// IoT Core Credential Provider.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/integrii/flaggy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	v1 "github.com/otaclient/iot-logging-proxy/api/otaclientiotlogging/v1"
	"github.com/otaclient/iot-logging-proxy/internal/cli"
	"github.com/otaclient/iot-logging-proxy/internal/cloudlog"
	"github.com/otaclient/iot-logging-proxy/internal/creds"
	"github.com/otaclient/iot-logging-proxy/internal/identity"
	"github.com/otaclient/iot-logging-proxy/internal/ingress"
	"github.com/otaclient/iot-logging-proxy/internal/ingress/grpcapi"
	"github.com/otaclient/iot-logging-proxy/internal/ingress/httpapi"
	otlogger "github.com/otaclient/iot-logging-proxy/internal/logger"
	"github.com/otaclient/iot-logging-proxy/internal/metrics"
	"github.com/otaclient/iot-logging-proxy/internal/queue"
	"github.com/otaclient/iot-logging-proxy/internal/readiness"
	"github.com/otaclient/iot-logging-proxy/internal/uploader"
)

func main() {
	flaggy.SetName("logprox")
	flaggy.SetDescription("On-device log-forwarding proxy for ECU fleets")
	flaggy.DefaultParser.AdditionalHelpPrepend = "\nhttps://github.com/otaclient/iot-logging-proxy"
	flaggy.DefaultParser.ShowHelpOnUnexpected = true
	flaggy.DefaultParser.SetHelpTemplate(cli.HelpTemplate)

	opts := cli.NewGlobalOptions()

	run := flaggy.NewSubcommand("run")
	run.Description = "Start the log-forwarding proxy"
	flaggy.AttachSubcommand(run, 1)
	flaggy.Parse()

	log := cli.NewLogger(opts)
	defer log.Sync()

	if !run.Used {
		flaggy.ShowHelpAndExit("No command specified")
		return
	}

	if err := runProxy(log); err != nil {
		log.Fatal("logprox exited with error", zap.Error(err))
	}
}

func runProxy(baseLog *zap.Logger) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	id, err := identity.Load(cfg.GreengrassV1Config, cfg.GreengrassV2Config, cfg.AwsProfileInfo)
	if err != nil {
		return err
	}

	var allowed []string
	ecuInfo, err := ingress.LoadECUInfo(cfg.ECUInfoYAML)
	if err != nil {
		return err
	}
	if ecuInfo != nil {
		allowed = ecuInfo.AllowedECUs()
	}

	reg := metrics.New()
	q := queue.New(cfg.MaxLogsBacklog, reg.Registry)

	log := baseLog
	if cfg.SelfLogUpload {
		enqueueSelf := func(message string, timestampMs int64) bool {
			return q.TryEnqueue(queue.Record{
				GroupType:    queue.LOG,
				StreamSuffix: cfg.SelfLogStreamSuf,
				Msg:          queue.LogMessage{TimestampMs: timestampMs, Message: message},
			})
		}
		log = zap.New(zapcore.NewTee(baseLog.Core(), otlogger.NewQueueCore(level, cfg.SelfLogStreamSuf, enqueueSelf)))
	}
	ctx = otlogger.NewContext(ctx, log)

	credsProvider, err := creds.NewProvider(id, log)
	if err != nil {
		return err
	}
	credsProvider = credsProvider.WithMetrics(reg)

	cloudClient := cloudlog.New(id.Region, credsProvider, log)

	admitter := ingress.NewAdmitter(q, allowed)

	up := uploader.New(q, cloudClient, id, uploader.Config{
		MaxPerMerge: cfg.MaxLogsPerMerge,
		MaxPerPut:   maxLogsPerPut,
		Interval:    cfg.UploadInterval,
	}, log).WithMetrics(reg)

	errs := make(chan error, 3)
	go func() {
		errs <- up.Run(ctx)
	}()

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: buildHTTPHandler(admitter, reg, log),
	}
	go func() {
		log.Info("starting HTTP ingress", zap.String("addr", cfg.ListenAddr()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
			return
		}
		errs <- nil
	}()

	grpcSrv := grpc.NewServer(grpc.ForceServerCodec(v1.Codec{}))
	v1.RegisterOTAClientIoTLoggingServiceServer(grpcSrv, grpcapi.New(admitter, log))
	healthSrv := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	lis, err := net.Listen("tcp", cfg.GRPCListenAddr())
	if err != nil {
		return err
	}
	go func() {
		log.Info("starting gRPC ingress", zap.String("addr", cfg.GRPCListenAddr()))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errs <- err
			return
		}
		errs <- nil
	}()

	go readiness.Notify(ctx, 2*time.Second, log)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			log.Error("server exited unexpectedly", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()

	return nil
}

func buildHTTPHandler(admitter *ingress.Admitter, reg *metrics.Registry, log *zap.Logger) http.Handler {
	mux := httpapi.NewRouter(admitter, log)
	mux.Mount("/metrics", reg.Handler())
	return mux
}
