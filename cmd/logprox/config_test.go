package main

import (
	"os"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestLoadConfigDefaults(t *testing.T) {
	g := NewWithT(t)

	for _, key := range []string{
		"GREENGRASS_V1_CONFIG", "GREENGRASS_V2_CONFIG", "AWS_PROFILE_INFO",
		"LISTEN_ADDRESS", "LISTEN_PORT", "GRPC_PORT",
		"MAX_LOGS_BACKLOG", "MAX_LOGS_PER_MERGE", "UPLOAD_INTERVAL",
		"ECU_INFO_YAML", "UPLOAD_LOGGING_SERVER_LOGS", "SERVER_LOGSTREAM_SUFFIX",
		"LOG_LEVEL",
	} {
		g.Expect(os.Unsetenv(key)).To(Succeed())
	}

	cfg, err := LoadConfig()
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(cfg.GreengrassV1Config).To(Equal("/greengrass/config/config.json"))
	g.Expect(cfg.GreengrassV2Config).To(Equal("/greengrass/v2/init_config/config.yaml"))
	g.Expect(cfg.ListenPort).To(Equal(8083))
	g.Expect(cfg.GRPCPort).To(Equal(8084))
	g.Expect(cfg.MaxLogsBacklog).To(Equal(4096))
	g.Expect(cfg.MaxLogsPerMerge).To(Equal(512))
	g.Expect(cfg.UploadInterval).To(Equal(60 * time.Second))
	g.Expect(cfg.SelfLogUpload).To(BeFalse())
	g.Expect(cfg.ListenAddr()).To(Equal("0.0.0.0:8083"))
	g.Expect(cfg.GRPCListenAddr()).To(Equal("0.0.0.0:8084"))
}

func TestLoadConfigOverrides(t *testing.T) {
	g := NewWithT(t)

	t.Setenv("LISTEN_PORT", "9000")
	t.Setenv("MAX_LOGS_BACKLOG", "16")
	t.Setenv("UPLOAD_LOGGING_SERVER_LOGS", "true")
	t.Setenv("SERVER_LOGSTREAM_SUFFIX", "proxy-self")

	cfg, err := LoadConfig()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.ListenPort).To(Equal(9000))
	g.Expect(cfg.MaxLogsBacklog).To(Equal(16))
	g.Expect(cfg.SelfLogUpload).To(BeTrue())
	g.Expect(cfg.SelfLogStreamSuf).To(Equal("proxy-self"))
}
