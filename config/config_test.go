package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rmiatl/leadcall-proxy/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tempDir)
	})

	writeConfig := func(content string) {
		configPath := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(configPath, []byte(content), 0644)).To(Succeed())
		Expect(os.Chdir(tempDir)).To(Succeed())
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				writeConfig(`
server:
  address: ":9090"
  environment: "staging"

logging:
  level: "debug"

health_check:
  interval: "10s"

auth:
  key: "secret"
  admin_networks: ["10.0.0.0/8", "192.168.1.5"]

proxy:
  max_request_error_count: 3
  reset_pause_minutes: 5
  pass_thru: true
  fraud_score:
    url: "https://ipqs.example.com/api/json/phone/KEY"
    split_percent: 75
    max_fraud_score: 50
  lead_delivery:
    url: "https://leads.example.com/flows/abc"
    timeout_seconds: 10

data_queue:
  url: "https://queue.example.com/api"
  auth_key: "queue-key"
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":9090"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvStaging))
				Expect(cfg.Auth.Key).To(Equal("secret"))
			})

			It("should parse the breaker settings", func() {
				cfg, _ := config.Load()
				Expect(cfg.Proxy.MaxRequestErrorCount).To(Equal(3))
				Expect(cfg.ResetPause()).To(Equal(5 * time.Minute))
				Expect(cfg.Proxy.PassThru).To(BeTrue())
			})

			It("should merge destination settings with defaults", func() {
				cfg, _ := config.Load()
				Expect(cfg.Proxy.FraudScore.URL).To(Equal("https://ipqs.example.com/api/json/phone/KEY"))
				Expect(cfg.Proxy.FraudScore.SplitPercent).To(Equal(75))
				Expect(cfg.Proxy.FraudScore.MaxFraudScore).To(Equal(50))
				Expect(cfg.Proxy.FraudScore.DataTable).To(Equal("ipqs"))
				Expect(cfg.Proxy.LeadDelivery.TimeoutSeconds).To(Equal(10))
				Expect(cfg.Proxy.LeadDelivery.Method).To(Equal("POST"))
			})

			It("should parse the admin networks", func() {
				cfg, _ := config.Load()
				nets, err := cfg.AdminNetworks()
				Expect(err).NotTo(HaveOccurred())
				Expect(nets).To(HaveLen(2))
				Expect(nets[0].String()).To(Equal("10.0.0.0/8"))
				Expect(nets[1].String()).To(Equal("192.168.1.5/32"))
			})

			It("should parse health check interval", func() {
				cfg, _ := config.Load()
				Expect(cfg.HealthCheckInterval()).To(Equal(10 * time.Second))
				Expect(cfg.DataQueueTimeout()).To(Equal(30 * time.Second))
			})
		})

		Context("with environment variables", func() {
			BeforeEach(func() {
				Expect(os.Chdir(tempDir)).To(Succeed())
			})

			It("should use defaults when config file missing", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Proxy.MaxRequestErrorCount).To(Equal(10))
				Expect(cfg.ResetPause()).To(Equal(15 * time.Minute))
				Expect(cfg.CleanupInterval()).To(Equal(time.Minute))
			})

			It("should let the environment override the file", func() {
				Expect(os.Setenv("PROXY_FRAUD_SCORE_SPLIT_PERCENT", "20")).To(Succeed())
				Expect(os.Setenv("AUTH_KEY", "from-env")).To(Succeed())
				DeferCleanup(os.Unsetenv, "PROXY_FRAUD_SCORE_SPLIT_PERCENT")
				DeferCleanup(os.Unsetenv, "AUTH_KEY")

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Proxy.FraudScore.SplitPercent).To(Equal(20))
				Expect(cfg.Auth.Key).To(Equal("from-env"))
			})
		})

		Context("with invalid values", func() {
			It("should reject a split above 100", func() {
				writeConfig(`
proxy:
  fraud_score:
    split_percent: 150
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject a destination url without scheme", func() {
				writeConfig(`
proxy:
  lead_delivery:
    url: "leads.example.com/flows"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject a malformed admin network", func() {
				writeConfig(`
auth:
  admin_networks: ["not-a-network"]
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject an unknown environment", func() {
				writeConfig(`
server:
  environment: "qa"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
