package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Brownie44l1/impact-api/internal/cli"
	"github.com/Brownie44l1/impact-api/internal/config"
)

var _ = Describe("Root command", func() {
	It("prints the version", func() {
		cmd := cli.NewRootCommand()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{"version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(Equal(cli.Version + "\n"))
	})

	It("fails on a missing config file", func() {
		cmd := cli.NewRootCommand()
		cmd.SetArgs([]string{"--config", filepath.Join(GinkgoT().TempDir(), "missing.yaml")})

		Expect(cmd.Execute()).To(MatchError(ContainSubstring("failed to load config")))
	})

	It("registers the configuration flags", func() {
		cmd := cli.NewRootCommand()
		for _, name := range []string{"config", "address", "log-level", "model", "scaler"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})

var _ = Describe("Run", func() {
	newConfig := func(addr string) *config.Config {
		dir := GinkgoT().TempDir()
		return &config.Config{
			Server:  config.ServerConfig{Address: addr, Environment: config.EnvDev},
			Logging: config.LoggingConfig{Level: config.LogLevelError},
			Artifacts: config.ArtifactsConfig{
				ModelPath:  filepath.Join(dir, "missing.onnx"),
				ScalerPath: filepath.Join(dir, "missing.json"),
			},
			Cache: config.CacheConfig{Enabled: true, TTL: "1m", CleanupInterval: "1m", MaxEntries: 100},
		}
	}

	It("serves without artifacts and stops on cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- cli.Run(ctx, newConfig("127.0.0.1:19995"))
		}()

		var health map[string]interface{}
		Eventually(func() error {
			resp, err := http.Get("http://127.0.0.1:19995/health")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return json.NewDecoder(resp.Body).Decode(&health)
		}).WithTimeout(3 * time.Second).Should(Succeed())

		Expect(health["status"]).To(Equal("degraded"))
		Expect(health["model_loaded"]).To(BeFalse())

		resp, err := http.Post("http://127.0.0.1:19995/predict_impact", "application/json", bytes.NewBufferString(`{}`))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

		cancel()
		Eventually(done).WithTimeout(6 * time.Second).Should(Receive(BeNil()))
	})

	It("rejects an invalid address", func() {
		Expect(cli.Run(context.Background(), newConfig("not an address"))).To(HaveOccurred())
	})
})
