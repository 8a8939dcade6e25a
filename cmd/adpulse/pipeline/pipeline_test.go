package pipeline_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/adpulse/cmd/adpulse/pipeline"
	"github.com/papercomputeco/adpulse/pkg/config"
	"github.com/papercomputeco/adpulse/pkg/eventstream/kafka"
	"github.com/papercomputeco/adpulse/pkg/eventstream/nop"
	"github.com/papercomputeco/adpulse/pkg/logger"
)

// newCmd mirrors how the real commands register flags.
func newCmd(configDir string) (*cobra.Command, *string) {
	var model string
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", configDir, "")
	config.AddStringFlag(cmd, config.Flags, config.FlagGenModel, &model)
	return cmd, &model
}

var _ = Describe("LoadConfig", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	It("returns defaults without a config file", func() {
		cmd, _ := newCmd(configDir)
		cfg, err := pipeline.LoadConfig(cmd, []string{config.FlagGenModel})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Generator.Model).To(Equal("llama2"))
		Expect(cfg.Generator.Target).To(Equal("http://localhost:11434"))
	})

	It("prefers flags over the config file", func() {
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"),
			[]byte("[generator]\nmodel = \"mistral\"\n"), 0o600)).To(Succeed())

		cmd, _ := newCmd(configDir)
		cfg, err := pipeline.LoadConfig(cmd, []string{config.FlagGenModel})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Generator.Model).To(Equal("mistral"))

		cmd, _ = newCmd(configDir)
		Expect(cmd.Flags().Set("model", "phi3")).To(Succeed())
		cfg, err = pipeline.LoadConfig(cmd, []string{config.FlagGenModel})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Generator.Model).To(Equal("phi3"))
	})

	It("rejects an invalid configuration", func() {
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"),
			[]byte("[generator]\ntimeout = \"soon\"\n"), 0o600)).To(Succeed())

		cmd, _ := newCmd(configDir)
		_, err := pipeline.LoadConfig(cmd, nil)
		Expect(err).To(MatchError(ContainSubstring("generator.timeout")))
	})
})

var _ = Describe("NewPublisher", func() {
	It("defaults to the no-op publisher", func() {
		pub, err := pipeline.NewPublisher(config.NewDefaultConfig(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher", func() {
		cfg := config.NewDefaultConfig()
		cfg.Events.Provider = config.EventsProviderKafka
		cfg.Events.Brokers = []string{"localhost:9092"}

		pub, err := pipeline.NewPublisher(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects kafka without brokers", func() {
		cfg := config.NewDefaultConfig()
		cfg.Events.Provider = config.EventsProviderKafka

		_, err := pipeline.NewPublisher(cfg, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		cfg := config.NewDefaultConfig()
		cfg.Events.Provider = "carrier-pigeon"

		_, err := pipeline.NewPublisher(cfg, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown events provider")))
	})
})
