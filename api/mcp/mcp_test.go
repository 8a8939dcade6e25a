package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/adpulse/api/mcp"
	adpulselogger "github.com/papercomputeco/adpulse/pkg/logger"
	"github.com/papercomputeco/adpulse/pkg/report"
)

var _ = Describe("MCP Server", func() {
	var (
		server   *mcp.Server
		analyzer *report.Analyzer
	)

	BeforeEach(func() {
		analyzer = report.NewAnalyzer(report.Config{})

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Analyzer: analyzer,
			Logger:   adpulselogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when analyzer is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Logger: adpulselogger.Nop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("analyzer is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Analyzer: analyzer,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("allows a noop server without dependencies", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("creates a server with valid config", func() {
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			handler := server.Handler()
			Expect(handler).NotTo(BeNil())
		})
	})
})
