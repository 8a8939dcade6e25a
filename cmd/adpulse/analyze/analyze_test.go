package analyzecmder_test

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	analyzecmder "github.com/papercomputeco/adpulse/cmd/adpulse/analyze"
	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/metrics"
)

// newRoot wires the persistent flags the analyze command reads.
func newRoot(configDir string) *cobra.Command {
	root := &cobra.Command{Use: "adpulse", SilenceErrors: true}
	root.PersistentFlags().Bool("debug", false, "")
	root.PersistentFlags().String("config-dir", configDir, "")
	root.AddCommand(analyzecmder.NewAnalyzeCmd())
	return root
}

var _ = Describe("analyze command", func() {
	var (
		dir      string
		upstream *httptest.Server
		out      *bytes.Buffer
	)

	run := func(args ...string) error {
		root := newRoot(filepath.Join(dir, ".adpulse"))
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs(append([]string{"analyze", "--generator-target", upstream.URL}, args...))
		return root.Execute()
	}

	writeExport := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintln(w, `{"response":"**Spring**","done":false}`)
			fmt.Fprintln(w, `{"response":"leads.","done":true}`)
		}))
		DeferCleanup(upstream.Close)
	})

	It("prints the upload response body with --json", func() {
		path := writeExport("q1.csv", "Campaign,Conversions,Amount Spent\nSpring,5,$10.00\nSummer,3,$5.00\n")

		Expect(run(path, "--json")).To(Succeed())
		Expect(out.Bytes()).To(MatchJSON(`{
			"data": [
				{"Campaign":"Spring","Conversions":"5","Amount Spent":"$10.00"},
				{"Campaign":"Summer","Conversions":"3","Amount Spent":"$5.00"}
			],
			"kpis": {"totalConversions":8,"totalAmountSpent":15,"averageCostPerConversion":1.875},
			"insights": "**Spring** leads."
		}`))
	})

	It("renders a KPI panel without insights", func() {
		path := writeExport("q1.tsv", "Conversions\tAmount Spent\n0\t$7.25\n")

		Expect(run(path, "--no-insights")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Reading q1.tsv"))
		Expect(out.String()).To(ContainSubstring("Total amount spent"))
		Expect(out.String()).To(ContainSubstring("$7.25"))
		Expect(out.String()).To(ContainSubstring("n/a"))
		Expect(out.String()).NotTo(ContainSubstring("Spring"))
	})

	It("streams fragments as they arrive", func() {
		path := writeExport("q1.csv", "Conversions,Amount Spent\n1,$1.00\n")

		Expect(run(path, "--stream")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("**Spring** leads."))
		Expect(out.String()).To(ContainSubstring("Total conversions"))
	})

	It("streams with the same spacing as the joined insight text", func() {
		upstream.Close()
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintln(w, `{"response":"Spring"}`)
			fmt.Fprintln(w, `{"response":""}`)
			fmt.Fprintln(w, `{"response":"leads.","done":true}`)
		}))
		DeferCleanup(upstream.Close)
		path := writeExport("q1.csv", "Conversions,Amount Spent\n1,$1.00\n")

		Expect(run(path, "--stream")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("\n  Spring  leads.\n\n"))
	})

	It("reports degraded insights without failing", func() {
		upstream.Close()
		path := writeExport("q1.csv", "Conversions,Amount Spent\n1,$1.00\n")

		Expect(run(path)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Failed to generate insights."))
	})

	It("honours an explicit format", func() {
		path := writeExport("export.txt", "Conversions\tAmount Spent\n2\t$1.00\n")

		Expect(run(path, "--format", "tsv", "--json", "--no-insights")).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`"totalConversions": 2`))
		Expect(out.String()).To(ContainSubstring(`"insights": null`))
	})

	It("rejects unknown formats", func() {
		path := writeExport("q1.csv", "Conversions,Amount Spent\n1,$1.00\n")
		Expect(run(path, "--format", "xml")).To(MatchError(ContainSubstring("unsupported format")))
	})

	It("returns parse errors", func() {
		path := writeExport("bad.csv", "a,b\n1,2,3\n")

		err := run(path, "--json")
		var pe *campaign.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Line).To(Equal(2))
	})

	It("returns validation errors", func() {
		path := writeExport("bad.csv", "Conversions,Amount Spent\n1,1.00\n")

		err := run(path, "--json")
		var ve *metrics.ValidationError
		Expect(errors.As(err, &ve)).To(BeTrue())
		Expect(ve.Field).To(Equal("Amount Spent"))
	})

	It("fails on a missing file", func() {
		Expect(run(filepath.Join(dir, "nope.csv"))).To(MatchError(os.ErrNotExist))
	})
})
