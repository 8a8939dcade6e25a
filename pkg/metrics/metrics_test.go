package metrics_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/metrics"
)

func records(csv string) []*campaign.Record {
	recs, err := campaign.Decode(strings.NewReader(csv), campaign.FormatCSV)
	Expect(err).NotTo(HaveOccurred())
	return recs
}

var _ = Describe("Aggregate", func() {
	It("sums conversions and spend and divides them", func() {
		report, err := metrics.Aggregate(records("Conversions,Amount Spent\n5,$10.00\n3,$5.00\n"))
		Expect(err).NotTo(HaveOccurred())

		Expect(report.TotalConversions).To(Equal(int64(8)))
		Expect(report.TotalAmountSpent.StringFixed(2)).To(Equal("15.00"))
		Expect(report.AverageCostPerConversion.IsNaN()).To(BeFalse())
		Expect(report.AverageCostPerConversion.String()).To(Equal("1.875"))
	})

	It("keeps cents exact where float addition would drift", func() {
		report, err := metrics.Aggregate(records("Conversions,Amount Spent\n1,$0.10\n1,$0.20\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalAmountSpent.String()).To(Equal("0.3"))
	})

	It("ignores whitespace around conversions and amounts", func() {
		report, err := metrics.Aggregate(records("Conversions,Amount Spent\n 4 , $2.50 \n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalConversions).To(Equal(int64(4)))
		Expect(report.TotalAmountSpent.String()).To(Equal("2.5"))
	})

	It("returns the NaN sentinel when there are no conversions", func() {
		report, err := metrics.Aggregate(records("Conversions,Amount Spent\n0,$10.00\n0,$2.00\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalConversions).To(BeZero())
		Expect(report.TotalAmountSpent.String()).To(Equal("12"))
		Expect(report.AverageCostPerConversion.IsNaN()).To(BeTrue())
		Expect(math.IsNaN(report.AverageCostPerConversion.Float64())).To(BeTrue())
	})

	It("returns zeroes and NaN for no records", func() {
		report, err := metrics.Aggregate(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalConversions).To(BeZero())
		Expect(report.TotalAmountSpent.IsZero()).To(BeTrue())
		Expect(report.AverageCostPerConversion.IsNaN()).To(BeTrue())
	})

	It("passes other columns through untouched", func() {
		report, err := metrics.Aggregate(records("Campaign,Conversions,Clicks,Amount Spent\nSpring,2,n/a,$3.00\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalConversions).To(Equal(int64(2)))
	})

	DescribeTable("rejects values it cannot use",
		func(csv, field string, cause error) {
			_, err := metrics.Aggregate(records(csv))

			var ve *metrics.ValidationError
			Expect(errors.As(err, &ve)).To(BeTrue(), "expected ValidationError, got %v", err)
			Expect(ve.Field).To(Equal(field))
			Expect(errors.Is(err, cause)).To(BeTrue())
		},
		Entry("fractional conversions", "Conversions,Amount Spent\n2.5,$1.00\n", campaign.ColumnConversions, metrics.ErrNotInteger),
		Entry("non-numeric conversions", "Conversions,Amount Spent\nmany,$1.00\n", campaign.ColumnConversions, metrics.ErrNotInteger),
		Entry("empty conversions", "Conversions,Amount Spent\n,$1.00\n", campaign.ColumnConversions, metrics.ErrNotInteger),
		Entry("amount without dollar sign", "Conversions,Amount Spent\n1,10.00\n", campaign.ColumnAmountSpent, metrics.ErrMissingCurrency),
		Entry("amount with thousands separator", "Conversions,Amount Spent\n1,\"$1,000.00\"\n", campaign.ColumnAmountSpent, metrics.ErrNotDecimal),
		Entry("amount with two dollar signs", "Conversions,Amount Spent\n1,$$5\n", campaign.ColumnAmountSpent, metrics.ErrNotDecimal),
		Entry("amount in exponent form", "Conversions,Amount Spent\n1,$1e3\n", campaign.ColumnAmountSpent, metrics.ErrNotDecimal),
		Entry("missing conversions column", "Amount Spent\n$1.00\n", campaign.ColumnConversions, metrics.ErrMissingField),
		Entry("missing amount column", "Conversions\n1\n", campaign.ColumnAmountSpent, metrics.ErrMissingField),
	)

	It("reports the first bad row with its source line", func() {
		_, err := metrics.Aggregate(records("Conversions,Amount Spent\n1,$1.00\nx,$2.00\ny,$3.00\n"))

		var ve *metrics.ValidationError
		Expect(errors.As(err, &ve)).To(BeTrue())
		Expect(ve.Row).To(Equal(2))
		Expect(ve.Line).To(Equal(3))
		Expect(ve.Value).To(Equal("x"))
		Expect(err.Error()).To(Equal(`row 2 (line 3): invalid "Conversions" value "x": not an integer`))
	})

	It("detects conversion totals that overflow", func() {
		_, err := metrics.Aggregate(records("Conversions,Amount Spent\n9223372036854775807,$1\n1,$1\n"))
		Expect(errors.Is(err, metrics.ErrOverflow)).To(BeTrue())
	})
})

var _ = Describe("Report JSON", func() {
	It("encodes amounts as numbers", func() {
		report, err := metrics.Aggregate(records("Conversions,Amount Spent\n5,$10.00\n3,$5.00\n"))
		Expect(err).NotTo(HaveOccurred())

		b, err := json.Marshal(report)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(MatchJSON(`{"totalConversions":8,"totalAmountSpent":15,"averageCostPerConversion":1.875}`))
	})

	It("encodes the NaN sentinel as null", func() {
		report, err := metrics.Aggregate(nil)
		Expect(err).NotTo(HaveOccurred())

		b, err := json.Marshal(report)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(MatchJSON(`{"totalConversions":0,"totalAmountSpent":0,"averageCostPerConversion":null}`))
	})
})

var _ = Describe("Aggregator", func() {
	It("leaves totals unchanged when a record is rejected", func() {
		recs := records("Conversions,Amount Spent\n2,$4.00\n3,4.00\n")

		var agg metrics.Aggregator
		Expect(agg.Add(recs[0])).To(Succeed())
		Expect(agg.Add(recs[1])).To(HaveOccurred())

		Expect(agg.Records()).To(Equal(1))
		Expect(agg.Report().AverageCostPerConversion.String()).To(Equal("2"))
	})
})
