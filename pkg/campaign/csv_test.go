package campaign_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/adpulse/pkg/campaign"
)

var _ = Describe("CSVReader", func() {
	decode := func(input string, opts ...campaign.Option) ([]*campaign.Record, error) {
		r, err := campaign.NewCSVReader(strings.NewReader(input), opts...)
		if err != nil {
			return nil, err
		}
		return campaign.ReadAll(r)
	}

	It("reads rows in file order keyed by the header", func() {
		records, err := decode("Campaign,Conversions,Amount Spent\nSpring,5,$10.00\nSummer,3,$5.00\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))

		Expect(records[0].Row).To(Equal(1))
		Expect(records[0].Line).To(Equal(2))
		Expect(records[0].Columns()).To(Equal([]string{"Campaign", "Conversions", "Amount Spent"}))

		v, ok := records[1].Get(campaign.ColumnAmountSpent)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("$5.00"))

		_, ok = records[1].Get("Clicks")
		Expect(ok).To(BeFalse())
	})

	It("returns no records and no header for an empty input", func() {
		r, err := campaign.NewCSVReader(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Header()).To(BeNil())

		rec, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(BeNil())
	})

	It("returns a header with zero records for a header-only file", func() {
		records, err := decode("Conversions,Amount Spent\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
		Expect(records).NotTo(BeNil())
	})

	It("skips a UTF-8 byte-order mark", func() {
		records, err := decode("\xEF\xBB\xBFConversions,Amount Spent\n1,$2.00\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(records[0].Columns()[0]).To(Equal("Conversions"))
	})

	It("keeps quoted delimiters and newlines inside a field", func() {
		records, err := decode("Campaign,Conversions\n\"Sale, big\nfinale\",4\nNext,1\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))

		v, _ := records[0].Get("Campaign")
		Expect(v).To(Equal("Sale, big\nfinale"))
		Expect(records[1].Line).To(Equal(4))
	})

	It("reads tab-separated input", func() {
		records, err := decode("Conversions\tAmount Spent\n2\t$1,000.00\n", campaign.WithDelimiter('\t'))
		Expect(err).NotTo(HaveOccurred())

		v, _ := records[0].Get(campaign.ColumnAmountSpent)
		Expect(v).To(Equal("$1,000.00"))
	})

	It("produces the same records when read one byte at a time", func() {
		input := "Campaign,Conversions\n\"A \"\"quoted\"\" name\",4\nB,2\n"
		whole, err := decode(input)
		Expect(err).NotTo(HaveOccurred())

		r, err := campaign.NewCSVReader(iotest.OneByteReader(strings.NewReader(input)))
		Expect(err).NotTo(HaveOccurred())
		split, err := campaign.ReadAll(r)
		Expect(err).NotTo(HaveOccurred())

		Expect(split).To(HaveLen(len(whole)))
		for i := range whole {
			Expect(split[i].Values()).To(Equal(whole[i].Values()))
		}
	})

	Context("malformed framing", func() {
		expectParseError := func(err error, line int, cause error) {
			var pe *campaign.ParseError
			Expect(errors.As(err, &pe)).To(BeTrue(), "expected ParseError, got %v", err)
			Expect(pe.Line).To(Equal(line))
			if cause != nil {
				Expect(errors.Is(err, cause)).To(BeTrue())
			}
		}

		It("rejects a row with too many fields", func() {
			_, err := decode("Conversions,Amount Spent\n1,$2.00\n3,$4.00,extra\n")
			expectParseError(err, 3, campaign.ErrFieldCount)
			Expect(err.Error()).To(ContainSubstring("got 3, header has 2"))
		})

		It("rejects a row with too few fields", func() {
			_, err := decode("Conversions,Amount Spent\n1\n")
			expectParseError(err, 2, campaign.ErrFieldCount)
		})

		It("rejects an unterminated quoted field", func() {
			_, err := decode("Campaign,Conversions\n\"open,1\n")
			var pe *campaign.ParseError
			Expect(errors.As(err, &pe)).To(BeTrue())
		})

		It("rejects a bare quote", func() {
			_, err := decode("Campaign,Conversions\nab\"c,1\n")
			expectParseError(err, 2, nil)
		})

		It("rejects duplicate header names", func() {
			_, err := decode("Conversions,Conversions\n1,2\n")
			expectParseError(err, 1, campaign.ErrDuplicateHeader)
		})

		It("rejects blank header names", func() {
			_, err := decode("Conversions,,Amount Spent\n1,2,3\n")
			expectParseError(err, 1, campaign.ErrEmptyHeader)
		})

		It("keeps failing after the first error", func() {
			r, err := campaign.NewCSVReader(strings.NewReader("A,B\n1\n2,3\n"))
			Expect(err).NotTo(HaveOccurred())

			_, first := r.Next()
			Expect(first).To(HaveOccurred())
			_, second := r.Next()
			Expect(second).To(Equal(first))
		})
	})
})

var _ = Describe("Record", func() {
	It("marshals to a JSON object in header order", func() {
		rec := campaign.NewRecord(1, 2,
			[]string{"Zeta", "Alpha", "Amount Spent"},
			[]string{"z", "<a>", "$1.00"},
		)

		b, err := rec.MarshalJSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(`{"Zeta":"z","Alpha":"<a>","Amount Spent":"$1.00"}`))

		var back map[string]string
		Expect(json.Unmarshal(b, &back)).To(Succeed())
		Expect(back).To(Equal(rec.Map()))
	})
})

var _ = Describe("FormatFor", func() {
	DescribeTable("picks a format from the extension",
		func(name string, want campaign.Format, supported bool) {
			Expect(campaign.FormatFor(name)).To(Equal(want))
			Expect(campaign.IsSupported(name)).To(Equal(supported))
		},
		Entry("csv", "q1.csv", campaign.FormatCSV, true),
		Entry("upper-case tsv", "Q1.TSV", campaign.FormatTSV, true),
		Entry("xlsx", "export.xlsx", campaign.FormatXLSX, true),
		Entry("no extension", "upload", campaign.FormatCSV, false),
	)
})
