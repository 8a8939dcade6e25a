package insight_test

import (
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/adpulse/pkg/insight"
)

const salesStream = `{"model":"llama2","response":"Sales ","done":false}
{"model":"llama2","response":"rose.","done":false}
{"model":"llama2","response":"","done":true,"done_reason":"stop","eval_count":12}
`

var _ = Describe("Decoder", func() {
	It("joins fragments with single spaces and keeps their own spacing", func() {
		text, err := insight.Decode(strings.NewReader("{\"response\":\"Sales \"}\n{\"response\":\"rose.\"}\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Sales  rose."))
	})

	It("returns an empty string for an empty stream", func() {
		text, err := insight.Decode(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal(""))
	})

	It("drops lines that are blank after trimming", func() {
		text, err := insight.Decode(strings.NewReader("\n  \n{\"response\":\"a\"}\r\n\t\n{\"response\":\"b\"}\n\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("a b"))
	})

	It("parses a final line that has no newline", func() {
		text, err := insight.Decode(strings.NewReader("{\"response\":\"a\"}\n{\"response\":\"b\"}"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("a b"))
	})

	It("gives the same text for every split of the stream", func() {
		whole, err := insight.Decode(strings.NewReader(salesStream))
		Expect(err).NotTo(HaveOccurred())
		Expect(whole).To(Equal("Sales  rose. "))

		for cut := 0; cut <= len(salesStream); cut++ {
			d := insight.NewDecoder()
			_, err := d.Write([]byte(salesStream[:cut]))
			Expect(err).NotTo(HaveOccurred())
			_, err = d.Write([]byte(salesStream[cut:]))
			Expect(err).NotTo(HaveOccurred())

			text, err := d.Close()
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(whole), "split at byte %d", cut)
		}
	})

	It("gives the same text when fed one byte at a time", func() {
		text, err := insight.Decode(iotest.OneByteReader(strings.NewReader(salesStream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Sales  rose. "))
	})

	It("keeps multi-byte characters split across chunks intact", func() {
		stream := "{\"response\":\"café ☕\"}\n"
		text, err := insight.Decode(iotest.OneByteReader(strings.NewReader(stream)))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("café ☕"))
	})

	It("reports fragments progressively and keeps the final metadata", func() {
		var seen []string
		d := insight.NewDecoder(insight.WithFragmentHandler(func(f insight.Fragment) {
			seen = append(seen, f.Response)
		}))

		_, err := d.Write([]byte("{\"response\":\"Sales \"}\n{\"resp"))
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]string{"Sales "}))
		Expect(d.Fragments()).To(Equal(1))

		_, err = d.Write([]byte("onse\":\"rose.\",\"done\":true,\"eval_count\":7}"))
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(1))

		text, err := d.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Sales  rose."))
		Expect(seen).To(Equal([]string{"Sales ", "rose."}))
		Expect(d.Last().Done).To(BeTrue())
		Expect(d.Last().EvalCount).To(Equal(7))
	})

	It("ignores malformed optional metadata", func() {
		text, err := insight.Decode(strings.NewReader(`{"response":"ok","eval_count":"many"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("ok"))
	})

	DescribeTable("fails the whole decode on a bad line",
		func(stream string, line int) {
			text, err := insight.Decode(strings.NewReader(stream))
			Expect(text).To(BeEmpty())

			var pe *insight.ParseError
			Expect(errors.As(err, &pe)).To(BeTrue(), "expected ParseError, got %v", err)
			Expect(pe.Line).To(Equal(line))
		},
		Entry("invalid JSON", "{\"response\":\"ok\"}\n{not json}\n{\"response\":\"late\"}\n", 2),
		Entry("missing response", "{\"response\":\"ok\"}\n{\"done\":true}\n", 2),
		Entry("null response", "{\"response\":null}\n", 1),
		Entry("non-string response", "{\"response\":42}\n", 1),
		Entry("JSON that is not an object", "[\"response\"]\n", 1),
		Entry("truncated final line", "{\"response\":\"ok\"}\n{\"response\":\"cut", 2),
		Entry("bad line after blank lines", "\n\n{\"response\":\"ok\"}\noops\n", 4),
		Entry("upper-case key", "{\"RESPONSE\":\"x\"}\n", 1),
		Entry("title-case key", "{\"response\":\"ok\"}\n{\"Response\":\"x\"}\n", 2),
		Entry("null line", "null\n", 1),
	)

	It("reads only the exact response key when a differently cased one is present", func() {
		text, err := insight.Decode(strings.NewReader("{\"response\":\"y\",\"Response\":\"x\"}\n{\"Response\":\"x\",\"response\":\"z\"}\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("y z"))
	})

	It("stays failed after a parse error", func() {
		d := insight.NewDecoder()
		_, err := d.Write([]byte("oops\n"))
		Expect(err).To(HaveOccurred())

		_, again := d.Write([]byte("{\"response\":\"ok\"}\n"))
		Expect(again).To(Equal(err))

		text, closeErr := d.Close()
		Expect(text).To(BeEmpty())
		Expect(closeErr).To(Equal(err))
	})

	It("turns a stream-error event into a StreamError and discards the buffer", func() {
		d := insight.NewDecoder()
		_, err := d.Write([]byte("{\"response\":\"partial\"}\n{\"resp"))
		Expect(err).NotTo(HaveOccurred())

		d.Fail(io.ErrUnexpectedEOF)

		text, err := d.Close()
		Expect(text).To(BeEmpty())

		var se *insight.StreamError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
	})

	It("keeps a TimeoutError as is", func() {
		d := insight.NewDecoder()
		d.Fail(&insight.TimeoutError{})

		_, err := d.Close()
		var te *insight.TimeoutError
		Expect(errors.As(err, &te)).To(BeTrue())
	})

	It("fails the decode when the reader fails", func() {
		r := io.MultiReader(strings.NewReader("{\"response\":\"a\"}\n"), iotest.ErrReader(errors.New("reset")))
		text, err := insight.Decode(r)
		Expect(text).To(BeEmpty())

		var se *insight.StreamError
		Expect(errors.As(err, &se)).To(BeTrue())
	})

	It("rejects writes after close", func() {
		d := insight.NewDecoder()
		_, err := d.Close()
		Expect(err).NotTo(HaveOccurred())

		_, err = d.Write([]byte("{\"response\":\"x\"}\n"))
		Expect(err).To(MatchError(insight.ErrDecoderClosed))
	})
})
