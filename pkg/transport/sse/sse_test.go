package sse_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/easyops/reactstream/pkg/stream"
	"github.com/easyops/reactstream/pkg/transport/sse"
)

// flushRecorder 记录刷新次数的写入目标
type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() error {
	f.flushes++
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

var _ = Describe("Encode", func() {
	It("encodes a start event", func() {
		frame, err := sse.Encode(stream.NewStartEvent("t-1", "gpt-4.1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame)).To(Equal("event: start\ndata: {\"thread_id\":\"t-1\",\"model\":\"gpt-4.1\"}\n\n"))
	})

	It("encodes a tagged content event", func() {
		frame, err := sse.Encode(stream.NewContentEvent("**Thought:** hi", stream.SectionThought))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame)).To(Equal(
			"event: content\ndata: {\"content\":\"**Thought:** hi\",\"section\":\"thought\",\"type\":\"thought\"}\n\n"))
	})

	It("encodes untagged content with the plain type", func() {
		frame, err := sse.Encode(stream.NewContentEvent("hello", stream.SectionNone))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame)).To(Equal("event: content\ndata: {\"content\":\"hello\",\"type\":\"content\"}\n\n"))
	})

	It("keeps newlines inside a single data line", func() {
		frame, err := sse.Encode(stream.NewTableEvent("| a |\n| b |\n", stream.SectionObservation))
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(string(frame), "\n")).To(Equal(3))
		Expect(string(frame)).To(ContainSubstring(`"is_table":true`))
	})

	It("encodes done with and without a note", func() {
		frame, err := sse.Encode(stream.NewDoneEvent(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame)).To(Equal("event: done\ndata: {\"status\":\"completed\"}\n\n"))

		frame, err = sse.Encode(stream.NewDoneEvent(stream.NoteClientDisconnected))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame)).To(ContainSubstring(`"note":"client_disconnected"`))
	})

	It("encodes error events", func() {
		frame, err := sse.Encode(stream.NewErrorEvent(errors.New("boom")))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame)).To(Equal("event: error\ndata: {\"error\":\"boom\"}\n\n"))
	})
})

var _ = Describe("Writer", func() {
	var (
		dst *flushRecorder
		w   *sse.Writer
		ctx context.Context
	)

	BeforeEach(func() {
		dst = &flushRecorder{}
		w = sse.NewWriter(dst)
		ctx = context.Background()
	})

	It("writes and flushes one frame per event", func() {
		Expect(w.Emit(ctx, stream.NewStartEvent("t", "m"))).To(Succeed())
		Expect(w.Emit(ctx, stream.NewDoneEvent(""))).To(Succeed())

		Expect(dst.flushes).To(Equal(2))
		Expect(strings.Count(dst.String(), "\n\n")).To(Equal(2))
	})

	It("rejects writes after close", func() {
		Expect(w.Close()).To(Succeed())
		Expect(w.Emit(ctx, stream.NewDoneEvent(""))).To(MatchError(sse.ErrWriterClosed))
	})

	It("rejects writes after the context is done", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		Expect(w.Emit(cctx, stream.NewDoneEvent(""))).To(MatchError(context.Canceled))
		Expect(dst.Len()).To(Equal(0))
	})

	It("reports write failures", func() {
		fw := sse.NewWriter(failingWriter{})
		Expect(fw.Emit(ctx, stream.NewDoneEvent(""))).To(MatchError(io.ErrClosedPipe))
	})

	It("serves as the sink of a segmenter run", func() {
		seg := stream.New()
		src := stream.NewTextSource("**Thought:** thinking it over.", "**Final Answer:** done.")

		Expect(seg.Run(ctx, stream.StartPayload{ThreadID: "t", Model: "m"}, src, w)).To(Succeed())

		frames, err := sse.NewReader(strings.NewReader(dst.String())).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(frames).NotTo(BeEmpty())
		Expect(frames[0].Event).To(Equal("start"))
		Expect(frames[len(frames)-1].Event).To(Equal("done"))
	})
})

var _ = Describe("Reader", func() {
	It("parses a single frame", func() {
		r := sse.NewReader(strings.NewReader("event: content\ndata: {\"content\":\"hi\",\"type\":\"content\"}\n\n"))

		frame, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame.Event).To(Equal("content"))
		Expect(frame.Data).To(Equal(`{"content":"hi","type":"content"}`))

		frame, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(BeNil())
	})

	It("joins multiple data lines", func() {
		r := sse.NewReader(strings.NewReader("data: first\ndata: second\n\n"))
		frame, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame.Data).To(Equal("first\nsecond"))
		Expect(frame.Event).To(BeEmpty())
	})

	It("skips comments and keep-alive blank lines", func() {
		r := sse.NewReader(strings.NewReader("\n\n: ping\n\nid: 7\ndata:x\n\n"))
		frame, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame.ID).To(Equal("7"))
		Expect(frame.Data).To(Equal("x"))
	})

	It("handles CRLF line endings", func() {
		r := sse.NewReader(strings.NewReader("event: done\r\ndata: {\"status\":\"completed\"}\r\n\r\n"))
		frame, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame.Event).To(Equal("done"))
		Expect(frame.Data).To(Equal(`{"status":"completed"}`))
	})

	It("yields a trailing frame without a blank line", func() {
		r := sse.NewReader(strings.NewReader("event: done\ndata: {}"))
		frame, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame).NotTo(BeNil())
		Expect(frame.Event).To(Equal("done"))
	})
})

var _ = Describe("Frame.Decode", func() {
	It("round trips every event kind through the wire format", func() {
		events := []stream.Event{
			stream.NewStartEvent("t-9", "model-x"),
			stream.NewSectionEvent(stream.SectionAction),
			stream.NewContentEvent("**Action:** search", stream.SectionAction),
			stream.NewTableEvent("| a |\n", stream.SectionNone),
			stream.NewDoneEvent(stream.NoteClientDisconnected),
			stream.NewErrorEvent(errors.New("bad")),
		}

		var buf bytes.Buffer
		for _, ev := range events {
			frame, err := sse.Encode(ev)
			Expect(err).NotTo(HaveOccurred())
			buf.Write(frame)
		}

		frames, err := sse.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(frames).To(HaveLen(len(events)))

		for i, frame := range frames {
			decoded, err := frame.Decode()
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(events[i]))
		}
	})

	It("rejects unknown event names", func() {
		frame := &sse.Frame{Event: "ping", Data: "{}"}
		_, err := frame.Decode()
		Expect(err).To(MatchError(sse.ErrUnknownEvent))
	})

	It("reports malformed payloads", func() {
		frame := &sse.Frame{Event: "content", Data: "{not json"}
		_, err := frame.Decode()
		Expect(err).To(HaveOccurred())
	})
})
