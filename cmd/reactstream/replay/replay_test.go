package replaycmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	reactstreamcmder "github.com/easyops/reactstream/cmd/reactstream"
	replaycmder "github.com/easyops/reactstream/cmd/reactstream/replay"
	"github.com/easyops/reactstream/pkg/stream"
	"github.com/easyops/reactstream/pkg/transport/sse"
)

func replay(input string, args ...string) ([]stream.Event, error) {
	cmd := reactstreamcmder.NewReactStreamCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"replay"}, args...))

	if err := cmd.Execute(); err != nil {
		return nil, err
	}

	frames, err := sse.NewReader(out).ReadAll()
	Expect(err).NotTo(HaveOccurred())

	events := make([]stream.Event, 0, len(frames))
	for _, f := range frames {
		ev, err := f.Decode()
		Expect(err).NotTo(HaveOccurred())
		events = append(events, ev)
	}
	return events, nil
}

func sections(events []stream.Event) []string {
	var out []string
	for _, ev := range events {
		if p, ok := ev.Content(); ok && ev.Name == stream.EventContent && p.Content == "" {
			out = append(out, p.Section)
		}
	}
	return out
}

func text(events []stream.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if p, ok := ev.Content(); ok {
			b.WriteString(p.Content)
		}
	}
	return b.String()
}

var _ = Describe("Replay Command", func() {
	Describe("NewReplayCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := replaycmder.NewReplayCmd()
			Expect(cmd.Use).To(Equal("replay [file]"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("has --thread-id, --model and --delay flags", func() {
			cmd := replaycmder.NewReplayCmd()
			Expect(cmd.Flags().Lookup("thread-id")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("model")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("delay")).NotTo(BeNil())
		})
	})

	Describe("plain text input", func() {
		It("segments ReAct sections into SSE frames", func() {
			input := "**Thought:** I need the numbers.\n**Final Answer:** 42.\n"
			events, err := replay(input, "--thread-id", "t-1", "--model", "gpt-test")
			Expect(err).NotTo(HaveOccurred())

			Expect(events).NotTo(BeEmpty())
			Expect(events[0].Name).To(Equal(stream.EventStart))
			Expect(events[0].Data).To(Equal(stream.StartPayload{ThreadID: "t-1", Model: "gpt-test"}))
			Expect(events[len(events)-1].Name).To(Equal(stream.EventDone))

			Expect(sections(events)).To(Equal([]string{"thought", "final_answer"}))
			Expect(text(events)).To(Equal(input))
		})

		It("generates a thread ID when none is given", func() {
			events, err := replay("hello\n")
			Expect(err).NotTo(HaveOccurred())

			start, ok := events[0].Data.(stream.StartPayload)
			Expect(ok).To(BeTrue())
			Expect(start.ThreadID).To(HaveLen(36))
			Expect(start.Model).To(Equal("replay"))
		})

		It("emits tables as table events", func() {
			events, err := replay("| a | b |\n| 1 | 2 |\nDone.\n")
			Expect(err).NotTo(HaveOccurred())

			var tables int
			for _, ev := range events {
				p, ok := ev.Content()
				if !ok {
					continue
				}
				if ev.Name == stream.EventTable {
					tables++
					Expect(p.IsTable).To(BeTrue())
					continue
				}
				Expect(p.Content).NotTo(ContainSubstring("|"))
			}
			Expect(tables).To(BeNumerically(">=", 1))
		})
	})

	Describe("JSON lines input", func() {
		It("keeps fragment boundaries and drops system fragments", func() {
			input := strings.Join([]string{
				`{"text": "You are a helper.", "role": "system"}`,
				`{"text": "Thou"}`,
				`{"text": "ght: checking"}`,
				`{"text": " now.", "role": "assistant"}`,
			}, "\n")

			events, err := replay(input)
			Expect(err).NotTo(HaveOccurred())

			Expect(text(events)).To(Equal("**Thought:** checking now."))
			Expect(text(events)).NotTo(ContainSubstring("helper"))
			Expect(sections(events)).To(Equal([]string{"thought"}))
		})
	})

	Describe("file input", func() {
		It("reads fragments from the given file", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "recording.txt")
			Expect(os.WriteFile(path, []byte("**Observation:** 3 rows\n"), 0o600)).To(Succeed())

			events, err := replay("", path, "--delay", "1ms")
			Expect(err).NotTo(HaveOccurred())
			Expect(sections(events)).To(Equal([]string{"observation"}))
			Expect(events[len(events)-1].Name).To(Equal(stream.EventDone))
		})

		It("fails for a missing file", func() {
			_, err := replay("", filepath.Join(GinkgoT().TempDir(), "absent.txt"))
			Expect(err).To(HaveOccurred())
		})
	})
})
