package llm

import (
	"context"
	stderrors "errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/easyops/reactstream/pkg/core/message"
)

// GenerateStream 流式补全
//
// 只有建立连接可以重试；收到第一个增量后再失败，错误直接交给调用方，
// 已经发出的片段不会重放。
func (c *OpenAIClient) GenerateStream(ctx context.Context, req Request) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 10)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		chatReq := c.chatRequest(req)
		chatReq.Stream = true
		chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

		var stream *openai.ChatCompletionStream
		err := retry(ctx, c.options.MaxRetries, c.options.RetryDelay, c.options.OnRetry, func() error {
			var openErr error
			stream, openErr = c.client.CreateChatCompletionStream(ctx, chatReq)
			return mapOpenAIError(openErr)
		})
		if err != nil {
			errs <- err
			return
		}
		defer stream.Close()

		r := streamReader{ctx: ctx, out: chunks, role: message.RoleAssistant}
		if err := r.read(stream); err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}

// streamReader 把 SSE 增量转成 StreamChunk
//
// 开启 include_usage 后用量在 finish_reason 之后单独成帧，choices 为空，
// 所以 Done 块推迟到 EOF 才发出。
type streamReader struct {
	ctx    context.Context
	out    chan<- StreamChunk
	role   message.Role
	finish string
	usage  *message.TokenUsage
}

func (r *streamReader) read(stream *openai.ChatCompletionStream) error {
	for {
		resp, err := stream.Recv()
		if stderrors.Is(err, io.EOF) {
			return r.send(StreamChunk{Done: true, Role: r.role, FinishReason: r.finish, TokenUsage: r.usage})
		}
		if err != nil {
			if r.ctx.Err() != nil {
				return r.ctx.Err()
			}
			return mapOpenAIError(err)
		}

		if resp.Usage != nil {
			u := usageOf(*resp.Usage)
			r.usage = &u
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		if choice.Delta.Role != "" {
			r.role = message.ParseRole(choice.Delta.Role)
		}
		if choice.FinishReason != "" {
			r.finish = string(choice.FinishReason)
		}
		if choice.Delta.Content == "" {
			continue
		}
		if err := r.send(StreamChunk{Content: choice.Delta.Content, Role: r.role}); err != nil {
			return err
		}
	}
}

// send 消费者离开时返回 ctx 的错误
func (r *streamReader) send(chunk StreamChunk) error {
	select {
	case r.out <- chunk:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}
