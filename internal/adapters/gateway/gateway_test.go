package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type scriptedProvider struct {
	calls   atomic.Int32
	results []error
	delay   time.Duration
}

func (p *scriptedProvider) Complete(ctx context.Context, m model.Model, req gateway.Request) (gateway.Completion, error) {
	n := int(p.calls.Add(1)) - 1
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return gateway.Completion{}, &gateway.Error{Kind: gateway.ErrTransport, Model: m.ID, Err: ctx.Err()}
		}
	}
	if n < len(p.results) && p.results[n] != nil {
		return gateway.Completion{}, p.results[n]
	}
	return gateway.Completion{Text: "ok:" + req.Prompt, TokensInput: 1000, TokensOutput: 500}, nil
}

func testRegistry() *model.Registry {
	reg, err := model.NewRegistry(
		model.Model{ID: "gpt-4o", UpstreamID: "@openai/gpt-4o", InputCostPer1K: 0.0025, OutputCostPer1K: 0.01},
		model.Model{ID: "claude-haiku", Provider: model.ProviderAnthropic, UpstreamID: "claude-3-haiku-20240307", InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125},
	)
	if err != nil {
		panic(err)
	}
	return reg
}

func fastRetry(n int) gateway.RetryConfig {
	return gateway.RetryConfig{MaxRetries: n, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestClientInvoke(t *testing.T) {
	Convey("Given a client with a scripted provider", t, func() {
		p := &scriptedProvider{}
		client := gateway.New(testRegistry(),
			gateway.WithProvider(model.ProviderPortkey, p),
			gateway.WithRetry(fastRetry(2)),
			gateway.WithLogger(logger.Nop()),
		)
		ctx := context.Background()

		Convey("When the call succeeds", func() {
			resp, err := client.Invoke(ctx, gateway.Request{ModelID: "gpt-4o", Prompt: "hi"})

			Convey("Then text, tokens and priced cost are returned", func() {
				So(err, ShouldBeNil)
				So(resp.Text, ShouldEqual, "ok:hi")
				So(resp.Tokens(), ShouldEqual, 1500)
				So(resp.Cost, ShouldAlmostEqual, 0.0025+0.005, 1e-12)
				So(resp.ModelID, ShouldEqual, "gpt-4o")
			})
		})

		Convey("When the model is not registered", func() {
			_, err := client.Invoke(ctx, gateway.Request{ModelID: "llama", Prompt: "hi"})

			Convey("Then an unknown-model provider error is returned without a call", func() {
				So(errors.Is(err, gateway.ErrUnknownModel), ShouldBeTrue)
				So(gateway.Kind(err), ShouldEqual, "provider")
				So(p.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the prompt is blank", func() {
			_, err := client.Invoke(ctx, gateway.Request{ModelID: "gpt-4o", Prompt: "   "})

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, gateway.ErrInvalidRequest), ShouldBeTrue)
			})
		})

		Convey("When the provider kind has no adapter", func() {
			_, err := client.Invoke(ctx, gateway.Request{ModelID: "claude-haiku", Prompt: "hi"})

			Convey("Then a provider error is returned", func() {
				So(errors.Is(err, gateway.ErrProvider), ShouldBeTrue)
			})
		})

		Convey("When the upstream rate limits once", func() {
			p.results = []error{&gateway.Error{Kind: gateway.ErrRateLimited, Model: "gpt-4o", Status: 429, Err: errors.New("slow down")}}
			resp, err := client.Invoke(ctx, gateway.Request{ModelID: "gpt-4o", Prompt: "hi"})

			Convey("Then the call is retried and succeeds", func() {
				So(err, ShouldBeNil)
				So(resp.Text, ShouldEqual, "ok:hi")
				So(p.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the upstream keeps rate limiting", func() {
			limited := &gateway.Error{Kind: gateway.ErrRateLimited, Model: "gpt-4o", Status: 429, Err: errors.New("slow down")}
			p.results = []error{limited, limited, limited, limited}
			_, err := client.Invoke(ctx, gateway.Request{ModelID: "gpt-4o", Prompt: "hi"})

			Convey("Then retries stop at the bound and the kind survives", func() {
				So(errors.Is(err, gateway.ErrRateLimited), ShouldBeTrue)
				So(p.calls.Load(), ShouldEqual, 3)
			})
		})

		Convey("When the provider rejects the request", func() {
			p.results = []error{&gateway.Error{Kind: gateway.ErrProvider, Model: "gpt-4o", Status: 400, Err: errors.New("bad")}}
			_, err := client.Invoke(ctx, gateway.Request{ModelID: "gpt-4o", Prompt: "hi"})

			Convey("Then it is not retried", func() {
				So(errors.Is(err, gateway.ErrProvider), ShouldBeTrue)
				So(p.calls.Load(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a slow provider and a short per-call timeout", t, func() {
		p := &scriptedProvider{delay: 200 * time.Millisecond}
		client := gateway.New(testRegistry(),
			gateway.WithProvider(model.ProviderPortkey, p),
			gateway.WithTimeout(10*time.Millisecond),
			gateway.WithLogger(logger.Nop()),
		)

		Convey("When invoking", func() {
			_, err := client.Invoke(context.Background(), gateway.Request{ModelID: "gpt-4o", Prompt: "hi"})

			Convey("Then the call fails as a transport error", func() {
				So(errors.Is(err, gateway.ErrTransport), ShouldBeTrue)
				So(gateway.Kind(err), ShouldEqual, "transport")
			})
		})
	})
}

func TestOpenAIProvider(t *testing.T) {
	Convey("Given an OpenAI-compatible upstream", t, func() {
		var gotKey, gotModel string
		var status atomic.Int32
		status.Store(http.StatusOK)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("x-portkey-api-key")
			body, _ := io.ReadAll(r.Body)
			var req struct {
				Model string `json:"model"`
			}
			_ = json.Unmarshal(body, &req)
			gotModel = req.Model
			w.Header().Set("Content-Type", "application/json")
			code := int(status.Load())
			w.WriteHeader(code)
			if code != http.StatusOK {
				_, _ = w.Write([]byte(`{"error":{"message":"upstream says no","type":"error"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"391"}}],
				"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
		}))
		defer srv.Close()

		p := gateway.NewOpenAIProvider(srv.URL, "pk-test", srv.Client())
		m, _ := testRegistry().Lookup("gpt-4o")
		req := gateway.Request{Prompt: "Calculate 17 * 23", MaxTokens: 16, History: []model.Message{{Role: "user", Content: "hello"}, {Role: "assistant", Content: "hi"}}}

		Convey("When the upstream answers", func() {
			c, err := p.Complete(context.Background(), m, req)

			Convey("Then the completion and usage are mapped", func() {
				So(err, ShouldBeNil)
				So(c.Text, ShouldEqual, "391")
				So(c.TokensInput, ShouldEqual, 12)
				So(c.TokensOutput, ShouldEqual, 3)
				So(gotKey, ShouldEqual, "pk-test")
				So(gotModel, ShouldEqual, "@openai/gpt-4o")
			})
		})

		Convey("When the upstream returns 429", func() {
			status.Store(http.StatusTooManyRequests)
			_, err := p.Complete(context.Background(), m, req)

			Convey("Then the error is rate limited", func() {
				So(errors.Is(err, gateway.ErrRateLimited), ShouldBeTrue)
			})
		})

		Convey("When the upstream returns 503", func() {
			status.Store(http.StatusServiceUnavailable)
			_, err := p.Complete(context.Background(), m, req)

			Convey("Then the error is a transport failure", func() {
				So(errors.Is(err, gateway.ErrTransport), ShouldBeTrue)
			})
		})

		Convey("When the upstream returns 400", func() {
			status.Store(http.StatusBadRequest)
			_, err := p.Complete(context.Background(), m, req)

			Convey("Then the error is a provider rejection", func() {
				So(errors.Is(err, gateway.ErrProvider), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable upstream", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		p := gateway.NewOpenAIProvider(url, "pk-test", nil)
		m, _ := testRegistry().Lookup("gpt-4o")

		Convey("When completing", func() {
			_, err := p.Complete(context.Background(), m, gateway.Request{Prompt: "hi", MaxTokens: 8})

			Convey("Then the error is a transport failure", func() {
				So(errors.Is(err, gateway.ErrTransport), ShouldBeTrue)
			})
		})
	})
}

func TestAnthropicProvider(t *testing.T) {
	Convey("Given an Anthropic Messages upstream", t, func() {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-haiku-20240307",
				"content":[{"type":"text","text":"hello there"}],"stop_reason":"end_turn",
				"usage":{"input_tokens":4,"output_tokens":6}}`))
		}))
		defer srv.Close()

		p := gateway.NewAnthropicProvider(srv.URL+"/", "sk-test", srv.Client())
		m, _ := testRegistry().Lookup("claude-haiku")

		Convey("When completing with a system prompt", func() {
			c, err := p.Complete(context.Background(), m, gateway.Request{Prompt: "hi", System: "be brief", MaxTokens: 32})

			Convey("Then text blocks and usage are mapped", func() {
				So(err, ShouldBeNil)
				So(c.Text, ShouldEqual, "hello there")
				So(c.TokensInput, ShouldEqual, 4)
				So(c.TokensOutput, ShouldEqual, 6)
				So(gotPath, ShouldEqual, "/v1/messages")
			})
		})
	})
}

func TestKind(t *testing.T) {
	Convey("Given wrapped gateway errors", t, func() {
		base := &gateway.Error{Kind: gateway.ErrRateLimited, Model: "m", Err: errors.New("x")}

		Convey("Then kinds survive further wrapping", func() {
			So(gateway.Kind(nil), ShouldEqual, "ok")
			So(gateway.Kind(base), ShouldEqual, "rate_limited")
			So(gateway.Kind(errors.Join(errors.New("ctx"), base)), ShouldEqual, "rate_limited")
			So(gateway.Kind(errors.New("other")), ShouldEqual, "unknown")
		})
	})
}
