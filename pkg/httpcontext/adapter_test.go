package httpcontext

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/storefront/pkg/logger"
)

func TestAttachPropagatesRequestMetadata(t *testing.T) {
	t.Parallel()

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(HeaderRequestID, "req-1")
	ctx.Request.Header.Set(HeaderUserID, "user-7")

	stdCtx, cancel := NewAdapter(time.Second).Attach(&ctx)
	defer cancel()

	if got := appLogger.RequestID(stdCtx); got != "req-1" {
		t.Errorf("expected request id req-1, got %q", got)
	}
	if got := string(ctx.Response.Header.Peek(HeaderRequestID)); got != "req-1" {
		t.Errorf("expected echoed request id, got %q", got)
	}
	if got := UserID(stdCtx); got != "user-7" {
		t.Errorf("expected user-7, got %q", got)
	}
	if _, ok := stdCtx.Deadline(); !ok {
		t.Error("expected a deadline")
	}
}

func TestAttachGeneratesRequestID(t *testing.T) {
	t.Parallel()

	var ctx fasthttp.RequestCtx
	stdCtx, cancel := NewAdapter(0).Attach(&ctx)
	defer cancel()

	if appLogger.RequestID(stdCtx) == "" {
		t.Fatal("expected generated request id")
	}
	if UserID(stdCtx) != "" {
		t.Fatal("anonymous request must carry no user")
	}
}
