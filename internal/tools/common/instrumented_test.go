package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agentpark/internal/briefing"
	"github.com/teemow/agentpark/internal/instrumentation/instrumentationtest"
	"github.com/teemow/agentpark/internal/server"
)

func newServerContext(t *testing.T, opts ...server.ServerContextOption) *server.ServerContext {
	t.Helper()

	composer := briefing.New(briefing.Sources{}, briefing.WithLocation(time.UTC))
	sc, err := server.NewServerContext(context.Background(), composer, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	assert.True(t, called)
	assert.NotNil(t, result)
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	_, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, expectedErr)
}

func TestInstrumentedToolHandler_Metrics(t *testing.T) {
	rec := instrumentationtest.NewRecorder(t)
	sc := newServerContext(t, server.WithMetrics(rec.Metrics))

	ok := InstrumentedToolHandler("ok_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("fine"), nil
	})
	failing := InstrumentedToolHandler("failing_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	})

	ctx := context.Background()
	_, _ = ok(ctx, mcp.CallToolRequest{})
	_, _ = ok(ctx, mcp.CallToolRequest{})
	result, err := failing(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	assert.Equal(t, int64(2), rec.Count(t, "mcp_tool_invocations_total", map[string]string{"tool": "ok_tool", "status": "success"}))
	assert.Equal(t, int64(1), rec.Count(t, "mcp_tool_invocations_total", map[string]string{"tool": "failing_tool", "status": "error"}))
}
