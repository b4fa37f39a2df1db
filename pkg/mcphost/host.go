package mcphost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"HealthAgent/pkg/circuitbreaker"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrToolNotFound 表示没有任何已连接的服务端提供该工具。
var ErrToolNotFound = errors.New("mcphost: tool not found on any connected server")

// Host 管理到多个 MCP 服务端的连接，聚合它们的工具并提供统一调用入口。
// 连接成功后会缓存每个工具归属的服务端，调用时无需再次枚举。
// 每个服务端有独立的熔断器，单个服务端持续失败不影响其它服务端的调用。
type Host struct {
	servers  map[string]client.MCPClient
	breakers map[string]*circuitbreaker.Breaker
	tools    map[string]string // 工具名 -> 服务端名
	mu       sync.RWMutex
}

// ConnectOptions 定义连接到一个 MCP 服务端所需的配置。
type ConnectOptions struct {
	ServerName    string
	TransportType string // "stdio" 或 "http-sse"
	Command       string
	Args          []string
	URL           string
	Env           []string
}

func NewHost() *Host {
	return &Host{
		servers:  make(map[string]client.MCPClient),
		breakers: make(map[string]*circuitbreaker.Breaker),
		tools:    make(map[string]string),
	}
}

// Connect 连接到一个新的 MCP 服务端并缓存其工具列表。
func (h *Host) Connect(ctx context.Context, opts ConnectOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.servers[opts.ServerName]; exists {
		return fmt.Errorf("server with name '%s' already connected", opts.ServerName)
	}

	var mcpClient client.MCPClient
	var err error

	switch opts.TransportType {
	case "stdio":
		mcpClient, err = client.NewStdioMCPClient(opts.Command, opts.Env, opts.Args...)
		if err != nil {
			return fmt.Errorf("failed to create stdio client: %w", err)
		}
	case "http-sse":
		mcpClient, err = client.NewSSEMCPClient(opts.URL)
		if err != nil {
			return fmt.Errorf("failed to create sse client: %w", err)
		}
	default:
		return fmt.Errorf("unsupported transport type: '%s'", opts.TransportType)
	}

	initRequest := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "health-agent",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}
	if _, err = mcpClient.Initialize(ctx, initRequest); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize client: %w", err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools on '%s': %w", opts.ServerName, err)
	}
	for _, tool := range toolsResult.Tools {
		// 先注册的服务端优先，重名工具不覆盖。
		if _, ok := h.tools[tool.Name]; !ok {
			h.tools[tool.Name] = opts.ServerName
		}
	}

	h.servers[opts.ServerName] = mcpClient
	h.breakers[opts.ServerName] = circuitbreaker.New(3, 1, 30*time.Second)
	return nil
}

// HasTool 报告是否有已连接的服务端提供该工具。
func (h *Host) HasTool(toolName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.tools[toolName]
	return ok
}

// ToolNames 返回所有已聚合工具的名称。
func (h *Host) ToolNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	return names
}

// InvokeTool 调用指定工具并返回其文本内容。
// 调用经过所属服务端的熔断器，服务端连续失败后会在冷却期内快速拒绝。
func (h *Host) InvokeTool(ctx context.Context, toolName string, args map[string]interface{}) (string, error) {
	h.mu.RLock()
	serverName, ok := h.tools[toolName]
	mcpClient := h.servers[serverName]
	breaker := h.breakers[serverName]
	h.mu.RUnlock()

	if !ok {
		return "", ErrToolNotFound
	}

	var text string
	err := breaker.Do(func() error {
		result, err := mcpClient.CallTool(ctx, mcp.CallToolRequest{
			Params: mcp.CallToolParams{
				Name:      toolName,
				Arguments: args,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to call tool '%s': %w", toolName, err)
		}
		if result.IsError {
			return fmt.Errorf("tool '%s' returned an error result", toolName)
		}

		for _, content := range result.Content {
			if tc, ok := content.(mcp.TextContent); ok {
				text += tc.Text
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// CloseAll 关闭所有服务端连接并清理状态。
func (h *Host) CloseAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for _, mcpClient := range h.servers {
		if err := mcpClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.servers = make(map[string]client.MCPClient)
	h.breakers = make(map[string]*circuitbreaker.Breaker)
	h.tools = make(map[string]string)
	return errors.Join(errs...)
}
