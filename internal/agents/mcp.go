package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPServer is one entry under amp.mcpServers in Amp's settings.
type MCPServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

const mcpServersKey = "amp.mcpServers"

// MCPServers lists the MCP servers configured in Amp's settings.
func (c *Configurer) MCPServers() (map[string]MCPServer, error) {
	doc := c.readAmpSettings()
	raw, ok := doc[mcpServersKey]
	if !ok {
		return map[string]MCPServer{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", mcpServersKey, err)
	}
	servers := map[string]MCPServer{}
	if err := json.Unmarshal(data, &servers); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", mcpServersKey, err)
	}
	return servers, nil
}

// AddMCPServer installs or replaces an MCP server in Amp's settings.
func (c *Configurer) AddMCPServer(name string, srv MCPServer) error {
	if name == "" || srv.Command == "" {
		return errors.New("mcp server needs a name and a command")
	}
	servers, err := c.MCPServers()
	if err != nil {
		return err
	}
	servers[name] = srv
	doc := c.readAmpSettings()
	doc[mcpServersKey] = servers
	return c.writeAmpSettings(doc)
}

// RemoveMCPServer deletes an MCP server from Amp's settings.
func (c *Configurer) RemoveMCPServer(name string) error {
	servers, err := c.MCPServers()
	if err != nil {
		return err
	}
	if _, ok := servers[name]; !ok {
		return fmt.Errorf("no MCP server named %q", name)
	}
	delete(servers, name)
	doc := c.readAmpSettings()
	doc[mcpServersKey] = servers
	return c.writeAmpSettings(doc)
}

// TestServer spawns an MCP server and lists its tools over stdio, verifying
// that the configured command actually speaks the protocol before Amp trips
// over it.
func TestServer(ctx context.Context, srv MCPServer) ([]string, error) {
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(srv.Env)) {
		env = append(env, k+"="+srv.Env[k])
	}
	cli, err := client.NewStdioMCPClient(srv.Command, env, srv.Args...)
	if err != nil {
		return nil, fmt.Errorf("could not start %s: %w", srv.Command, err)
	}
	defer cli.Close() //nolint:errcheck
	if _, err := cli.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		return nil, fmt.Errorf("could not initialize %s: %w", srv.Command, err)
	}
	tools, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("could not list tools for %s: %w", srv.Command, err)
	}
	names := make([]string, 0, len(tools.Tools))
	for _, t := range tools.Tools {
		names = append(names, t.Name)
	}
	slices.Sort(names)
	return names, nil
}
