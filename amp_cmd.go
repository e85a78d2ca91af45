package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/agents"
	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/management"
)

var ampCmd = &cobra.Command{
	Use:   "amp",
	Short: "Amp integration: API key, model routing, MCP servers",
}

func init() {
	ampMappingsCmd.AddCommand(
		ampMappingsListCmd,
		ampMappingsAddCmd,
		ampMappingsRemoveCmd,
		ampMappingsEnableCmd,
		ampMappingsDisableCmd,
	)
	ampProvidersCmd.AddCommand(
		ampProvidersListCmd,
		ampProvidersAddCmd,
		ampProvidersRemoveCmd,
		ampProvidersTestCmd,
	)
	ampMCPCmd.AddCommand(ampMCPListCmd, ampMCPAddCmd, ampMCPRemoveCmd, ampMCPTestCmd)
	ampCmd.AddCommand(ampSetupCmd, ampMappingsCmd, ampProvidersCmd, ampRoutingCmd, ampMCPCmd)
}

var ampSetupCmd = &cobra.Command{
	Use:   "setup [api-key]",
	Short: "Store your Amp API key and point Amp at the proxy",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		key := cfg.AmpAPIKey
		if len(args) > 0 {
			key = args[0]
		} else if isInputTTY() {
			err := huh.NewInput().
				Title("Amp API key").
				Description("From ampcode.com settings. Leave empty to keep the stored one.").
				EchoMode(huh.EchoModePassword).
				Value(&key).
				Run()
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return proxypalError{err, "Canceled."}
				}
				return proxypalError{err, "Could not read the key."}
			}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return newUserErrorf("an Amp API key is required, get one from ampcode.com")
		}
		cfg.AmpAPIKey = key
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}

		conf, err := agents.New(cfg)
		if err != nil {
			return proxypalError{err, "Could not find your home directory."}
		}
		res, err := conf.Configure(agents.AmpCLI, nil)
		if err != nil {
			return proxypalError{err, "Could not update Amp's settings."}
		}
		printAgentResult(res)
		return nil
	},
}

var ampMappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Route Amp model requests to other models",
}

func findMapping(from string) int {
	for i, m := range cfg.AmpModelMappings {
		if strings.EqualFold(m.From, from) {
			return i
		}
	}
	return -1
}

func saveMappings() error {
	if err := cfg.Save(); err != nil {
		return proxypalError{err, "Could not save the settings file."}
	}
	if portOpen(cfg.Port) {
		s := stdoutStyles()
		fmt.Println(s.Comment.Render("Restart the proxy to apply routing changes."))
	}
	return nil
}

var ampMappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List model mappings",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if len(cfg.AmpModelMappings) == 0 {
			fmt.Println("No mappings. Requests pass through unchanged.")
			return nil
		}
		s := stdoutStyles()
		for _, m := range cfg.AmpModelMappings {
			state := ""
			if !m.Enabled {
				state = " " + s.Comment.Render("(disabled)")
			}
			fmt.Printf("  %s -> %s%s\n", m.From, m.To, state)
		}
		return nil
	},
}

var ampMappingsAddCmd = &cobra.Command{
	Use:   "add <from> <to>",
	Short: "Map one model name onto another",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		from, to := args[0], args[1]
		if i := findMapping(from); i >= 0 {
			cfg.AmpModelMappings[i].To = to
			cfg.AmpModelMappings[i].Enabled = true
		} else {
			cfg.AmpModelMappings = append(cfg.AmpModelMappings,
				config.ModelMapping{From: from, To: to, Enabled: true})
		}
		fmt.Printf("%s -> %s\n", from, to)
		return saveMappings()
	},
}

var ampMappingsRemoveCmd = &cobra.Command{
	Use:   "remove <from>",
	Short: "Delete a model mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		i := findMapping(args[0])
		if i < 0 {
			return newUserErrorf("no mapping for %q", args[0])
		}
		cfg.AmpModelMappings = append(cfg.AmpModelMappings[:i], cfg.AmpModelMappings[i+1:]...)
		fmt.Println("Removed.")
		return saveMappings()
	},
}

func setMappingEnabled(from string, enabled bool) error {
	i := findMapping(from)
	if i < 0 {
		return newUserErrorf("no mapping for %q", from)
	}
	cfg.AmpModelMappings[i].Enabled = enabled
	return saveMappings()
}

var ampMappingsEnableCmd = &cobra.Command{
	Use:   "enable <from>",
	Short: "Enable a model mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setMappingEnabled(args[0], true)
	},
}

var ampMappingsDisableCmd = &cobra.Command{
	Use:   "disable <from>",
	Short: "Disable a model mapping without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setMappingEnabled(args[0], false)
	},
}

var ampProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Custom OpenAI-compatible upstreams served through the proxy",
}

func findProvider(nameOrID string) int {
	for i, p := range cfg.AmpOpenAIProviders {
		if p.ID == nameOrID || strings.EqualFold(p.Name, nameOrID) {
			return i
		}
	}
	return -1
}

// pushProviders best-effort syncs provider entries to a running proxy.
func pushProviders(cmd *cobra.Command) {
	if !portOpen(cfg.Port) {
		return
	}
	wire := make([]management.Provider, 0, len(cfg.AmpOpenAIProviders))
	for _, p := range cfg.AmpOpenAIProviders {
		if !p.Valid() {
			continue
		}
		mp := management.Provider{
			Name:    p.Name,
			BaseURL: p.BaseURL,
			Keys:    []management.ProviderKey{{Key: p.APIKey}},
		}
		for _, m := range p.Models {
			mp.Models = append(mp.Models, management.ModelAlias{Name: m.Name, Alias: m.Alias})
		}
		wire = append(wire, mp)
	}
	if err := management.New(cfg.Port).SetProviders(cmd.Context(), wire); err != nil {
		s := stderrStyles()
		fmt.Fprintln(cmd.ErrOrStderr(), s.Comment.Render(
			fmt.Sprintf("could not push providers to the running proxy: %v", err)))
	}
}

var ampProvidersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom providers",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if len(cfg.AmpOpenAIProviders) == 0 {
			fmt.Println("No custom providers.")
			return nil
		}
		s := stdoutStyles()
		for _, p := range cfg.AmpOpenAIProviders {
			fmt.Printf("  %-20s %s %s\n", p.Name, p.BaseURL,
				s.Comment.Render(fmt.Sprintf("%d models", len(p.Models))))
		}
		return nil
	},
}

var (
	ampProviderBaseURL    string
	ampProviderAPIKey     string
	ampProviderModels     []string
	ampProviderFromOllama bool
	ampProviderOllamaURL  string
)

func init() {
	f := ampProvidersAddCmd.Flags()
	f.StringVar(&ampProviderBaseURL, "base-url", "", "Provider base URL, e.g. https://api.example.com/v1")
	f.StringVar(&ampProviderAPIKey, "api-key", "", "Provider API key")
	f.StringArrayVarP(&ampProviderModels, "model", "m", nil, "Model to expose, name or name=alias. Repeatable")
	f.BoolVar(&ampProviderFromOllama, "from-ollama", false, "Discover models from a local Ollama daemon")
	f.StringVar(&ampProviderOllamaURL, "ollama-url", gateway.DefaultOllamaURL, "Ollama daemon URL used with --from-ollama")
}

var ampProvidersAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a custom provider",
	Long: "Adds an OpenAI-compatible upstream to the generated proxy config so\n" +
		"its models are served through the local endpoint. With --from-ollama\n" +
		"the daemon's model list is pulled automatically.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var p config.OpenAIProvider
		if ampProviderFromOllama {
			models, err := gateway.OllamaModels(cmd.Context(), ampProviderOllamaURL)
			if err != nil {
				return proxypalError{err, "Could not list Ollama models. Is the daemon running?"}
			}
			if len(models) == 0 {
				return newUserErrorf("ollama reports no models, pull one first")
			}
			p = gateway.OllamaProvider(ampProviderOllamaURL, models)
			if len(args) > 0 {
				p.Name = args[0]
			}
		} else {
			if len(args) == 0 {
				return newUserErrorf("a provider name is required")
			}
			p = config.OpenAIProvider{
				ID:      uuid.NewString(),
				Name:    args[0],
				BaseURL: strings.TrimRight(ampProviderBaseURL, "/"),
				APIKey:  ampProviderAPIKey,
			}
			for _, m := range ampProviderModels {
				name, alias, _ := strings.Cut(m, "=")
				p.Models = append(p.Models, config.ProviderModel{Name: name, Alias: alias})
			}
			if !p.Valid() {
				return newUserErrorf("--base-url and --api-key are required")
			}
		}
		if findProvider(p.Name) >= 0 {
			return newUserErrorf("a provider named %q already exists", p.Name)
		}
		cfg.AmpOpenAIProviders = append(cfg.AmpOpenAIProviders, p)
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}
		fmt.Printf("Added %s with %d models.\n", p.Name, len(p.Models))
		pushProviders(cmd)
		return nil
	},
}

var ampProvidersRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a custom provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i := findProvider(args[0])
		if i < 0 {
			return newUserErrorf("no provider named %q", args[0])
		}
		cfg.AmpOpenAIProviders = append(cfg.AmpOpenAIProviders[:i], cfg.AmpOpenAIProviders[i+1:]...)
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}
		fmt.Println("Removed.")
		pushProviders(cmd)
		return nil
	},
}

var ampProvidersTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Check a custom provider's connectivity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i := findProvider(args[0])
		if i < 0 {
			return newUserErrorf("no provider named %q", args[0])
		}
		p := cfg.AmpOpenAIProviders[i]
		res := gateway.TestProvider(cmd.Context(), p.BaseURL, p.APIKey)
		if !res.Success {
			return newUserErrorf("%s", res.Message)
		}
		fmt.Println(res.Message)
		if res.ModelsFound > 0 {
			fmt.Printf("%d models available.\n", res.ModelsFound)
		}
		return nil
	},
}

var ampRoutingCmd = &cobra.Command{
	Use:   "routing [mappings|openai]",
	Short: "Show or set how Amp requests are routed",
	Long: "In mappings mode Amp requests follow the model mappings and are\n" +
		"answered by your connected accounts. In openai mode they go to your\n" +
		"custom providers instead.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Println(cfg.AmpRoutingMode)
			return nil
		}
		mode := strings.ToLower(args[0])
		if mode != config.RoutingMappings && mode != config.RoutingOpenAI {
			return newUserErrorf("routing is either %q or %q", config.RoutingMappings, config.RoutingOpenAI)
		}
		cfg.AmpRoutingMode = mode
		if err := cfg.Save(); err != nil {
			return proxypalError{err, "Could not save the settings file."}
		}
		fmt.Printf("Routing set to %s.\n", mode)
		return nil
	},
}

var ampMCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Manage Amp's MCP servers",
}

var ampMCPListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured MCP servers",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		conf, err := agents.New(cfg)
		if err != nil {
			return proxypalError{err, "Could not find your home directory."}
		}
		servers, err := conf.MCPServers()
		if err != nil {
			return proxypalError{err, "Could not read Amp's settings."}
		}
		if len(servers) == 0 {
			fmt.Println("No MCP servers configured.")
			return nil
		}
		s := stdoutStyles()
		for name, srv := range servers {
			fmt.Printf("  %-20s %s %s\n", name, srv.Command,
				s.Comment.Render(strings.Join(srv.Args, " ")))
		}
		return nil
	},
}

var ampMCPEnv []string

func init() {
	ampMCPAddCmd.Flags().StringArrayVarP(&ampMCPEnv, "env", "e", nil, "KEY=value environment for the server. Repeatable")
}

var ampMCPAddCmd = &cobra.Command{
	Use:   "add <name> <command> [args...]",
	Short: "Add an MCP server to Amp's settings",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		srv := agents.MCPServer{Command: args[1], Args: args[2:]}
		for _, kv := range ampMCPEnv {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return newUserErrorf("--env takes KEY=value, got %q", kv)
			}
			if srv.Env == nil {
				srv.Env = map[string]string{}
			}
			srv.Env[k] = v
		}
		conf, err := agents.New(cfg)
		if err != nil {
			return proxypalError{err, "Could not find your home directory."}
		}
		if err := conf.AddMCPServer(args[0], srv); err != nil {
			return proxypalError{err, "Could not update Amp's settings."}
		}
		fmt.Printf("Added %s.\n", args[0])
		return nil
	},
}

var ampMCPRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an MCP server from Amp's settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		conf, err := agents.New(cfg)
		if err != nil {
			return proxypalError{err, "Could not find your home directory."}
		}
		if err := conf.RemoveMCPServer(args[0]); err != nil {
			return proxypalError{err, "Could not update Amp's settings."}
		}
		fmt.Println("Removed.")
		return nil
	},
}

var ampMCPTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Start an MCP server and list its tools",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := agents.New(cfg)
		if err != nil {
			return proxypalError{err, "Could not find your home directory."}
		}
		servers, err := conf.MCPServers()
		if err != nil {
			return proxypalError{err, "Could not read Amp's settings."}
		}
		srv, ok := servers[args[0]]
		if !ok {
			return newUserErrorf("no MCP server named %q", args[0])
		}
		ctx, cancel := contextWithTimeout(cmd, 30*time.Second)
		defer cancel()
		tools, err := agents.TestServer(ctx, srv)
		if err != nil {
			return proxypalError{err, fmt.Sprintf("%s did not answer like an MCP server.", args[0])}
		}
		if len(tools) == 0 {
			fmt.Println("Server is up but exposes no tools.")
			return nil
		}
		fmt.Printf("Server is up with %d tools:\n", len(tools))
		for _, t := range tools {
			fmt.Printf("  %s\n", t)
		}
		return nil
	},
}
