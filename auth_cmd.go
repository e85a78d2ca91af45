package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	xstrings "github.com/charmbracelet/x/exp/strings"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/authfiles"
	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/management"
	"github.com/proxypal/proxypal/internal/oauth"
	"github.com/proxypal/proxypal/internal/proto"
)

func authStore() *authfiles.Store {
	return authfiles.New(config.AuthDir(), filepath.Join(config.DataDir(), "authstatus.json"))
}

func parseOAuthProvider(arg string) (proto.Provider, error) {
	p := proto.Provider(strings.ToLower(arg))
	if p == proto.ProviderOpenAI {
		// OpenAI accounts log in through the codex flow.
		p = proto.ProviderCodex
	}
	for _, v := range proto.OAuthProviders {
		if p == v {
			return p, nil
		}
	}
	names := make([]string, len(proto.OAuthProviders))
	for i, v := range proto.OAuthProviders {
		names[i] = string(v)
	}
	return "", newUserErrorf("unknown provider %q, use %s", arg, xstrings.EnglishJoin(names, false))
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect and manage provider accounts",
}

var authLoginTimeout time.Duration

func init() {
	authLoginCmd.Flags().VarP(newDurationFlag(5*time.Minute, &authLoginTimeout), "timeout", "t", "How long to wait for the browser login")
	authFilesCmd.AddCommand(
		authFilesListCmd,
		authFilesUploadCmd,
		authFilesDownloadCmd,
		authFilesEnableCmd,
		authFilesDisableCmd,
		authFilesDeleteCmd,
	)
	authCompleteCmd.Flags().StringVar(&authCompleteCode, "code", "", "Authorization code from the callback link")
	authCompleteCmd.Flags().StringVar(&authCompleteState, "state", "", "State from the callback link")
	_ = authCompleteCmd.MarkFlagRequired("state")
	authCmd.AddCommand(
		authListCmd,
		authLoginCmd,
		authCompleteCmd,
		authDisconnectCmd,
		authImportVertexCmd,
		authFilesCmd,
	)
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show connected accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := authStore().Scan()
		if err != nil {
			return proxypalError{err, "Could not scan the proxy auth directory."}
		}
		fmt.Println(describeAccounts(st))

		// With the proxy up we can also show per-account health.
		files, err := management.New(cfg.Port).AuthFiles(cmd.Context())
		if err != nil || len(files) == 0 {
			return nil
		}
		s := stdoutStyles()
		fmt.Println()
		for _, f := range files {
			label := f.Label
			if label == "" {
				label = f.Email
			}
			if label == "" {
				label = f.Name
			}
			status := f.Status
			if f.Disabled {
				status = "disabled"
			}
			if status == "" {
				status = "ok"
			}
			fmt.Printf("  %-12s %-34s %s\n", f.Provider, label, s.Comment.Render(status))
		}
		return nil
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login <provider>",
	Short: "Connect an account through the browser",
	Long: "Starts the provider's OAuth flow. The proxy must be running: it hosts\n" +
		"the callback and stores the resulting credential in ~/.cli-proxy-api.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := parseOAuthProvider(args[0])
		if err != nil {
			return err
		}
		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()

		mgmt := management.New(cfg.Port)
		flow := oauth.New(mgmt, config.CachePath(), log)

		ctx, cancel := contextWithTimeout(cmd, authLoginTimeout)
		defer cancel()

		session, err := flow.Start(ctx, provider)
		if err != nil {
			return proxypalError{err, "Could not start the login. Is the proxy running?"}
		}
		s := stdoutStyles()
		fmt.Printf("Complete the login in your browser. If it did not open, visit:\n\n  %s\n\n", s.Link.Render(session.URL))
		if err := flow.Wait(ctx, session); err != nil {
			return proxypalError{err, "The login did not complete."}
		}
		st, err := authStore().Scan()
		if err == nil {
			fmt.Println(describeAccounts(st))
		}
		fmt.Printf("Connected %s.\n", provider)
		return nil
	},
}

var (
	authCompleteCode  string
	authCompleteState string
)

var authCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Finish a login from a proxypal://oauth/callback link",
	Long: "Matches the callback link's state against the login started by\n" +
		"`proxypal auth login` and confirms the credential with the proxy.\n" +
		"Desktop integrations that register the proxypal:// scheme invoke this.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()

		flow := oauth.New(management.New(cfg.Port), config.CachePath(), log)
		provider, err := flow.Complete(cmd.Context(), authCompleteCode, authCompleteState)
		if err != nil {
			return proxypalError{err, "Could not complete the login."}
		}
		if st, err := authStore().Scan(); err == nil {
			fmt.Println(describeAccounts(st))
		}
		fmt.Printf("Connected %s.\n", provider)
		return nil
	},
}

var authDisconnectCmd = &cobra.Command{
	Use:   "disconnect <provider>",
	Short: "Remove a provider's stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		p := proto.Provider(strings.ToLower(args[0]))
		st, err := authStore().Disconnect(p)
		if err != nil {
			return proxypalError{err, fmt.Sprintf("Could not disconnect %s.", args[0])}
		}
		fmt.Printf("Disconnected %s. %s\n", p, describeAccounts(st))
		return nil
	},
}

var authImportVertexCmd = &cobra.Command{
	Use:   "import-vertex <service-account.json>",
	Short: "Install a Google Cloud service account for Vertex",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		st, err := authStore().ImportVertex(args[0])
		if err != nil {
			return proxypalError{err, "Could not import the service account."}
		}
		fmt.Printf("Imported. %s\n", describeAccounts(st))
		return nil
	},
}

var authFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage credential files through the running proxy",
}

var authFilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the proxy's loaded credential files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		files, err := management.New(cfg.Port).AuthFiles(cmd.Context())
		if err != nil {
			return proxypalError{err, "Could not list credential files. Is the proxy running?"}
		}
		if len(files) == 0 {
			fmt.Println("The proxy has no credential files loaded.")
			return nil
		}
		s := stdoutStyles()
		for _, f := range files {
			id := f.ID
			if id == "" {
				id = f.Name
			}
			fmt.Printf("  %-12s %-40s %s\n", f.Provider, id, s.Comment.Render(f.Status))
		}
		return nil
	},
}

var authFilesProvider string

func init() {
	authFilesUploadCmd.Flags().StringVarP(&authFilesProvider, "provider", "p", "", "Provider the credential belongs to")
}

var authFilesUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Push a credential file to the proxy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := management.New(cfg.Port).UploadAuthFile(cmd.Context(), args[0], authFilesProvider)
		if err != nil {
			return proxypalError{err, "Could not upload the credential file."}
		}
		fmt.Println("Uploaded.")
		return nil
	},
}

var authFilesDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Print a credential file from the proxy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := management.New(cfg.Port).DownloadAuthFile(cmd.Context(), args[0])
		if err != nil {
			return proxypalError{err, "Could not download the credential file."}
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var authFilesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Re-enable a disabled credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := management.New(cfg.Port).SetAuthFileDisabled(cmd.Context(), args[0], false); err != nil {
			return proxypalError{err, "Could not enable the credential."}
		}
		fmt.Println("Enabled.")
		return nil
	},
}

var authFilesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a credential without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := management.New(cfg.Port).SetAuthFileDisabled(cmd.Context(), args[0], true); err != nil {
			return proxypalError{err, "Could not disable the credential."}
		}
		fmt.Println("Disabled.")
		return nil
	},
}

var authFilesDeleteAll bool

func init() {
	authFilesDeleteCmd.Flags().BoolVar(&authFilesDeleteAll, "all", false, "Delete every credential file")
}

var authFilesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete credential files from the proxy",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgmt := management.New(cfg.Port)
		if authFilesDeleteAll {
			if err := mgmt.DeleteAllAuthFiles(cmd.Context()); err != nil {
				return proxypalError{err, "Could not delete the credential files."}
			}
			fmt.Println("All credential files deleted.")
			return nil
		}
		if len(args) == 0 {
			return newUserErrorf("name a credential file or pass --all")
		}
		if err := mgmt.DeleteAuthFile(cmd.Context(), args[0]); err != nil {
			return proxypalError{err, "Could not delete the credential file."}
		}
		fmt.Println("Deleted.")
		return nil
	},
}
