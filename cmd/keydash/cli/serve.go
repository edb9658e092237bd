package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keydash/keydash/internal/server"
	"github.com/keydash/keydash/internal/service"
)

const banner = `
 _              _           _
| | _____ _   _| | __ _ ___| |__
| |/ / _ \ | | | |/ _' / __| '_ \
|   <  __/ |_| | | (_| \__ \ | | |
|_|\_\___|\__, |_|\__,_|___/_| |_|
          |___/
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the keydash HTTP server",
		Long:  "Start the HTTP server that signs admins in and lists their API keys.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Print(banner)
	fmt.Println()

	settings := loadSettings()
	logger := newLogger(os.Stderr, settings, dev)

	// 1. Validate settings; a missing signing secret aborts startup.
	if err := settings.Validate(logger); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Connect the datastore
	tree, err := openTree(ctx, settings)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	logger.Info("datastore connected", "driver", settings.Store.Driver, "namespace", settings.Store.Namespace)

	// 3. Services
	authSvc := service.NewAuthService(tree, settings.Store.Namespace, settings.Auth.Secret, settings.Auth.SessionTTL, logger).
		WithReadTimeout(settings.Store.ReadTimeout)
	keySvc := service.NewAPIKeyService(tree, settings.Store.Namespace, settings.Store.ReadTimeout, logger)

	// 4. Build and start HTTP server
	srvCfg := server.Config{
		Host:            settings.Server.Host,
		Port:            settings.Server.Port,
		BaseURL:         settings.Server.BaseURL,
		ShutdownTimeout: settings.Server.ShutdownTimeout,
		CORSOrigins:     settings.Server.CORSOrigins,
		LoginRateLimit:  settings.Auth.LoginRateLimit,
		FirebaseAPIKey:  settings.Firebase.APIKey,
		Version:         versionString(),
	}
	srv := server.New(srvCfg, tree, authSvc, keySvc, logger)

	fmt.Printf("→ Keydash %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Sign-in:    %s/api/auth/session\n", srvCfg.BaseURL)
	fmt.Printf("→ API keys:   %s/api/apikeys\n", srvCfg.BaseURL)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", srvCfg.BaseURL)
	fmt.Println()

	return srv.ListenAndServe()
}
