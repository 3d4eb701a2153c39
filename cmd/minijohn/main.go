// Command minijohn es el servidor OAuth2/OIDC y sus utilidades de operación.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/minijohn/internal/config"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
)

// version se inyecta con -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// .env es opcional; el entorno real siempre gana
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "minijohn",
		Short:         "Servidor OAuth2 / OpenID Connect liviano",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config-path", "c", "", "ruta al config.yaml (env CONFIG_PATH, default /config.yaml)")

	load := func() (*config.Config, error) { return loadConfig(configPath) }

	root.AddCommand(
		newServeCmd(load),
		newKeysCmd(load),
		newPasswordCmd(),
		newMigrateCmd(load),
		newUsersCmd(),
	)
	return root
}

// loadConfig resuelve el path y levanta el logger según la config. Un archivo
// pedido explícitamente tiene que existir; el default puede faltar.
func loadConfig(flagValue string) (*config.Config, error) {
	path, explicit := config.ResolvePath(flagValue)

	var (
		cfg   *config.Config
		found = true
		err   error
	)
	if explicit {
		cfg, err = config.Load(path)
	} else {
		cfg, found, err = config.LoadOptional(path)
	}
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "minijohn",
		Version:     version,
	})
	if !found {
		logger.L().Warn("config file not found, using defaults", logger.String("path", path))
	}
	return cfg, nil
}
