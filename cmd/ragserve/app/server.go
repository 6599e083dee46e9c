// Package app builds the ragserve command.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kart-io/ragserve/cmd/ragserve/app/options"
)

const commandDesc = `A retrieval-augmented question-answering service.

Documents uploaded as PDF or plain text are split into overlapping chunks,
embedded, and stored in a Milvus collection. Chat queries are embedded,
matched by cosine similarity, and the best matches ground an LLM answer.`

// envPrefix is the environment variable prefix; the flag
// "embedding.llm.model" maps to RAGSERVE_EMBEDDING_LLM_MODEL.
const envPrefix = "RAGSERVE"

// NewCommand creates the root command.
func NewCommand() *cobra.Command {
	opts := options.NewServerOptions()

	cmd := &cobra.Command{
		Use:           "ragserve",
		Short:         "Retrieval-augmented question answering service",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindEnv(cmd.Flags()); err != nil {
				return err
			}
			return run(opts)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// bindEnv overlays environment variables onto flags the user did not set
// explicitly. A .env file in the working directory is loaded first.
func bindEnv(fs *pflag.FlagSet) error {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed {
			return
		}
		if err := v.BindEnv(f.Name); err != nil {
			bindErr = err
			return
		}
		if v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				bindErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
			}
		}
	})
	return bindErr
}

func run(opts *options.ServerOptions) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := setupSignalContext()

	server, err := cfg.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return server.Run(ctx)
}

// setupSignalContext returns a context cancelled on SIGINT or SIGTERM.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		<-ch
		os.Exit(1) // second signal forces exit
	}()

	return ctx
}
