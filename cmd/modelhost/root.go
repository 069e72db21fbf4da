package main

import (
	"os"

	"github.com/spf13/cobra"

	"modelhost/internal/config"
)

// options holds the resolved settings plus the flag set they came from, so
// explicitly set flags can win over the config file.
type options struct {
	configPath string
	flags      config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	env := config.FromEnv(os.Getenv)
	def := config.Default()
	def.Merge(env)

	root := &cobra.Command{
		Use:           "modelhost",
		Short:         "Serve model plugins over the KServe v2 HTTP protocol",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "Config file (.yaml, .json, .toml)")
	pf.StringVar(&opts.flags.ModelRepository, "model-repository", def.ModelRepository, "Model repository directory")
	pf.StringVar(&opts.flags.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&opts.flags.LogFormat, "log-format", def.LogFormat, "Log format: auto, json, console")

	root.AddCommand(newServeCmd(opts, def), newModelsCmd(opts))
	return root
}

// resolve layers defaults and env, then the config file, then flags the user
// set explicitly.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	cfg.Merge(config.FromEnv(os.Getenv))
	if o.configPath != "" {
		fileCfg, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg.Merge(fileCfg)
	}
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	f := o.flags
	if changed("model-repository") {
		cfg.ModelRepository = f.ModelRepository
	}
	if changed("log-level") {
		cfg.LogLevel = f.LogLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.LogFormat
	}
	if changed("addr") {
		cfg.Addr = f.Addr
	}
	if changed("load-model") {
		cfg.LoadModels = f.LoadModels
	}
	if changed("max-queue-depth") {
		cfg.MaxQueueDepth = f.MaxQueueDepth
	}
	if changed("max-wait-seconds") {
		cfg.MaxWaitSeconds = f.MaxWaitSeconds
	}
	if changed("drain-timeout-seconds") {
		cfg.DrainTimeoutSeconds = f.DrainTimeoutSeconds
	}
	if changed("infer-timeout-seconds") {
		cfg.InferTimeoutSeconds = f.InferTimeoutSeconds
	}
	if changed("max-body-bytes") {
		cfg.MaxBodyBytes = f.MaxBodyBytes
	}
	if changed("cors-enabled") {
		cfg.CORSEnabled = f.CORSEnabled
	}
	if changed("cors-allowed-origins") {
		cfg.CORSAllowedOrigins = f.CORSAllowedOrigins
	}
	return cfg, nil
}
