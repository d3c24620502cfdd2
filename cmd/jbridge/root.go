package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/daimatz/jbridge/internal/config"
)

// app carries the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgFile    string
	classPath  []string
	jmod       string
	visibility string

	cfg    *config.Config
	source string
	logger *log.Logger
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jbridge",
		Short: "Inspect JVM classes as a script sees them",
		Long: `jbridge loads JVM classes from class files and shows how they are
exposed to a scripting host: fields, overloaded methods, bean properties
derived from getters and setters, and constructors.

Examples:
  jbridge members demo.Person            List instance members
  jbridge members --static demo.Person   List static members
  jbridge get demo.Person name           Read a member of new Person()
  jbridge run build/Main.class           Run a main method
  jbridge config show                    Show the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./jbridge.toml or $XDG_CONFIG_HOME/jbridge/jbridge.toml)")
	flags.StringSliceVar(&a.classPath, "classpath", nil, "directories searched for classes")
	flags.StringVar(&a.jmod, "jmod", "", `java.base.jmod to load JDK classes from ("auto" searches JAVA_HOME)`)
	flags.StringVar(&a.visibility, "visibility", "", "member visibility: public, protected or private")

	rootCmd.AddCommand(newMembersCommand(a))
	rootCmd.AddCommand(newGetCommand(a))
	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	return rootCmd
}

// loadConfig reads the configuration and lets explicit flags override it.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, src, err := config.LoadWithSource(cmd.Context(), config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("classpath") {
		cfg.ClassPath = a.classPath
	}
	if flags.Changed("jmod") {
		cfg.Jmod = a.jmod
	}
	if flags.Changed("visibility") {
		cfg.Visibility = a.visibility
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg, a.source = cfg, src
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  cfg.Level(),
	})
	if src != "" {
		a.logger.Debug("loaded config", "path", src)
	}
	return nil
}

func execute(args []string) error {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	rootCmd := newRootCommand(a)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(a.stderr, painter(isTerminal(a.stderr)).render(errorStyle, "Error:"), err)
		return err
	}
	return nil
}
