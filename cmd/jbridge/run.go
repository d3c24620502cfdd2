package main

import (
	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <class>",
		Short: "Run the main method of a class",
		Long: `Run public static void main(String[]) of a class on the bundled
interpreter. The class may be given as a path to a .class file, whose
directory is added to the classpath.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, dir := classArg(args[0])
			var extra []string
			if dir != "" {
				extra = append(extra, dir)
			}
			s, err := a.newSession(extra...)
			if err != nil {
				return err
			}
			a.logger.Debug("running", "class", name)
			return s.machine.Execute(name)
		},
	}
}
