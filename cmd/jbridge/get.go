package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daimatz/jbridge/pkg/members"
	"github.com/daimatz/jbridge/pkg/native"
	"github.com/daimatz/jbridge/pkg/vm"
)

func newGetCommand(a *app) *cobra.Command {
	var static bool
	cmd := &cobra.Command{
		Use:   "get <class> <name>",
		Short: "Read a member the way a script would",
		Long: `Read a member of a class through the script access protocol.

Static members are read from the class. Instance members are read from a
new instance created with the no-argument constructor. Properties call
their getter; methods and overloads print their signatures.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cls, err := a.open(args[0])
			if err != nil {
				return err
			}
			tbl, err := s.engine.Lookup(cls, nil, s.vis)
			if err != nil {
				return err
			}
			this := vm.NullValue()
			if !static {
				if this, err = instance(s, cls); err != nil {
					return err
				}
			}
			v, err := tbl.Get(nil, args[1], this, static)
			if err != nil {
				return err
			}
			out, err := format(s.machine, v)
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("%s has no member %s", tbl.Class().JavaName(), args[1])
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&static, "static", false, "read a static member")
	return cmd
}

// format renders a value returned by Table.Get. It returns "" for NotFound.
func format(machine *vm.VM, v any) (string, error) {
	switch v := v.(type) {
	case members.Entry:
		if fm, ok := v.(*members.FieldAndMethods); ok {
			val, err := fm.Value()
			if err != nil {
				return "", err
			}
			return native.ToString(machine, val)
		}
		return detail(v), nil
	case *vm.JObject:
		return native.ToString(machine, vm.RefValue(v))
	case nil:
		return "null", nil
	}
	if v == members.NotFound {
		return "", nil
	}
	return fmt.Sprint(v), nil
}
