package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daimatz/jbridge/pkg/members"
	"github.com/daimatz/jbridge/pkg/vm"
)

func newMembersCommand(a *app) *cobra.Command {
	var static bool
	cmd := &cobra.Command{
		Use:   "members <class>",
		Short: "List the members a script sees on a class",
		Long: `List the members of a class as exposed to scripts.

Each name is shown with its kind (field, method, overloads, property,
field+methods) and the Java signatures behind it. Instance members are
listed by default, together with the constructors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cls, err := a.open(args[0])
			if err != nil {
				return err
			}
			tbl, err := s.engine.Lookup(cls, nil, s.vis)
			if err != nil {
				return err
			}
			var ctors []*members.Method
			if !static {
				info, err := s.engine.Record(tbl.Class(), s.vis)
				if err != nil {
					return err
				}
				ctors = info.Constructors()
			}
			printMembers(a.stdout, tbl, static, ctors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&static, "static", false, "list static members instead of instance members")
	return cmd
}

func printMembers(w io.Writer, tbl members.Table, static bool, ctors []*members.Method) {
	p := painter(isTerminal(w))
	scope := "instance"
	if static {
		scope = "static"
	}
	fmt.Fprintln(w, p.render(headerStyle, fmt.Sprintf("%s members of %s", scope, tbl.Class().JavaName())))

	ids := tbl.IDs(static)
	width := 0
	for _, id := range ids {
		width = max(width, len(id))
	}
	for _, id := range ids {
		e := tbl.Entry(id, static)
		fmt.Fprintf(w, "  %s  %s  %s\n",
			p.render(nameStyle, fmt.Sprintf("%-*s", width, id)),
			p.render(kindStyle, fmt.Sprintf("%-13s", kindOf(e))),
			p.render(detailStyle, detail(e)))
	}
	if len(ctors) > 0 {
		fmt.Fprintln(w, p.render(headerStyle, "constructors"))
		for _, m := range ctors {
			fmt.Fprintf(w, "  %s\n", p.render(detailStyle, tbl.Class().JavaName()+m.Signature()))
		}
	}
}

func kindOf(e members.Entry) string {
	if e == nil {
		return "-"
	}
	return e.Kind().String()
}

// detail renders the Java side of an entry.
func detail(e members.Entry) string {
	switch e := e.(type) {
	case *members.Field:
		return e.Type.JavaName()
	case *members.Function:
		sigs := make([]string, len(e.Methods))
		for i, m := range e.Methods {
			sigs[i] = methodSig(m)
		}
		return strings.Join(sigs, "; ")
	case *members.BeanProperty:
		var parts []string
		if e.Getter != nil {
			parts = append(parts, "get "+methodSig(e.Getter))
		}
		if e.Setters != nil {
			for _, m := range e.Setters.Methods {
				parts = append(parts, "set "+methodSig(m))
			}
		} else if e.Setter != nil {
			parts = append(parts, "set "+methodSig(e.Setter))
		}
		return strings.Join(parts, "; ")
	case *members.FieldAndMethods:
		return e.Field.Type.JavaName() + " | " + detail(e.Methods)
	case *members.Constructor:
		return e.Signature()
	}
	return ""
}

func methodSig(m *members.Method) string {
	return m.Return.JavaName() + " " + m.Name + m.Signature()
}

// instance creates the receiver used for instance members: a fresh object
// from the no-argument constructor.
func instance(s *session, cls *vm.Class) (vm.Value, error) {
	obj, err := s.machine.Construct(cls, "()V")
	if err != nil {
		return vm.Value{}, fmt.Errorf("new %s(): %w", cls.JavaName(), err)
	}
	return vm.RefValue(obj), nil
}
