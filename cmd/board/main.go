// Command board prints an urgency board for one role from a JSON order export.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/imrishuroy/go-painting-orderflow/internal/views"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

func main() {
	input := flag.String("input", "-", "order export to read (JSON array or {\"orders\": [...]}); - reads stdin")
	role := flag.String("role", string(views.RoleMaster), "role whose view to render")
	artist := flag.String("artist", "", "artist id; limits an artist view to their assignments")
	policy := flag.String("unknown-role", string(views.PolicyAllow), "what unknown roles see: allow or deny")
	width := flag.Int("width", 100, "board width in columns")
	flag.Parse()

	if err := run(*input, *role, *artist, *policy, *width, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "board:", err)
		os.Exit(1)
	}
}

func run(input, role, artist, policyName string, width int, out io.Writer) error {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	all, err := decodeExport(data)
	if err != nil {
		return err
	}
	policy, err := views.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	reg := workflow.Default()
	filter := views.NewFilter(reg, policy)
	visible := filter.ForActor(all, views.Actor{ID: artist, Role: views.Role(role)})
	if !views.Known(views.Role(role)) {
		fmt.Fprintf(out, "unknown role %q, policy %s\n", role, policy)
	}

	title := fmt.Sprintf("%s board (%d of %d orders)", role, len(visible), len(all))
	_, err = fmt.Fprintln(out, render(visible, reg, title, time.Now(), width))
	return err
}
