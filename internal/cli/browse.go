package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/Sternrassler/artic-browser/pkg/export"
	"github.com/Sternrassler/artic-browser/pkg/pagination"
	"github.com/Sternrassler/artic-browser/pkg/view"
	"github.com/mattn/go-runewidth"
	"github.com/peterh/liner"
)

// prompter reads REPL lines. *liner.State satisfies it.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// newPrompter is replaced in tests.
var newPrompter = func() prompter {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return l
}

func browseCommand(env map[string]string) *Command {
	cmd := newCommand("browse", env)
	cmd.Usage = "browse [flags]"
	cmd.Short = "Browse artworks page by page in the terminal"
	cmd.Long = "Browse artworks page by page in the terminal.\n\n" + browseHelp
	cmd.Exec = func(ctx context.Context, inv *invocation, _ []string) error {
		b, err := newBackend(ctx, inv.cfg, inv.logger)
		if err != nil {
			return err
		}
		defer b.Close()

		svc := view.NewService(b.api, b.store, view.Config{
			PageSize:     inv.cfg.PageSize,
			Accumulation: pagination.Options{DedupByID: inv.cfg.Dedup},
		})

		r := &repl{svc: svc, o: inv.IO}
		return r.run(ctx)
	}
	return cmd
}

const browseHelp = `Commands:
  show                 Reload the current page
  next, prev           Move one page
  page <n>             Go to page n (1-based)
  rows <n>             Change rows per page
  select <id>...       Select artworks on the current page
  unselect <id>...     Remove artworks from the selection
  auto [n]             Select rows from this page onward until n are selected
  count <n>            Set the default for auto
  selection            List the selection
  reset                Clear the selection and go to page 1
  save <file>          Write the selection (.json or .csv)
  help                 Show this help
  quit                 Exit`

// repl is the interactive browse loop over one view session.
type repl struct {
	svc     *view.Service
	o       *IO
	current view.View
	lines   prompter
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".artic_history")
}

func (r *repl) run(ctx context.Context) error {
	r.lines = newPrompter()
	defer r.lines.Close()

	if l, ok := r.lines.(*liner.State); ok {
		if f, err := os.Open(historyFile()); err == nil {
			l.ReadHistory(f)
			f.Close()
		}
		defer saveHistory(l)
	}

	v, err := r.svc.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer r.svc.Close(context.Background(), v.SessionID)

	r.current = v
	r.render()
	r.o.Println("Type 'help' for available commands.")

	for {
		line, err := r.lines.Prompt("artic> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				r.o.Println("Bye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.lines.AppendHistory(line)

		parts := strings.Fields(line)
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			r.o.Println("Bye!")
			return nil
		}

		if err := r.dispatch(ctx, cmd, args); err != nil {
			r.o.Println("error:", err)
		}
	}
}

func saveHistory(l *liner.State) {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			l.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) dispatch(ctx context.Context, cmd string, args []string) error {
	id := r.current.SessionID

	switch cmd {
	case "help", "?":
		r.o.Println(browseHelp)
		return nil

	case "show", "ls":
		return r.apply(r.svc.Load(ctx, id))

	case "next", "n":
		return r.apply(r.svc.PageChange(ctx, id, r.current.First+r.current.Rows, r.current.Rows))

	case "prev", "p":
		if r.current.PageIndex == 0 {
			return errors.New("already on the first page")
		}
		return r.apply(r.svc.PageChange(ctx, id, r.current.First-r.current.Rows, r.current.Rows))

	case "page":
		n, err := intArg(args, "page number")
		if err != nil {
			return err
		}
		if n < 1 {
			return errors.New("page numbers start at 1")
		}
		return r.apply(r.svc.PageChange(ctx, id, (n-1)*r.current.Rows, r.current.Rows))

	case "rows":
		n, err := intArg(args, "row count")
		if err != nil {
			return err
		}
		// Keep the first visible row on screen
		return r.apply(r.svc.PageChange(ctx, id, r.current.First, n))

	case "select":
		ids, err := idArgs(args)
		if err != nil {
			return err
		}
		var picked []artwork.Artwork
		for _, want := range ids {
			found := false
			for _, a := range r.current.Items {
				if a.ID == want {
					picked = append(picked, a)
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("artwork %d is not on this page", want)
			}
		}
		v, err := r.svc.SelectionChange(ctx, id, r.current.Selection.MergeUnique(picked...))
		return r.applyState(v, err)

	case "unselect":
		ids, err := idArgs(args)
		if err != nil {
			return err
		}
		v, err := r.svc.SelectionChange(ctx, id, r.current.Selection.Without(ids...))
		return r.applyState(v, err)

	case "count":
		n, err := intArg(args, "count")
		if err != nil {
			return err
		}
		v, err := r.svc.SetPendingCount(ctx, id, n)
		if err := r.applyState(v, err); err != nil {
			return err
		}
		r.o.Printf("auto will select up to %d rows\n", n)
		return nil

	case "auto":
		n := 0
		if len(args) > 0 {
			var err error
			if n, err = intArg(args, "count"); err != nil {
				return err
			}
		}
		v, run, err := r.svc.AutoSelect(ctx, id, n)
		if err := r.applyState(v, err); err != nil {
			return err
		}
		r.o.Printf("selected %d rows (+%d from %d pages, %s)\n",
			len(v.Selection), run.Added, len(run.Pages), run.Stop)
		return nil

	case "selection", "sel":
		r.printSelection()
		return nil

	case "reset":
		return r.apply(r.svc.Reset(ctx, id))

	case "save":
		if len(args) != 1 {
			return errors.New("usage: save <file>")
		}
		path := args[0]
		if err := export.WriteFile(path, export.FormatFromPath(path), r.current.Selection); err != nil {
			return err
		}
		r.o.Printf("wrote %d artworks to %s\n", len(r.current.Selection), path)
		return nil

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

// apply takes a view that carries a fresh page and renders it.
func (r *repl) apply(v view.View, err error) error {
	if err != nil {
		return err
	}
	r.current = v
	r.render()
	return nil
}

// applyState takes a view without page data and keeps the current rows.
func (r *repl) applyState(v view.View, err error) error {
	if err != nil {
		return err
	}
	items := r.current.Items
	status := r.current.Status
	r.current = v
	r.current.Items = items
	r.current.Status = status
	return nil
}

func (r *repl) render() {
	v := r.current
	pages := 0
	if v.Rows > 0 {
		pages = (v.Total + v.Rows - 1) / v.Rows
	}
	r.o.Printf("Page %d of %d (%d artworks, %d rows per page, %d selected)\n",
		v.PageIndex+1, pages, v.Total, v.Rows, len(v.Selection))

	if v.Status == pagination.StatusFailed {
		r.o.Println("  (page could not be loaded)")
		return
	}
	if len(v.Items) == 0 {
		r.o.Println("  (no artworks on this page)")
		return
	}

	for _, a := range v.Items {
		mark := "[ ]"
		if v.Selection.Contains(a.ID) {
			mark = "[x]"
		}
		r.o.Printf("  %s %8d  %s  %s  %s\n",
			mark, a.ID,
			cell(a.Title, 40),
			cell(firstLine(a.ArtistDisplay), 28),
			dates(a))
	}
}

func (r *repl) printSelection() {
	sel := r.current.Selection
	if len(sel) == 0 {
		r.o.Println("  (nothing selected)")
		return
	}
	for i, a := range sel {
		r.o.Printf("  %3d. %8d  %s\n", i+1, a.ID, cell(a.Title, 60))
	}
}

// cell truncates or pads s to exactly width terminal columns.
func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "..."), width)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func dates(a artwork.Artwork) string {
	if a.DateStart == a.DateEnd {
		return strconv.Itoa(a.DateStart)
	}
	return fmt.Sprintf("%d-%d", a.DateStart, a.DateEnd)
}

func intArg(args []string, what string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one %s", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func idArgs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, errors.New("expected at least one artwork id")
	}
	ids := make([]int64, len(args))
	for i, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid artwork id %q", s)
		}
		ids[i] = id
	}
	return ids, nil
}
