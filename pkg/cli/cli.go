// Package cli implements the FortiOS-style interactive shell of fgtconf.
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/psaab/fgtconf/pkg/cmdtree"
	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/configstore"
	"github.com/psaab/fgtconf/pkg/logging"
)

// DefaultLogLines is the number of records printed by "show log".
const DefaultLogLines = 20

var errExit = errors.New("exit")

// CLI is the interactive command-line interface.
type CLI struct {
	rl    *readline.Instance
	store *configstore.Store
	logs  *logging.Buffer
	out   io.Writer
	host  string

	// position in the candidate while in configuration mode
	vdom string // "" for the root, "global" or a vdom name
	path []step
}

// step is one level of navigation: a "config" section or an "edit" entry.
type step struct {
	key  string // as stored in the tree
	edit bool
}

// New creates a new CLI. logs may be nil.
func New(store *configstore.Store, logs *logging.Buffer) *CLI {
	host, _ := os.Hostname()
	if host == "" {
		host = "FortiGate"
	}
	return &CLI{
		store: store,
		logs:  logs,
		out:   os.Stdout,
		host:  host,
	}
}

// SetOutput redirects command output.
func (c *CLI) SetOutput(w io.Writer) { c.out = w }

// Run starts the interactive CLI loop.
func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:          c.prompt(),
		HistoryFile:     filepath.Join(os.TempDir(), "fgtconf_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{cli: c},
		Listener:        readline.FuncListener(c.help),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer c.rl.Close()
	c.out = c.rl.Stdout()

	fmt.Fprintln(c.out, "fgtconf - FortiGate configuration shell")
	fmt.Fprintln(c.out, "Type '?' for help")
	fmt.Fprintln(c.out)

	errColor := color.New(color.FgRed)
	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.Execute(line); err != nil {
			if err == errExit {
				return nil
			}
			errColor.Fprintf(c.rl.Stderr(), "error: %v\n", err)
		}
		c.rl.SetPrompt(c.prompt())
	}
	return nil
}

// Execute runs one command line. Output of "cmd | filter ..." passes through
// the pipe filters. Use Exited to recognize the error returned by exit.
func (c *CLI) Execute(line string) error {
	ln, err := config.NewLexer(line).Next()
	if err != nil {
		return err
	}
	if ln.Kind == config.LineBlank || ln.Kind == config.LineComment {
		return nil
	}
	words := append([]string{ln.Keyword}, ln.Args...)

	var pipes [][]string
	if i := slices.Index(words, "|"); i >= 0 {
		pipes = splitPipes(words[i+1:])
		words = words[:i]
	}
	if len(pipes) == 0 {
		return c.dispatch(words)
	}

	out := c.out
	var buf bytes.Buffer
	c.out = &buf
	err = c.dispatch(words)
	c.out = out
	if err != nil {
		return err
	}
	text := buf.String()
	for _, p := range pipes {
		if text, err = applyPipe(text, p); err != nil {
			return err
		}
	}
	_, err = io.WriteString(c.out, text)
	return err
}

// Exited reports whether err is the result of an exit command.
func Exited(err error) bool { return err == errExit }

func (c *CLI) dispatch(words []string) error {
	if len(words) == 0 {
		return nil
	}
	slog.Debug("cli: command", "words", words, "config", c.store.InConfigMode())
	if c.store.InConfigMode() {
		return c.dispatchConfig(words)
	}
	return c.dispatchOperational(words)
}

func (c *CLI) dispatchOperational(words []string) error {
	switch words[0] {
	case "configure":
		if err := c.store.EnterConfigure(); err != nil {
			return err
		}
		c.vdom, c.path = "", nil
		fmt.Fprintln(c.out, "Entering configuration mode")
		return nil

	case "show":
		return c.handleShow(words[1:])

	case "quit", "exit":
		return errExit

	case "?", "help":
		cmdtree.WriteHelp(c.out, cmdtree.HelpCandidates(cmdtree.OperationalTree))
		return nil

	default:
		return fmt.Errorf("unknown command: %s", words[0])
	}
}

func (c *CLI) dispatchConfig(words []string) error {
	args := words[1:]

	switch words[0] {
	case "config":
		return c.handleConfig(args)

	case "edit":
		return c.handleEdit(args)

	case "next":
		if len(c.path) == 0 || !c.path[len(c.path)-1].edit {
			return fmt.Errorf("next: not in an edit block")
		}
		c.path = c.path[:len(c.path)-1]
		return nil

	case "end":
		if len(c.path) == 0 {
			return fmt.Errorf("end: already at top level")
		}
		if c.path[len(c.path)-1].edit {
			c.path = c.path[:len(c.path)-1]
		}
		c.path = c.path[:len(c.path)-1]
		return nil

	case "set":
		if len(args) < 2 {
			return fmt.Errorf("set: usage: set <key> <value>...")
		}
		return c.editObject(func(o *config.Object) error {
			_, err := o.Assign(args[0], args[1:]...)
			return err
		})

	case "unset":
		if len(args) != 1 {
			return fmt.Errorf("unset: usage: unset <key>")
		}
		return c.editObject(func(o *config.Object) error {
			o.Clear(args[0])
			return nil
		})

	case "delete":
		return c.handleDelete(args)

	case "get":
		return c.handleGet(args)

	case "show":
		return c.handleConfigShow()

	case "compare":
		fmt.Fprint(c.out, c.store.ShowCompare())
		return nil

	case "commit":
		comment := make([]string, len(args))
		for i, a := range args {
			comment[i] = config.Unquote(a)
		}
		if err := c.store.Commit(strings.Join(comment, " ")); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "commit complete")
		return nil

	case "rollback":
		n := 0
		if len(args) > 0 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
				return fmt.Errorf("rollback: invalid index %q", args[0])
			}
		}
		if err := c.store.Rollback(n); err != nil {
			return err
		}
		c.path = nil
		fmt.Fprintln(c.out, "configuration rolled back")
		return nil

	case "vdom":
		return c.handleVDOM(args)

	case "top":
		c.path = nil
		return nil

	case "run":
		if len(args) == 0 {
			return fmt.Errorf("run: missing command")
		}
		return c.dispatchOperational(args)

	case "exit", "quit":
		if c.store.IsDirty() {
			fmt.Fprintln(c.out, "warning: uncommitted changes will be discarded")
		}
		c.store.ExitConfigure()
		c.vdom, c.path = "", nil
		fmt.Fprintln(c.out, "Exiting configuration mode")
		return nil

	case "?", "help":
		cmdtree.WriteHelp(c.out, cmdtree.HelpCandidates(cmdtree.ConfigTopLevel))
		return nil

	default:
		return fmt.Errorf("unknown command: %s (in configuration mode)", words[0])
	}
}

// --- Operational mode ---

func (c *CLI) handleShow(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, c.store.ShowActive())
		return nil
	}

	switch args[0] {
	case "configuration":
		fmt.Fprint(c.out, c.store.ShowActive())
		return nil

	case "history":
		entries := c.store.History()
		if len(entries) == 0 {
			fmt.Fprintln(c.out, "no configuration history")
			return nil
		}
		for i, e := range entries {
			fmt.Fprintf(c.out, "%-3d %s  %s\n", i+1, e.Timestamp.Format("2006-01-02 15:04:05"), e.Comment)
		}
		return nil

	case "log":
		n := DefaultLogLines
		if len(args) > 1 {
			var err error
			if n, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("show log: invalid count %q", args[1])
			}
		}
		if c.logs == nil {
			fmt.Fprintln(c.out, "log buffer not available")
			return nil
		}
		for _, rec := range c.logs.Latest(n, slog.LevelDebug) {
			fmt.Fprintln(c.out, rec.String())
		}
		return nil

	case "vdom":
		cfg := c.store.Active()
		if !cfg.MultiVDOM {
			fmt.Fprintln(c.out, "vdoms not enabled")
			return nil
		}
		for _, name := range cfg.VDOMs.Keys() {
			fmt.Fprintln(c.out, config.Unquote(name))
		}
		return nil

	default:
		return fmt.Errorf("unknown show target: %s", args[0])
	}
}

// --- Configuration mode ---

// scope returns the top object the navigation path starts from.
func (c *CLI) scope(cfg *config.Config) (*config.Object, error) {
	if c.vdom == "" || c.vdom == "global" {
		return cfg.Root, nil
	}
	return cfg.VDOM(c.vdom)
}

// location resolves the navigation path in cfg.
func (c *CLI) location(cfg *config.Config) (config.Node, error) {
	return c.locate(cfg, c.path)
}

func (c *CLI) locate(cfg *config.Config, path []step) (config.Node, error) {
	top, err := c.scope(cfg)
	if err != nil {
		return nil, err
	}
	var n config.Node = top
	for _, s := range path {
		var (
			next config.Node
			ok   bool
		)
		switch cur := n.(type) {
		case *config.Object:
			next, ok = cur.Get(s.key)
		case *config.Table:
			next, ok = cur.Get(s.key)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", s.key, config.ErrNotFound)
		}
		n = next
	}
	return n, nil
}

// editObject runs fn on the current object of the candidate.
func (c *CLI) editObject(fn func(*config.Object) error) error {
	return c.store.Edit(func(cfg *config.Config) error {
		n, err := c.location(cfg)
		if err != nil {
			return err
		}
		o, ok := n.(*config.Object)
		if !ok {
			return fmt.Errorf("not allowed in a table, use edit")
		}
		return fn(o)
	})
}

func (c *CLI) handleConfig(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("config: missing section name")
	}
	name := strings.Join(args, " ")
	err := c.store.View(func(cfg *config.Config) error {
		n, err := c.location(cfg)
		if err != nil {
			return err
		}
		o, ok := n.(*config.Object)
		if !ok {
			return fmt.Errorf("config: not allowed in a table, use edit")
		}
		child, ok := o.Get(name)
		if !ok {
			return fmt.Errorf("config %s: %w", name, config.ErrNotFound)
		}
		if child.Kind() != config.KindObject && child.Kind() != config.KindTable {
			return fmt.Errorf("config %s: not a section", name)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.path = append(c.path, step{key: name})
	return nil
}

// entryID returns the stored form of a new edit id: numbers stay bare and
// names are quoted.
func entryID(id string) string {
	if config.IsQuoted(id) {
		return id
	}
	if _, err := strconv.Atoi(id); err == nil {
		return id
	}
	return config.Quote(id)
}

func (c *CLI) handleEdit(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("edit: usage: edit <id>")
	}
	id := args[0]

	var key string
	err := c.store.View(func(cfg *config.Config) error {
		n, err := c.location(cfg)
		if err != nil {
			return err
		}
		if config.IsEmptyContainer(n) {
			return nil
		}
		t, ok := n.(*config.Table)
		if !ok {
			return fmt.Errorf("edit: not in a table")
		}
		for _, k := range []string{id, config.Quote(id)} {
			if _, ok := t.Get(k); ok {
				key = k
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if key == "" {
		key = entryID(id)
		err := c.store.Edit(func(cfg *config.Config) error {
			t, err := c.table(cfg)
			if err != nil {
				return err
			}
			t.Add(key)
			return nil
		})
		if err != nil {
			return err
		}
	}
	c.path = append(c.path, step{key: key, edit: true})
	return nil
}

// table returns the table at the navigation path. A section left empty
// reads back as an object and is turned into a table again.
func (c *CLI) table(cfg *config.Config) (*config.Table, error) {
	n, err := c.location(cfg)
	if err != nil {
		return nil, err
	}
	if t, ok := n.(*config.Table); ok {
		return t, nil
	}
	if last := len(c.path) - 1; last >= 0 && !c.path[last].edit && config.IsEmptyContainer(n) {
		if parent, err := c.locate(cfg, c.path[:last]); err == nil {
			if o, ok := parent.(*config.Object); ok {
				return o.MakeTable(c.path[last].key)
			}
		}
	}
	return nil, fmt.Errorf("edit: not in a table")
}

func (c *CLI) handleDelete(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("delete: missing name")
	}
	name := strings.Join(args, " ")
	return c.store.Edit(func(cfg *config.Config) error {
		n, err := c.location(cfg)
		if err != nil {
			return err
		}
		switch cur := n.(type) {
		case *config.Object:
			if cur.Remove(name) {
				return nil
			}
		case *config.Table:
			if cur.Remove(name) || cur.Remove(config.Quote(name)) {
				return nil
			}
		}
		return fmt.Errorf("delete %s: %w", name, config.ErrNotFound)
	})
}

func (c *CLI) handleGet(args []string) error {
	return c.store.View(func(cfg *config.Config) error {
		n, err := c.location(cfg)
		if err != nil {
			return err
		}
		if t, ok := n.(*config.Table); ok {
			for _, id := range t.Keys() {
				fmt.Fprintf(c.out, "== [ %s ]\n", config.Unquote(id))
			}
			return nil
		}

		o := n.(*config.Object)
		keys := o.Keys()
		if len(args) > 0 {
			if !o.Has(args[0]) {
				return fmt.Errorf("get %s: %w", args[0], config.ErrNotFound)
			}
			keys = args[:1]
		}
		width := 0
		for _, k := range keys {
			width = max(width, len(k))
		}
		for _, k := range keys {
			switch v, _ := o.Get(k); v := v.(type) {
			case *config.Set:
				fmt.Fprintf(c.out, "%-*s : %s\n", width, k, strings.Join(v.Values(), " "))
			case *config.Unset:
				fmt.Fprintf(c.out, "%-*s :\n", width, k)
			}
		}
		return nil
	})
}

func (c *CLI) handleConfigShow() error {
	return c.store.View(func(cfg *config.Config) error {
		if c.vdom == "" && len(c.path) == 0 {
			return cfg.Write(c.out, false, nil, nil)
		}
		n, err := c.location(cfg)
		if err != nil {
			return err
		}
		switch cur := n.(type) {
		case *config.Object:
			return cur.Write(c.out, nil, nil)
		case *config.Table:
			return cur.Write(c.out, nil, nil)
		}
		return nil
	})
}

func (c *CLI) handleVDOM(args []string) error {
	if len(args) == 0 {
		if c.vdom == "" {
			fmt.Fprintln(c.out, "global")
		} else {
			fmt.Fprintln(c.out, c.vdom)
		}
		return nil
	}
	name := args[0]
	err := c.store.View(func(cfg *config.Config) error {
		if !cfg.MultiVDOM {
			return fmt.Errorf("vdom: vdoms not enabled")
		}
		if name == "global" {
			return nil
		}
		_, err := cfg.VDOM(name)
		return err
	})
	if err != nil {
		return err
	}
	c.vdom, c.path = name, nil
	return nil
}

// --- Prompts ---

// hostname returns the configured hostname, falling back to the local one.
func (c *CLI) hostname() string {
	if g, err := c.store.Active().Root.Object("system global"); err == nil {
		if h, err := g.Param("hostname"); err == nil {
			return config.Unquote(h)
		}
	}
	return c.host
}

func (c *CLI) prompt() string {
	if !c.store.InConfigMode() {
		return c.hostname() + " $ "
	}
	label := c.vdom
	if len(c.path) > 0 {
		last := c.path[len(c.path)-1]
		if last.edit {
			label = config.Unquote(last.key)
		} else {
			fields := strings.Fields(last.key)
			label = fields[len(fields)-1]
		}
	}
	if label == "" {
		return c.hostname() + " # "
	}
	return c.hostname() + " (" + label + ") # "
}
