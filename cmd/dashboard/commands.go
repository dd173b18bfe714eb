package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/intellidocs/internal/config"
	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/dashboard"
	"github.com/kirillkom/intellidocs/internal/observability/logging"
)

// cli carries what every subcommand shares. app is built in PersistentPreRunE after flags
// have been applied over the environment.
type cli struct {
	cfg     config.DashboardConfig
	noColor bool
	out     io.Writer
	errOut  io.Writer

	logger *slog.Logger
	source dashboard.DataSource
	app    *dashboard.App
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{cfg: config.LoadDashboard(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "intellidocs-dashboard",
		Short:         "Terminal dashboard for IntelliDocs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfg.Source, "source", c.cfg.Source, "data source: http or fixture")
	flags.StringVar(&c.cfg.APIURL, "api-url", c.cfg.APIURL, "IntelliDocs API base URL")
	flags.StringVar(&c.cfg.APIToken, "token", c.cfg.APIToken, "bearer token for the API")
	flags.StringVar(&c.cfg.FixtureFile, "fixture", c.cfg.FixtureFile, "YAML fixture for --source fixture")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.poolsCmd(),
		c.uploadCmd(),
		c.processCmd(),
		c.archiveCmd(),
		c.kvCmd(),
		c.recategorizeCmd(),
		c.categoriesCmd(),
		c.chatCmd(),
		c.watchCmd(),
	)
	return root
}

func (c *cli) init() error {
	if c.noColor {
		color.NoColor = true
	}
	c.logger = logging.New(c.errOut, "intellidocs-dashboard", c.cfg.LogLevel, "text")

	source, err := dashboard.NewDataSource(dashboard.SourceConfig{
		Kind:        strings.ToLower(strings.TrimSpace(c.cfg.Source)),
		APIURL:      c.cfg.APIURL,
		APIToken:    c.cfg.APIToken,
		FixtureFile: c.cfg.FixtureFile,
	})
	if err != nil {
		return err
	}
	c.source = source
	c.app = dashboard.NewApp(source, dashboard.NewState(), c.logger)
	return nil
}

// fail prints err the way the status line would and returns it for the exit code.
func (c *cli) fail(err error) error {
	printError(c.errOut, "%s", dashboard.Describe(err))
	return err
}

func (c *cli) poolsCmd() *cobra.Command {
	var (
		category string
		tab      string
		search   string
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Show documents of one pool",
		Long: `Show documents of one pool, filtered by category and filename.

Examples:
  intellidocs-dashboard pools --tab pending
  intellidocs-dashboard pools --category Invoices --search inv --pages 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !dashboard.Tab(tab).Valid() {
				return fmt.Errorf("--tab must be one of %v", dashboard.Tabs)
			}
			if err := c.app.Load(cmd.Context()); err != nil {
				return c.fail(err)
			}
			state := c.app.State()
			if category != "" {
				id, ok := resolveCategory(state.Snapshot().Categories, category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				state.SelectCategory(id)
			}
			state.SetTab(dashboard.Tab(tab))
			state.SetSearch(search)
			for i := 1; i < pages; i++ {
				state.LoadMore()
			}
			renderDocuments(c.out, state.Snapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category name or id")
	cmd.Flags().StringVar(&tab, "tab", string(dashboard.TabDocuments), "documents, pending or unknown")
	cmd.Flags().StringVar(&search, "search", "", "filename filter")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to show")
	return cmd
}

func (c *cli) uploadCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file into a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Load(cmd.Context()); err != nil {
				return c.fail(err)
			}
			if category != "" {
				id, ok := resolveCategory(c.app.State().Snapshot().Categories, category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				c.app.State().SelectCategory(id)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer f.Close()

			doc, err := c.app.Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return c.fail(err)
			}
			printSuccess(c.out, "Uploaded %s as %s", doc.Filename, doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "target category name or id")
	return cmd
}

func (c *cli) processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <document-id>",
		Short: "Run extraction and classification now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.Process(cmd.Context(), args[0])
			if err != nil {
				return c.fail(err)
			}
			renderDocument(c.out, doc)
			return nil
		},
	}
}

func (c *cli) archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <document-id>",
		Short: "Archive a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.Archive(cmd.Context(), args[0])
			if err != nil {
				return c.fail(err)
			}
			printSuccess(c.out, "Archived %s", doc.Filename)
			return nil
		},
	}
}

func (c *cli) kvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kv <document-id> [key=value ...]",
		Short: "Replace the extracted key-value fields of a document",
		Long: `Replace the extracted key-value fields of a document.

Examples:
  intellidocs-dashboard kv 42 "Invoice Number=INV-1" "Total Amount=$5,000"
  intellidocs-dashboard kv 42   # clears every field`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kvs, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}
			doc, err := c.app.SaveKeyValues(cmd.Context(), args[0], kvs)
			if err != nil {
				return c.fail(err)
			}
			renderDocument(c.out, doc)
			return nil
		},
	}
}

func parseKeyValues(args []string) ([]domain.KeyValue, error) {
	out := make([]domain.KeyValue, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out = append(out, domain.KeyValue{Key: key, Value: value})
	}
	return out, nil
}

func (c *cli) recategorizeCmd() *cobra.Command {
	var explanation string
	cmd := &cobra.Command{
		Use:   "recategorize <document-id> <category>",
		Short: "Move a document to another category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Load(cmd.Context()); err != nil {
				return c.fail(err)
			}
			categoryID, ok := resolveCategory(c.app.State().Snapshot().Categories, args[1])
			if !ok {
				return fmt.Errorf("unknown category %q", args[1])
			}
			doc, err := c.app.Recategorize(cmd.Context(), args[0], categoryID, explanation)
			if err != nil {
				return c.fail(err)
			}
			renderDocument(c.out, doc)
			return nil
		},
	}
	cmd.Flags().StringVar(&explanation, "explanation", "", "why the category changed")
	return cmd
}

func (c *cli) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Load(cmd.Context()); err != nil {
				return c.fail(err)
			}
			renderCategories(c.out, c.app.State().Snapshot().Categories)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <name> <description>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := c.app.AddCategory(cmd.Context(), args[0], args[1])
			if err != nil {
				return c.fail(err)
			}
			printSuccess(c.out, "Added category %s", category.Name)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category that no document references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return c.fail(err)
			}
			printSuccess(c.out, "Deleted category %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func (c *cli) chatCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "chat <document-id> <message>",
		Short: "Ask a question about a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			relay := dashboard.NewChatRelay(c.source, c.logger)
			if _, err := relay.Send(cmd.Context(), dashboard.TranscriptMode(mode), args[0], args[1]); err != nil {
				return err
			}
			for _, msg := range relay.Transcript(dashboard.TranscriptMode(mode)) {
				if msg.Role == dashboard.RoleUser {
					headerColor.Fprintf(c.out, "you: ")
				} else {
					successColor.Fprintf(c.out, "assistant: ")
				}
				fmt.Fprintln(c.out, msg.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(dashboard.TranscriptGlobal), "global or kv")
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	var (
		interval time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll dashboard stats until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				interval = c.cfg.PollInterval
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			seen := 0
			poller := dashboard.NewPoller(c.source, interval, func(u dashboard.StatsUpdate) {
				renderStats(c.out, u)
				seen++
				if count > 0 && seen >= count {
					cancel()
				}
			}, c.logger)

			err := poller.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default from DASHBOARD_POLL_INTERVAL)")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many updates, 0 runs until interrupted")
	return cmd
}
