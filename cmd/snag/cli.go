package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/snag/internal/capture"
	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/logging"
	"github.com/hpungsan/snag/internal/ops"
	"github.com/hpungsan/snag/internal/report"
	"github.com/hpungsan/snag/internal/web"
)

// maxDocumentBytes bounds a capture document read from a file or stdin.
const maxDocumentBytes = 8 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.App {
	app := &cli.App{
		Name:    "snag",
		Usage:   "Sanitized issue reports from page captures",
		Version: Version,
		Commands: []*cli.Command{
			buildCmd(db, cfg, logger),
			previewCmd(db, cfg),
			hashCmd(),
			fetchCmd(db),
			listCmd(db),
			duplicatesCmd(db),
			searchCmd(db),
			attachCmd(db, cfg, logger),
			deleteCmd(db, logger),
			purgeCmd(db, logger),
			exportCmd(db, cfg),
			importCmd(db, cfg, logger),
			serveCmd(db, cfg, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// documentFlags are shared by commands that read a capture document.
func documentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Document format: auto|json|yaml"},
	}
}

// buildCmd creates the build command.
func buildCmd(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Assemble and store a report from a capture document (file or stdin)",
		ArgsUsage: "[file|-]",
		Flags: append(documentFlags(),
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Duplicate mode: allow|error (default from config)"},
			&cli.StringFlag{Name: "labels", Aliases: []string{"l"}, Usage: "Comma-separated labels (replaces the document's labels)"},
			&cli.StringFlag{Name: "screenshot", Usage: "Screenshot image URL to append"},
		),
		Action: func(c *cli.Context) error {
			doc, err := readDocument(c)
			if err != nil {
				return outputError(err)
			}
			if labels := c.String("labels"); labels != "" {
				doc.Labels = parseLabels(labels)
			}
			if shot := c.String("screenshot"); shot != "" {
				doc.ScreenshotURL = &shot
			}

			output, err := ops.Build(c.Context, db, cfg, ops.BuildInput{
				Document: doc,
				Mode:     ops.DuplicateMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			logging.WithReport(logger, output.ID).Info("report built",
				"size_bytes", output.SizeBytes, "truncated", output.Truncated, "duplicates", len(output.DuplicateOf))

			return outputJSON(c, output)
		},
	}
}

// previewCmd creates the preview command.
func previewCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Show the report a capture would produce without storing it",
		ArgsUsage: "[file|-]",
		Flags: append(documentFlags(),
			&cli.BoolFlag{Name: "body", Usage: "Print only the assembled markdown body"},
		),
		Action: func(c *cli.Context) error {
			doc, err := readDocument(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Preview(c.Context, db, cfg, ops.PreviewInput{Document: doc})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("body") {
				_, err := fmt.Fprintln(c.App.Writer, output.Body)
				return err
			}
			return outputJSON(c, output)
		},
	}
}

// hashCmd creates the hash command.
func hashCmd() *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "Print the context hash of a capture document",
		ArgsUsage: "[file|-]",
		Flags:     documentFlags(),
		Action: func(c *cli.Context) error {
			doc, err := readDocument(c)
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprintln(c.App.Writer, report.ContextHash(doc.Context))
			return err
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a report by ID",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted reports"},
			&cli.BoolFlag{Name: "no-body", Usage: "Exclude the body from output"},
			&cli.BoolFlag{Name: "raw", Usage: "Print only the markdown body"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("report id is required"))
			}
			input := ops.FetchInput{
				ID:             c.Args().First(),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if c.Bool("no-body") && !c.Bool("raw") {
				includeBody := false
				input.IncludeBody = &includeBody
			}

			output, err := ops.Fetch(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("raw") {
				_, err := fmt.Fprintln(c.App.Writer, output.Body)
				return err
			}
			return outputJSON(c, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List reports, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "label", Usage: "Filter by label"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted reports"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Limit:          c.Int("limit"),
				Offset:         c.Int("offset"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if label := c.String("label"); label != "" {
				input.Label = &label
			}

			output, err := ops.List(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// duplicatesCmd creates the duplicates command.
func duplicatesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "duplicates",
		Usage:     "List reports built from the same capture",
		ArgsUsage: "[hash]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Use the context hash of this report"},
		},
		Action: func(c *cli.Context) error {
			input := ops.DuplicatesInput{
				Hash: c.Args().First(),
				ID:   c.String("id"),
			}

			output, err := ops.Duplicates(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over report titles and bodies",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: ops.DefaultSearchLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			input := ops.SearchInput{
				Query:  strings.Join(c.Args().Slice(), " "),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}

			output, err := ops.Search(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// attachCmd creates the attach command.
func attachCmd(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "attach",
		Usage:     "Attach a screenshot URL to a stored report",
		ArgsUsage: "<id> <url>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("report id and screenshot url are required"))
			}

			output, err := ops.AttachScreenshot(c.Context, db, cfg, ops.AttachInput{
				ID:  c.Args().Get(0),
				URL: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			logging.WithReport(logger, output.ID).Info("screenshot attached", "replaced", output.Replaced)

			return outputJSON(c, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a report",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("report id is required"))
			}

			output, err := ops.Delete(c.Context, db, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			logging.WithReport(logger, output.ID).Info("report deleted")

			return outputJSON(c, output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted reports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			logger.Info("reports purged", "count", output.Purged)

			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export reports to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.snag/exports/<label>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "label", Usage: "Filter by label"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted reports"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Path:           c.String("path"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if label := c.String("label"); label != "" {
				input.Label = &label
			}

			output, err := ops.Export(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import reports from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			}

			output, err := ops.Import(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			logger.Info("reports imported", "imported", output.Imported, "skipped", output.Skipped, "errors", len(output.Errors))

			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the read-only report browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(db, cfg, logger, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(err)
			}
			if err := web.Run(srv, logger); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.SnagError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readDocument decodes the capture document named by the first argument, or stdin
// when there is no argument or it is "-".
func readDocument(c *cli.Context) (*capture.Document, error) {
	format, err := capture.ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	var data []byte
	if path := c.Args().First(); path != "" && path != "-" {
		data, err = readFile(path, maxDocumentBytes)
	} else {
		if c.App.Reader == os.Stdin && !stdinHasData() {
			return nil, errors.NewInvalidRequest("capture document must be a file argument or piped via stdin")
		}
		data, err = readLimited(c.App.Reader, maxDocumentBytes)
	}
	if err != nil {
		return nil, err
	}
	return capture.Decode(data, format)
}

// readFile reads at most limit bytes from path.
func readFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	defer f.Close()
	return readLimited(f, limit)
}

// readLimited reads all of r, failing if it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("capture document exceeds %d bytes", limit))
	}
	return data, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// parseLabels splits a comma-separated string into a slice of labels.
func parseLabels(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		l := strings.TrimSpace(p)
		if l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
