package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vaultport/internal"
	pkgconfig "github.com/starford/vaultport/pkg/config"
)

// loadConfig reads the optional config file and applies command-line
// overrides on top of it.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("dir") || cfg.Vault.Path == "" {
		cfg.Vault.Path = cmd.String("dir")
	}
	if cmd.IsSet("resource-dir") {
		cfg.Vault.ResourceDir = cmd.String("resource-dir")
	}
	if cmd.Bool("strip-location") {
		cfg.FrontMatter.StripLocation = true
	}
	if cmd.Bool("convert-location") {
		cfg.FrontMatter.ConvertLocation = true
	}
	if cmd.Bool("add-source") {
		cfg.FrontMatter.AddSource = true
	}
	if cmd.IsSet("source-value") {
		cfg.FrontMatter.SourceValue = cmd.String("source-value")
	}
	if cmd.IsSet("journal") {
		cfg.Journal.Path = cmd.String("journal")
	}
	if cmd.Bool("debug") {
		cfg.App.LogLevel = slog.LevelDebug
	}

	// Flags may have introduced conflicts the file alone did not have.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkVault(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory does not exist: %s", path)
	}
	return nil
}

// confirm shows the planned operations and asks before touching the vault.
func confirm(cfg *internal.Config, in io.Reader, out io.Writer) bool {
	fmt.Fprintln(out, titleStyle.Render("Obsidian Vault Migration and Cleanup Tool"))
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "Target directory: %s\n", pathStyle.Render(cfg.Vault.Path))
	fmt.Fprintf(out, "\n%s Joplin notebook export in markdown + front matter format\n", warnStyle.Render("Expected input:"))
	fmt.Fprintln(out, "The directory should contain:")
	fmt.Fprintln(out, "  - Markdown files (.md) exported from Joplin")
	fmt.Fprintf(out, "  - A '%s' directory with attachments/images\n", cfg.Vault.ResourceDir)
	fmt.Fprintln(out, "  - YAML front matter in markdown files (if applicable)")
	fmt.Fprintln(out, "\nThis will perform the following operations:")
	for i, op := range internal.PlannedOperations(cfg) {
		fmt.Fprintf(out, "%d. %s\n", i+1, op)
	}
	fmt.Fprintf(out, "\n%s\n", warnStyle.Render("Warning: This will modify files and directories!"))

	fmt.Fprint(out, "\nDo you want to continue? (y/N): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := checkVault(cfg.Vault.Path); err != nil {
		return err
	}

	if !cmd.Bool("yes") && !confirm(cfg, os.Stdin, os.Stdout) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	if _, err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	fmt.Println("\n" + successStyle.Render("All operations completed successfully!"))
	return nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
		if err := cfg.App.HTTP.Validate(); err != nil {
			return err
		}
	}
	if err := checkVault(cfg.Vault.Path); err != nil {
		return err
	}

	if !cmd.Bool("yes") && !confirm(cfg, os.Stdin, os.Stdout) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	if err := internal.Watch(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	hr, err := internal.History(ctx, int(cmd.Int("limit")), internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	if len(hr.Entries) == 0 {
		fmt.Println("No journal entries.")
		return nil
	}
	fmt.Printf("%d moves, %d rewrites recorded\n\n", hr.Moves, hr.Rewrites)
	for _, e := range hr.Entries {
		ts := e.CreatedAt.Local().Format("2006-01-02 15:04:05")
		switch e.Kind {
		case "move":
			fmt.Printf("%s  move     %s  %s -> %s\n", ts, pathStyle.Render(e.Note), e.From, e.To)
		default:
			fmt.Printf("%s  rewrite  %s  (%s)\n", ts, pathStyle.Render(e.Note), e.Detail)
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "vaultport",
		Usage: "Migrate a Joplin markdown export into an Obsidian-style vault",
		Description: "Moves attachments from the shared resource directory into a resource\n" +
			"folder next to each note, rewrites the links, tidies file names and\n" +
			"optionally rewrites location data in YAML front matter.",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an optional config file",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "The root directory of the vault",
				Value:       ".",
				DefaultText: "current directory",
				Sources:     cli.EnvVars("VAULTPORT_DIR"),
			},
			&cli.StringFlag{
				Name:    "resource-dir",
				Usage:   "Name of the shared resource directory",
				Value:   "_resources",
				Sources: cli.EnvVars("VAULTPORT_RESOURCE_DIR"),
			},
			&cli.BoolFlag{
				Name:  "strip-location",
				Usage: "Remove location data (latitude, longitude, altitude) from YAML front matter",
			},
			&cli.BoolFlag{
				Name:  "convert-location",
				Usage: "Add a human-readable 'location' field from latitude/longitude (keeps coordinates)",
			},
			&cli.BoolFlag{
				Name:  "add-source",
				Usage: "Add a 'source' field to YAML front matter when missing",
			},
			&cli.StringFlag{
				Name:  "source-value",
				Usage: "Value written by --add-source",
				Value: "joplin",
			},
			&cli.StringFlag{
				Name:    "journal",
				Usage:   "Path to a SQLite journal recording moves and rewrites",
				Sources: cli.EnvVars("VAULTPORT_JOURNAL"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging, including location API requests and caching",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Migrate, then keep migrating notes as they change",
				Action: runWatch,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Usage:   "Serve health checks and metrics on this port (0 disables)",
						Sources: cli.EnvVars("VAULTPORT_HTTP_PORT"),
					},
				},
			},
			{
				Name:   "history",
				Usage:  "List the latest journal entries",
				Action: runHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of entries to show",
						Value: 20,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
