package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/nirholas/specbridge/internal/analyze"
	"github.com/nirholas/specbridge/internal/config"
	"github.com/nirholas/specbridge/internal/converter"
	"github.com/nirholas/specbridge/internal/generate"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"github.com/nirholas/specbridge/internal/requester"
	"github.com/nirholas/specbridge/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	defer func() { _ = logger.Sync() }()
	Execute()
}

var (
	formatOverride    string
	sourceDir         string
	groupBy           string
	includeDeprecated bool
	outputFile        string
	outDir            string
	target            string
	baseURL           string
	serverName        string
	authType          string
	authEnvVar        string
	pagination        bool
	cacheTTL          int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "specbridge",
	Short: "Convert API specifications into MCP tool servers",
	Long: `Specbridge converts API specifications (OpenAPI, AsyncAPI, GraphQL, gRPC,
Postman, Insomnia, HAR) and annotated source code into MCP tool definitions.
It can emit the converted tools as JSON, generate a standalone TypeScript or
JavaScript MCP server, or serve the tools directly over stdio, SSE or HTTP.`,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a spec or source tree into tool definitions",
	RunE:  runConvert,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an MCP server project from a spec",
	RunE:  runGenerate,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the converted tools over MCP",
	RunE:  runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	// The shared flag set keeps cobra and the viper-backed config loader
	// looking at the same flag values.
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	convertCmd.Flags().StringVar(&formatOverride, "format", "", "Skip detection and parse as this format (openapi|asyncapi|graphql|grpc|postman|insomnia|har)")
	convertCmd.Flags().StringVar(&sourceDir, "source-dir", "", "Analyze a source tree instead of a spec file")
	convertCmd.Flags().StringVar(&groupBy, "group-by", "tags", "Group tools by tags, paths or none")
	convertCmd.Flags().BoolVar(&includeDeprecated, "include-deprecated", false, "Keep deprecated operations")
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the tool definitions to this file instead of stdout")

	generateCmd.Flags().StringVar(&formatOverride, "format", "", "Skip detection and parse as this format")
	generateCmd.Flags().StringVar(&sourceDir, "source-dir", "", "Analyze a source tree instead of a spec file")
	generateCmd.Flags().StringVar(&groupBy, "group-by", "tags", "Group tools by tags, paths or none")
	generateCmd.Flags().BoolVar(&includeDeprecated, "include-deprecated", false, "Keep deprecated operations")
	generateCmd.Flags().StringVar(&outDir, "out-dir", "generated", "Directory to write the generated project into")
	generateCmd.Flags().StringVar(&target, "target", "typescript", "Generation target (typescript|javascript)")
	generateCmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL baked into the generated server")
	generateCmd.Flags().StringVar(&serverName, "name", "", "Name of the generated server package")
	generateCmd.Flags().StringVar(&authType, "auth-type", "", "Auth strategy for the generated server (bearer|basic|apiKey)")
	generateCmd.Flags().StringVar(&authEnvVar, "auth-env-var", "", "Environment variable the generated server reads credentials from")
	generateCmd.Flags().BoolVar(&pagination, "pagination", false, "Emit pagination auto-follow for paginated endpoints")
	generateCmd.Flags().IntVar(&cacheTTL, "cache-ttl", 0, "Cache GET responses for this many seconds (0 disables)")

	rootCmd.AddCommand(convertCmd, generateCmd, serveCmd)
}

func initCLILogger() {
	// CLI runs keep structured logs out of the way of pterm output.
	if err := logger.InitLogger(&config.LoggingConfig{Level: "warn", Format: "console"}); err != nil {
		pterm.Warning.Printf("Failed to initialize logger: %v\n", err)
	}
}

func convertOptions() converter.Options {
	opts := converter.DefaultOptions()
	opts.Format = ir.Format(formatOverride)
	opts.GroupBy = converter.GroupBy(groupBy)
	opts.IncludeDeprecated = includeDeprecated
	return opts
}

// loadTools runs the conversion pipeline for both spec-file and
// source-directory inputs.
func loadTools(cmd *cobra.Command) (*ir.UnifiedParseResult, error) {
	adjustmentsFile, _ := cmd.Flags().GetString("adjustments-file")
	adjuster := converter.NewAdjuster()
	if err := adjuster.Load(adjustmentsFile); err != nil {
		return nil, fmt.Errorf("failed to load adjustments file: %w", err)
	}
	conv := converter.NewConverter(adjuster)

	if sourceDir != "" {
		files, err := collectSourceFiles(sourceDir)
		if err != nil {
			return nil, err
		}
		return conv.ParseSource(files, convertOptions())
	}

	specFile, _ := cmd.Flags().GetString("spec-file")
	if specFile == "" {
		return nil, fmt.Errorf("a spec is required: pass --spec-file or --source-dir")
	}
	input, err := os.ReadFile(specFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return conv.ParseSpec(input, convertOptions())
}

var sourceExtensions = map[string]bool{
	".js":  true,
	".mjs": true,
	".ts":  true,
	".py":  true,
}

func collectSourceFiles(dir string) ([]analyze.File, error) {
	var files []analyze.File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" || (strings.HasPrefix(d.Name(), ".") && path != dir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		files = append(files, analyze.File{Path: filepath.ToSlash(rel), Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source dir: %w", err)
	}
	return files, nil
}

func printWarnings(result *ir.UnifiedParseResult) {
	for _, warning := range result.Warnings {
		if warning.Location != "" {
			pterm.Warning.Printf("%s: %s\n", warning.Location, warning.Message)
		} else {
			pterm.Warning.Println(warning.Message)
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	initCLILogger()

	result, err := loadTools(cmd)
	if err != nil {
		return err
	}
	printWarnings(result)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	data = append(data, '\n')

	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		pterm.Success.Printfln("Converted %s tools (%s) into %s",
			pterm.LightGreen(len(result.Tools)), result.Format, outputFile)
		return nil
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return err
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	initCLILogger()

	result, err := loadTools(cmd)
	if err != nil {
		return err
	}
	printWarnings(result)

	opts := generate.DefaultOptions()
	opts.Target = generate.Target(target)
	opts.GroupBy = converter.GroupBy(groupBy)
	opts.BaseURL = baseURL
	if serverName != "" {
		opts.ServerName = serverName
	}
	if authType != "" {
		opts.Auth = &generate.AuthStrategy{
			Type:   ir.AuthType(authType),
			EnvVar: authEnvVar,
		}
	}
	opts.Features.PaginationAutoFollow = pagination
	opts.Features.CacheTTL = cacheTTL

	files, err := generate.Generate(result.Tools, opts)
	if err != nil {
		return err
	}

	for name, content := range files {
		path := filepath.Join(outDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	pterm.Success.Printfln("Generated %s files for %s tools into %s",
		pterm.LightGreen(len(files)), pterm.LightGreen(len(result.Tools)), outDir)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *server.Server
	app := fx.New(
		fx.Provide(config.Load),
		fx.Invoke(func(cfg *config.Config) error {
			return logger.InitLogger(&cfg.Logging)
		}),
		converter.Module,
		requester.Module,
		server.Module,
		fx.Populate(&srv),
		fx.NopLogger,
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Error("Failed to stop application", zap.Error(err))
		}
	}()

	return srv.Start(ctx)
}
