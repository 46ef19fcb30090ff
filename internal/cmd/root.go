// Package cmd implements the get-cookie CLI surface: one cobra command
// reading [name] [domain] positional args plus the dump/render/fetch flag
// set, with a PersistentPreRun that loads configuration once.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	getcookie "github.com/kyupark/get-cookie"
	"github.com/kyupark/get-cookie/internal/envconfig"
	"github.com/kyupark/get-cookie/internal/httpfetch"
	"github.com/kyupark/get-cookie/internal/logging"
	"github.com/kyupark/get-cookie/internal/render"
)

// ExitCodeError carries the process exit code assigned to a particular
// failure class (2 for an invalid URL/spec, 1 otherwise).
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string { return e.Err.Error() }
func (e *ExitCodeError) Unwrap() error { return e.Err }

var cfg envconfig.Config

var (
	flagVerbose             bool
	flagDump                bool
	flagDumpGrouped         bool
	flagRender              bool
	flagRenderGrouped       bool
	flagURL                 string
	flagFetch               string
	flagHeaders             []string
	flagDumpRespHeaders     bool
	flagDumpRespBody        bool
	flagBrowser             string
	flagRequireJWT          bool
	flagSingle              bool
	flagOutput              string
)

var rootCmd = &cobra.Command{
	Use:   "get-cookie [name] [domain]",
	Short: "Extract cookies from installed browser profiles",
	Long: `get-cookie locates every installed browser profile on this machine,
reads each browser's on-disk cookie store, decrypts encrypted values, and
returns a merged, deduplicated list of cookies matching a (name, domain)
spec — either field may be the wildcard % or *.`,
	Args: cobra.MaximumNArgs(2),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = envconfig.Load()
		if flagVerbose {
			cfg.Verbose = true
		}
		logging.Init(cfg.LogLevel, cfg.Verbose)
	},
	RunE: runRoot,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "raise log level to debug")
	rootCmd.Flags().BoolVarP(&flagDump, "dump", "d", false, "emit the full result structure")
	rootCmd.Flags().BoolVarP(&flagDumpGrouped, "dump-grouped", "D", false, "emit results grouped by source file (JSON)")
	rootCmd.Flags().BoolVarP(&flagRender, "render", "r", false, "emit one name=value; … line")
	rootCmd.Flags().BoolVar(&flagRender, "render-merged", false, "alias for --render")
	rootCmd.Flags().BoolVarP(&flagRenderGrouped, "render-grouped", "R", false, "render once per source file")
	rootCmd.Flags().StringVarP(&flagURL, "url", "u", "", "derive specs from the URL (hostname, %.<tld>, <tld>)")
	rootCmd.Flags().StringVarP(&flagFetch, "fetch", "F", "", "HTTP GET with cookies injected")
	rootCmd.Flags().StringArrayVarP(&flagHeaders, "header", "H", nil, "extra header (repeatable, Key: Value)")
	rootCmd.Flags().BoolVar(&flagDumpRespHeaders, "dump-response-headers", false, "diagnostic output from fetch")
	rootCmd.Flags().BoolVar(&flagDumpRespBody, "dump-response-body", false, "diagnostic output from fetch")
	rootCmd.Flags().StringVar(&flagBrowser, "browser", "", "restrict to a single strategy (chrome|firefox)")
	rootCmd.Flags().BoolVar(&flagRequireJWT, "require-jwt", false, "keep only cookies whose value is a live JWT")
	rootCmd.Flags().BoolVar(&flagSingle, "single", false, "keep only the first result")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "output format (json)")
}

// Execute runs the root command and converts any error into the exit code
// spec §6 assigns to it.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var ec *ExitCodeError
		if errAs(err, &ec) {
			fmt.Fprintln(os.Stderr, "get-cookie:", ec.Err)
			return ec.Code
		}
		fmt.Fprintln(os.Stderr, "get-cookie:", err)
		return 1
	}
	return 0
}

func errAs(err error, target **ExitCodeError) bool {
	for err != nil {
		if ec, ok := err.(*ExitCodeError); ok {
			*target = ec
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func runRoot(cmd *cobra.Command, args []string) error {
	specs, err := resolveSpecs(args, flagURL)
	if err != nil {
		return &ExitCodeError{Code: 2, Err: err}
	}

	svc := getcookie.New(cfg.Home)
	defer svc.Close()

	opts := getcookie.Options{
		ChromeOnly:    flagBrowser == "chrome" || cfg.ChromeOnly,
		FirefoxOnly:   flagBrowser == "firefox" || cfg.FirefoxOnly,
		RemoveExpired: cfg.IgnoreExpired,
		RequireJWT:    flagRequireJWT || cfg.RequireJWT,
		Single:        flagSingle || cfg.Single,
	}

	ctx := context.Background()
	var cookies []getcookie.ExportedCookie
	if len(specs) == 1 {
		cookies, err = svc.QueryCookies(ctx, specs[0], opts)
	} else {
		cookies, err = svc.BatchGetCookies(ctx, specs, opts)
	}
	if err != nil {
		if errors.Is(err, getcookie.ErrInvalidSpec) {
			return &ExitCodeError{Code: 2, Err: err}
		}
		return err
	}

	if flagFetch != "" {
		return runFetch(cmd, cookies)
	}

	return printResult(cmd, cookies)
}

// resolveSpecs builds the CookieSpec list from positional args or --url
// (spec §6: "derive specs from the URL (hostname, %.<tld>, <tld>)").
func resolveSpecs(args []string, rawURL string) ([]getcookie.CookieSpec, error) {
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil || u.Hostname() == "" {
			return nil, fmt.Errorf("invalid url %q", rawURL)
		}
		host := u.Hostname()
		tld := registrableSuffix(host)
		specs := []getcookie.CookieSpec{
			{Name: "%", Domain: host},
			{Name: "%", Domain: "%." + tld},
			{Name: "%", Domain: tld},
		}
		return specs, nil
	}

	name, domain := "%", "%"
	if len(args) >= 1 {
		name = args[0]
	}
	if len(args) >= 2 {
		domain = args[1]
	}
	return []getcookie.CookieSpec{{Name: name, Domain: domain}}, nil
}

// registrableSuffix returns a two-label approximation of the registrable
// domain (e.g. "github.com" from "api.github.com"). It's a heuristic, not
// a public-suffix-list lookup — sufficient for deriving a broad cookie
// spec from a URL.
func registrableSuffix(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

func runFetch(cmd *cobra.Command, cookies []getcookie.ExportedCookie) error {
	header := render.Header(cookies)

	extra := http.Header{}
	for _, h := range flagHeaders {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return &ExitCodeError{Code: 2, Err: fmt.Errorf("invalid header %q, expected Key: Value", h)}
		}
		extra.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	client := httpfetch.New(30*time.Second, 0)
	resp, err := client.Fetch(cmd.Context(), flagFetch, header, extra)
	if err != nil {
		return err
	}

	if flagDumpRespHeaders {
		for k, vs := range resp.Header {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, strings.Join(vs, ", "))
		}
	}
	if flagDumpRespBody || (!flagDumpRespHeaders) {
		fmt.Fprintln(cmd.OutOrStdout(), string(resp.Body))
	}
	return nil
}

func printResult(cmd *cobra.Command, cookies []getcookie.ExportedCookie) error {
	out := cmd.OutOrStdout()

	switch {
	case flagDumpGrouped:
		return writeJSON(out, render.DumpGrouped(cookies))
	case flagRenderGrouped:
		grouped := render.Grouped(cookies)
		for file, line := range grouped {
			fmt.Fprintf(out, "%s: %s\n", file, line)
		}
		return nil
	case flagRender:
		fmt.Fprintln(out, render.Header(cookies))
		return nil
	case flagDump, flagOutput == "json":
		return writeJSON(out, cookies)
	default:
		fmt.Fprintln(out, render.Header(cookies))
		return nil
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
