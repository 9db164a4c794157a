package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"veo-director/config"
	"veo-director/internal/appdirs"
	"veo-director/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cliOptions struct {
	configPath string
}

// handleCLIFlags parses args. It reports handled=true when the process should
// exit right away with exitCode.
func handleCLIFlags(args []string, stdout, stderr io.Writer) (cliOptions, bool, int) {
	var opts cliOptions
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(stderr)

	showVersion := flags.Bool("version", false, "print version information")
	showDiagnose := flags.Bool("diagnose", false, "print runtime diagnostics")
	flags.StringVar(&opts.configPath, "config", "", "path to the config file")

	if err := flags.Parse(args[1:]); err != nil {
		return opts, true, 2
	}

	if !*showVersion && !*showDiagnose {
		return opts, false, 0
	}

	if *showVersion {
		printVersion(stdout)
	}

	if *showDiagnose {
		if *showVersion {
			fmt.Fprintln(stdout)
		}
		config.UseConfigFile(opts.configPath)
		printDiagnose(stdout)
	}

	return opts, true, 0
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(w io.Writer) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "version: %s\n", version)

	if wd, err := os.Getwd(); err == nil {
		fmt.Fprintf(w, "working_dir: %s\n", wd)
	} else {
		fmt.Fprintf(w, "working_dir: <error: %v>\n", err)
	}

	paths, err := appdirs.Resolve()
	if err != nil {
		fmt.Fprintf(w, "paths: <error: %v>\n", err)
		return
	}
	fmt.Fprintf(w, "portable: %t\n", paths.Portable)

	if configPath, err := config.ResolveConfigPathInUse(); err == nil {
		printPath(w, "config", configPath)
	}
	if logDir, err := log.ResolveLogDir(); err == nil {
		printPath(w, "effective_log_dir", logDir)
	}
	printPath(w, "clips", appdirs.ClipRootFor(paths))
	printPath(w, "uploads", appdirs.UploadRootFor(paths))
	printPath(w, "db", appdirs.DBPathFor(paths))

	if key := config.Conf.Gemini.ApiKey; key != "" || os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("API_KEY") != "" {
		fmt.Fprintln(w, "credential.gemini: configured")
	} else {
		fmt.Fprintln(w, "credential.gemini: missing")
	}
}

func printPath(w io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(w, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, absPath, err)
}
