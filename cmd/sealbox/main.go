package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sealbox/sealbox/internal/archive"
	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/doctor"
	"github.com/sealbox/sealbox/internal/engine"
	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/events"
	"github.com/sealbox/sealbox/internal/hsm"
	"github.com/sealbox/sealbox/internal/host"
	"github.com/sealbox/sealbox/internal/journal"
	"github.com/sealbox/sealbox/internal/lock"
	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/notify"
	"github.com/sealbox/sealbox/internal/passgen"
	"github.com/sealbox/sealbox/internal/pathguard"
	"github.com/sealbox/sealbox/internal/procexec"
	"github.com/sealbox/sealbox/internal/ratelimit"
	"github.com/sealbox/sealbox/internal/scrub"
	"github.com/sealbox/sealbox/internal/secret"
	"github.com/sealbox/sealbox/internal/tui/watch"
	"github.com/sealbox/sealbox/internal/wipe"
	"github.com/sealbox/sealbox/internal/workflow"
	"github.com/sealbox/sealbox/internal/workspace"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "encrypt":
		os.Exit(runEncrypt(args))
	case "decrypt":
		os.Exit(runDecrypt(args))
	case "actions":
		os.Exit(runActions(args))
	case "serve":
		os.Exit(runServe(args))
	case "watch":
		os.Exit(runWatch(args))
	case "history":
		os.Exit(runHistory(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "version":
		fmt.Printf("sealbox version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`sealbox - secure encrypt/decrypt workflows around an external cipher

Usage:
  sealbox <command> [flags] [paths...]

Commands:
  encrypt    Encrypt files or folders with a freshly generated passphrase
  decrypt    Decrypt previously encrypted files (passphrase prompted)
  actions    Show the actions applicable to a selection
  serve      Run the file-manager bridge daemon in foreground
  watch      Live TUI over a running bridge's job events
  history    Show recent job outcomes from the journal
  doctor     Validate configuration and probe external tools
  version    Show version information
  help       Show this help message

Use 'sealbox <command> -h' for command-specific flags.
`)
}

// toolkit bundles the collaborators every pipeline command needs.
type toolkit struct {
	cfg      *config.Config
	runner   *procexec.Runner
	guard    *pathguard.Guard
	limiter  *ratelimit.Limiter
	engine   *engine.Engine
	scrubber *scrub.Scrubber
	deleter  *wipe.Deleter
	archiver *archive.Builder
	staging  *workspace.Manager
	hsm      *hsm.Provider
	notifier *notify.Notifier
}

func newToolkit(cfg *config.Config) (*toolkit, error) {
	runner := procexec.New()

	guard, err := pathguard.New(cfg.Paths.AllowedRoots, cfg.Paths.DeniedPrefixes)
	if err != nil {
		return nil, fmt.Errorf("path guard: %w", err)
	}
	staging, err := workspace.NewManager(cfg.Service.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}

	deleter := wipe.New(cfg.Wipe.Command, cfg.Wipe.Timeout, runner)
	return &toolkit{
		cfg:     cfg,
		runner:  runner,
		guard:   guard,
		limiter: ratelimit.New(ratelimit.Policy{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
			Lockout:     cfg.RateLimit.Lockout,
		}),
		engine:   engine.New(cfg.Cipher, runner),
		scrubber: scrub.New(cfg.Scrub.Command, cfg.Scrub.Timeout, cfg.Scrub.UnsupportedExit, runner),
		deleter:  deleter,
		archiver: archive.New(cfg.Archive.SymlinkPolicy, cfg.Archive.ExtractLimit),
		staging:  staging,
		hsm:      hsm.New(cfg.HSM, runner, deleter),
		notifier: notify.New(cfg.Service.Notify, runner),
	}, nil
}

func (t *toolkit) controller(opts workflow.Options) *workflow.Controller {
	return workflow.NewController(
		t.guard, t.limiter, t.engine, t.scrubber, t.deleter,
		t.archiver, t.staging, t.cfg.Wipe.Passes, opts)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefaults(path)
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.Service.LogLevel)
	return cfg, nil
}

// signalContext cancels on SIGINT/SIGTERM so a running child process
// gets terminated and reaped instead of orphaned.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runEncrypt(args []string) int {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	deleteOriginals := fs.Bool("delete", false, "Securely delete originals after verified encryption")
	bundle := fs.Bool("bundle", false, "Encrypt all targets into one bundle artifact")
	words := fs.Int("words", 0, "Passphrase word count (0 = configured default)")
	useHSM := fs.Bool("hsm", false, "Source passphrase entropy from a PKCS#11 token")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "encrypt requires at least one path")
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	tk, err := newToolkit(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	pass, shown, err := mintPassphrase(ctx, tk, cfg, *words, *useHSM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Passphrase generation failed: %v\n", err)
		return 1
	}
	// Shown exactly once; it is not recoverable after this.
	fmt.Printf("Passphrase: %s\n", shown)
	fmt.Println("Store it now. It will not be displayed again.")

	action := workflow.ActionEncryptFiles
	if *bundle {
		action = workflow.ActionEncryptBundle
	} else if fs.NArg() == 1 {
		action = workflow.ActionEncryptFile
		if info, statErr := os.Stat(fs.Arg(0)); statErr == nil && info.IsDir() {
			action = workflow.ActionEncryptFolder
		}
	}

	job := workflow.NewJob(workflow.ModeEncrypt, action, absAll(fs.Args()), pass)
	job.DeleteOriginals = *deleteOriginals
	job.Bundle = *bundle

	return runJob(ctx, tk, cfg, job)
}

func runDecrypt(args []string) int {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "decrypt requires at least one path")
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	tk, err := newToolkit(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return 1
	}

	pass, err := promptPassphrase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read passphrase: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	job := workflow.NewJob(workflow.ModeDecrypt, workflow.ActionDecrypt, absAll(fs.Args()), pass)
	return runJob(ctx, tk, cfg, job)
}

// runJob executes the job with journaling enabled and prints the
// per-target summary.
func runJob(ctx context.Context, tk *toolkit, cfg *config.Config, job *workflow.Job) int {
	jnl, err := journal.Open(ctx, cfg.Service.JournalDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: journal unavailable: %v\n", err)
	} else {
		defer jnl.Close()
	}

	if _, err := tk.staging.CleanupStale(ctx, cfg.Service.StagingMaxAge); err != nil {
		log.Get().Warn("stale staging sweep failed", "error", err)
	}

	ctl := tk.controller(workflow.Options{Journal: jnl, Notifier: tk.notifier})
	result, err := ctl.Run(ctx, job)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Job failed: %v\n", err)
		if errors.Is(err, errs.ErrRateLimited) {
			var rle *errs.RateLimitError
			if errors.As(err, &rle) {
				fmt.Fprintf(os.Stderr, "Retry in %s.\n", rle.Remaining.Round(1e9))
			}
		}
		return 1
	}

	printSummary(result)
	if result.Status == workflow.StatusCompleted {
		return 0
	}
	return 1
}

func printSummary(result *workflow.Result) {
	for _, o := range result.Outcomes {
		switch o.State {
		case workflow.StateCompleted:
			fmt.Printf("  ok      %s", o.Path)
			if o.Artifact != "" {
				fmt.Printf(" -> %s", o.Artifact)
			}
			fmt.Println()
		default:
			fmt.Printf("  FAILED  %s: %v\n", o.Path, o.Err)
		}
	}
	fmt.Println(result.Summary())
}

// mintPassphrase returns the job passphrase and a display copy. The
// display copy is the caller's only chance to show it.
func mintPassphrase(ctx context.Context, tk *toolkit, cfg *config.Config, words int, useHSM bool) (*secret.Passphrase, string, error) {
	if useHSM {
		pin, err := promptLine("Token PIN: ")
		if err != nil {
			return nil, "", err
		}
		pass, err := tk.hsm.GeneratePassphrase(ctx, pin)
		if err != nil {
			return nil, "", err
		}
		return pass, string(pass.Bytes()), nil
	}

	if words <= 0 {
		words = cfg.Passgen.Words
	}
	pass, err := passgen.Generate(words)
	if err != nil {
		return nil, "", err
	}
	return pass, string(pass.Bytes()), nil
}

func promptPassphrase() (*secret.Passphrase, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty passphrase")
	}
	return secret.New(raw), nil
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		} else {
			out = append(out, p)
		}
	}
	return out
}

func runActions(args []string) int {
	fs := flag.NewFlagSet("actions", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "actions requires at least one path")
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	actions := workflow.Applicable(absAll(fs.Args()), cfg.Cipher.Suffix)
	if len(actions) == 0 {
		fmt.Println("No applicable actions.")
		return 0
	}
	for _, a := range actions {
		fmt.Printf("  %-16s %s\n", a.ID, a.Label)
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if !cfg.Bridge.Enabled {
		fmt.Fprintln(os.Stderr, "bridge is disabled in configuration")
		return 1
	}

	logger := log.WithComponent("main")
	logger.Info("sealbox starting", "version", version)

	tk, err := newToolkit(cfg)
	if err != nil {
		logger.Error("initialization failed", "error", err)
		return 1
	}

	pidLock, err := lock.Acquire(filepath.Join(filepath.Dir(cfg.Service.JournalDB), "sealbox.pid"))
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "error", err)
		return 1
	}
	defer pidLock.Release()

	ctx, cancel := signalContext()
	defer cancel()

	jnl, err := journal.Open(ctx, cfg.Service.JournalDB)
	if err != nil {
		logger.Error("failed to open journal", "path", cfg.Service.JournalDB, "error", err)
		return 1
	}
	defer jnl.Close()

	if report, err := tk.staging.CleanupStale(ctx, cfg.Service.StagingMaxAge); err != nil {
		logger.Warn("stale staging sweep failed", "error", err)
	} else if report.DeletedDirs > 0 {
		logger.Info("swept stale staging directories", "count", report.DeletedDirs)
	}

	hub := events.NewHub(256)
	ctl := tk.controller(workflow.Options{Journal: jnl, Hub: hub, Notifier: tk.notifier})

	generate := func() (string, error) {
		pass, err := passgen.Generate(cfg.Passgen.Words)
		if err != nil {
			return "", err
		}
		defer pass.Destroy()
		return string(pass.Bytes()), nil
	}

	srv := host.New(cfg.Bridge, ctl, hub, jnl, cfg.Cipher.Suffix, generate, log.WithComponent("host"))
	srv.HSMAvailable = tk.hsm.Available
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bridge stopped", "error", err)
		return 1
	}
	logger.Info("sealbox stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	url := fs.String("url", "", "Bridge base URL (default from config)")
	token := fs.String("token", "", "Bridge bearer token (default from config)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *url == "" {
		*url = "http://" + cfg.Bridge.Listen
	}
	if *token == "" {
		*token = cfg.Bridge.Token
	}

	p := tea.NewProgram(watch.New(*url, *token))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		return 1
	}
	return 0
}

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	limit := fs.Int("limit", 20, "Number of jobs to show")
	jobID := fs.String("job", "", "Show per-target outcomes for one job")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	jnl, err := journal.Open(ctx, cfg.Service.JournalDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
		return 1
	}
	defer jnl.Close()

	if *jobID != "" {
		targets, err := jnl.JobTargets(ctx, *jobID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			return 1
		}
		for _, t := range targets {
			line := fmt.Sprintf("  %-10s %s", t.State, t.Path)
			if t.ErrorKind != "" {
				line += fmt.Sprintf(" [%s] %s", t.ErrorKind, t.Detail)
			}
			fmt.Println(line)
		}
		return 0
	}

	jobs, err := jnl.RecentJobs(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		return 1
	}
	for _, j := range jobs {
		fmt.Printf("  %s  %-16s %-10s %d target(s)  %s\n",
			j.ID[:8], j.Action, j.Status, j.Targets,
			j.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	asJSON := fs.Bool("json", false, "Emit JSON instead of a report")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	result := doctor.New(cfg, procexec.New()).Validate(ctx)
	if *asJSON {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}
