// convmem runs a list of questions through a chat model with one of the
// conversation memory strategies and writes a strategy_<name>_results.md
// report comparing token usage per turn.
//
// Usage:
//
//	convmem --questions questions.yaml [--strategy trimming] [--num-questions 10]
//
// Without --strategy the strategy and the number of questions are chosen
// interactively.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/smallnest/convmem/config"
	"github.com/smallnest/convmem/conversation"
	"github.com/smallnest/convmem/llm"
	"github.com/smallnest/convmem/log"
	"github.com/smallnest/convmem/memory"
	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
	"github.com/smallnest/convmem/store/file"
	"github.com/smallnest/convmem/tokens"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

type options struct {
	configPath    string
	envFile       string
	promptsPath   string
	promptKey     string
	publication   string
	questionsPath string
	strategy      string
	numQuestions  int
	outputDir     string
	html          bool
	logLevel      string
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, out io.Writer) (*options, *pflag.FlagSet, error) {
	var o options
	fs := pflag.NewFlagSet("convmem", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.configPath, "config", "config.yaml", "application config file")
	fs.StringVar(&o.envFile, "env-file", ".env", "file with environment variables such as the API key")
	fs.StringVar(&o.promptsPath, "prompts", "", "prompt config file (default: built-in assistant prompt)")
	fs.StringVar(&o.promptKey, "prompt-key", config.DefaultPromptKey, "entry of the prompt config to use")
	fs.StringVar(&o.publication, "publication", "", "publication the assistant answers from")
	fs.StringVar(&o.questionsPath, "questions", "", "questions file (required)")
	fs.StringVarP(&o.strategy, "strategy", "s", "", "stuffing, trimming or summarization (default: ask)")
	fs.IntVarP(&o.numQuestions, "num-questions", "n", 0, "number of questions to process (default: ask)")
	fs.StringVar(&o.outputDir, "output-dir", "", "directory for result files (overrides config)")
	fs.BoolVar(&o.html, "html", false, "also write an HTML rendering of the report")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn, error or none (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if o.questionsPath == "" {
		return nil, fs, errors.New("--questions is required")
	}
	return &o, fs, nil
}

func loadConfig(o *options, fs *pflag.FlagSet) (*config.Config, error) {
	if err := config.LoadEnv(o.envFile); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if _, err := os.Stat(o.configPath); err == nil || fs.Changed("config") {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func systemPrompt(o *options) (string, error) {
	if o.promptsPath != "" {
		return config.LoadSystemPrompt(o.promptsPath, o.promptKey, o.publication)
	}
	var publication string
	if o.publication != "" {
		data, err := os.ReadFile(o.publication)
		if err != nil {
			return "", fmt.Errorf("failed to read publication: %w", err)
		}
		publication = string(data)
	}
	return config.PromptConfig{}.SystemPrompt(publication), nil
}

func run(args []string, in io.Reader, out io.Writer) error {
	o, fs, err := parseFlags(args, out)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(o, fs)
	if err != nil {
		return err
	}
	logger := log.NewGologLoggerWithLevel(cfg.Level())
	log.SetDefaultLogger(logger)

	questions, err := config.LoadQuestions(o.questionsPath)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions in %s", o.questionsPath)
	}

	prompt, err := systemPrompt(o)
	if err != nil {
		return err
	}

	ask := newChooser(in, out)
	name := o.strategy
	if name == "" {
		name = ask.strategy()
	}
	strategy, err := cfg.Strategy(name)
	if err != nil {
		return err
	}

	n := o.numQuestions
	if n <= 0 {
		if o.strategy == "" {
			n = ask.numQuestions(len(questions))
		} else {
			n = clampQuestions("", len(questions))
		}
	}
	n = min(n, len(questions))
	questions = questions[:n]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	model, err := llm.New(cfg.LLMConfig(), llm.WithLogger(logger))
	if err != nil {
		return err
	}

	counter := tokens.NewCached(tokens.New(cfg.LLM))
	builder := memory.NewBuilder(memory.SystemMessage(prompt),
		memory.WithSummarizer(model),
		memory.WithCounter(counter),
		memory.WithLogger(logger),
	)

	var fileOpts []file.Option
	if o.html {
		fileOpts = append(fileOpts, file.WithHTML())
	}
	files, err := file.New(cfg.OutputDir, fileOpts...)
	if err != nil {
		return err
	}
	savers := store.Multi{files}

	archive, closer, err := openArchive(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed to open %s archive: %w", cfg.Archive.Backend, err)
	}
	defer closer.Close()
	if archive != nil {
		savers = append(savers, archive)
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Running %s strategy on %d questions", name, len(questions))))
	mgr := conversation.NewManager(model, builder, strategy,
		conversation.WithLogger(logger),
		conversation.WithCounter(counter),
		conversation.WithPersister(savers),
	)

	r, err := mgr.Run(ctx, questions)
	if r != nil {
		printSummary(out, r, files.ArtifactPath(r))
	}
	return err
}

func printSummary(out io.Writer, r *report.RunReport, path string) {
	for _, u := range r.Usage {
		fmt.Fprintf(out, "  %s %s prompt + %s response = %s tokens\n",
			dimStyle.Render(fmt.Sprintf("Q%d", u.QuestionNum)),
			humanize.Comma(int64(u.PromptTokens)),
			humanize.Comma(int64(u.ResponseTokens)),
			humanize.Comma(int64(u.TotalTokens)))
	}
	if r.AbortReason != "" {
		fmt.Fprintln(out, warnStyle.Render("Run stopped early: "+r.AbortReason))
	}
	fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%d answers, %s tokens total. Results saved to %s",
		len(r.QAPairs), humanize.Comma(int64(r.TotalTokens())), path)))
}
